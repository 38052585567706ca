package stream

// RenderResult is the outcome of one render pass.
type RenderResult struct {
	// Frames is the number of frames copied from the buffer.
	Frames int
	// Cursor is the playback cursor after the pass.
	Cursor int
	// Exhausted is set when playback reached its end: the buffer end was
	// hit under EndDrain, or the buffer is empty.
	Exhausted bool
}

// Render copies frames from buf starting at cursor into dst, applying the
// end policy when the buffer end is reached. The destination frame count is
// len(dst)/channels; a trailing partial frame is silenced. Render never
// allocates and never reads outside buf.
func Render(dst []int16, buf *SampleBuffer, cursor int, policy EndPolicy) RenderResult {
	ch := 1
	if buf != nil {
		ch = buf.channels
	}
	want := len(dst) / ch
	if want == 0 {
		// Zero frames requested: nothing is consumed, even at the end.
		return RenderResult{Cursor: cursor}
	}

	if buf == nil || buf.Frames() == 0 {
		clear(dst)
		return RenderResult{Cursor: 0, Exhausted: true}
	}

	frames := buf.Frames()
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= frames {
		if policy == EndLoop {
			cursor %= frames
		} else {
			clear(dst)
			return RenderResult{Cursor: frames, Exhausted: true}
		}
	}

	written := 0
	exhausted := false
	for written < want {
		n := min(frames-cursor, want-written)
		copy(dst[written*ch:(written+n)*ch], buf.samples[cursor*ch:(cursor+n)*ch])
		written += n
		cursor += n
		if cursor == frames {
			if policy == EndLoop {
				cursor = 0
				continue
			}
			exhausted = true
			break
		}
	}

	clear(dst[written*ch:])
	return RenderResult{Frames: written, Cursor: cursor, Exhausted: exhausted}
}
