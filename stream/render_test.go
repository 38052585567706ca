package stream

import (
	"slices"
	"testing"
)

func mustBuffer(t *testing.T, samples []int16, channels int) *SampleBuffer {
	t.Helper()
	buf, err := NewSampleBuffer(samples, channels, 48000)
	if err != nil {
		t.Fatalf("NewSampleBuffer: %v", err)
	}
	return buf
}

func TestRender(t *testing.T) {
	stereo := []int16{100, -100, 200, -200}

	tests := []struct {
		name       string
		samples    []int16
		channels   int
		dstLen     int
		cursor     int
		policy     EndPolicy
		want       []int16
		wantCursor int
		wantFrames int
		exhausted  bool
	}{
		{
			name:       "loop wraps within one period",
			samples:    stereo,
			channels:   2,
			dstLen:     8,
			policy:     EndLoop,
			want:       []int16{100, -100, 200, -200, 100, -100, 200, -200},
			wantCursor: 0,
			wantFrames: 4,
		},
		{
			name:       "loop request longer than buffer",
			samples:    []int16{1, 2, 3},
			channels:   1,
			dstLen:     7,
			cursor:     2,
			policy:     EndLoop,
			want:       []int16{3, 1, 2, 3, 1, 2, 3},
			wantCursor: 0,
			wantFrames: 7,
		},
		{
			name:       "drain pads with silence",
			samples:    stereo,
			channels:   2,
			dstLen:     8,
			cursor:     1,
			policy:     EndDrain,
			want:       []int16{200, -200, 0, 0, 0, 0, 0, 0},
			wantCursor: 2,
			wantFrames: 1,
			exhausted:  true,
		},
		{
			name:       "drain exact end",
			samples:    stereo,
			channels:   2,
			dstLen:     4,
			policy:     EndDrain,
			want:       []int16{100, -100, 200, -200},
			wantCursor: 2,
			wantFrames: 2,
			exhausted:  true,
		},
		{
			name:       "drain mid buffer",
			samples:    []int16{1, 2, 3, 4},
			channels:   1,
			dstLen:     2,
			policy:     EndDrain,
			want:       []int16{1, 2},
			wantCursor: 2,
			wantFrames: 2,
		},
		{
			name:       "drain cursor past end",
			samples:    stereo,
			channels:   2,
			dstLen:     4,
			cursor:     2,
			policy:     EndDrain,
			want:       []int16{0, 0, 0, 0},
			wantCursor: 2,
			exhausted:  true,
		},
		{
			name:       "trailing partial frame silenced",
			samples:    stereo,
			channels:   2,
			dstLen:     5,
			policy:     EndLoop,
			want:       []int16{100, -100, 200, -200, 0},
			wantCursor: 0,
			wantFrames: 2,
		},
		{
			name:       "zero frames is a no-op",
			samples:    stereo,
			channels:   2,
			dstLen:     1,
			cursor:     1,
			policy:     EndLoop,
			want:       []int16{42},
			wantCursor: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := mustBuffer(t, tt.samples, tt.channels)
			dst := make([]int16, tt.dstLen)
			for i := range dst {
				dst[i] = 42
			}

			res := Render(dst, buf, tt.cursor, tt.policy)
			if !slices.Equal(dst, tt.want) {
				t.Errorf("dst = %v, want %v", dst, tt.want)
			}
			if res.Cursor != tt.wantCursor {
				t.Errorf("Cursor = %d, want %d", res.Cursor, tt.wantCursor)
			}
			if res.Frames != tt.wantFrames {
				t.Errorf("Frames = %d, want %d", res.Frames, tt.wantFrames)
			}
			if res.Exhausted != tt.exhausted {
				t.Errorf("Exhausted = %v, want %v", res.Exhausted, tt.exhausted)
			}
		})
	}
}

func TestRenderEmptyBuffer(t *testing.T) {
	for _, policy := range []EndPolicy{EndLoop, EndDrain} {
		t.Run(policy.String(), func(t *testing.T) {
			dst := []int16{5, 5, 5, 5}
			res := Render(dst, mustBuffer(t, nil, 2), 0, policy)
			if !slices.Equal(dst, []int16{0, 0, 0, 0}) {
				t.Errorf("dst = %v, want silence", dst)
			}
			if !res.Exhausted {
				t.Error("empty buffer should report Exhausted")
			}

			dst = []int16{5, 5}
			if res := Render(dst, nil, 0, policy); !res.Exhausted || dst[0] != 0 {
				t.Errorf("nil buffer: res = %+v, dst = %v", res, dst)
			}

			// A zero-frame destination never ends playback.
			if res := Render([]int16{}, mustBuffer(t, nil, 2), 0, policy); res.Exhausted {
				t.Errorf("zero frames on empty buffer: res = %+v, want no-op", res)
			}
			if res := Render([]int16{7}, mustBuffer(t, nil, 2), 0, policy); res.Exhausted {
				t.Errorf("partial frame on empty buffer: res = %+v, want no-op", res)
			}
			if res := Render(nil, nil, 0, policy); res.Exhausted {
				t.Errorf("zero frames on nil buffer: res = %+v, want no-op", res)
			}
		})
	}
}

// TestRenderCursorProgression checks that consecutive periods under loop
// reproduce the buffer periodically.
func TestRenderCursorProgression(t *testing.T) {
	samples := []int16{1, 2, 3, 4, 5}
	buf := mustBuffer(t, samples, 1)

	var out []int16
	cursor := 0
	for range 6 {
		dst := make([]int16, 3)
		res := Render(dst, buf, cursor, EndLoop)
		if res.Frames != 3 {
			t.Fatalf("Frames = %d, want 3", res.Frames)
		}
		cursor = res.Cursor
		out = append(out, dst...)
	}

	for i, v := range out {
		if want := samples[i%len(samples)]; v != want {
			t.Fatalf("out[%d] = %d, want %d", i, v, want)
		}
	}
}

func BenchmarkRender(b *testing.B) {
	buf, _ := NewSampleBuffer(make([]int16, 48000*2), 2, 48000)
	dst := make([]int16, DefaultFramesPerBurst*2)
	cursor := 0
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		cursor = Render(dst, buf, cursor, EndLoop).Cursor
	}
}
