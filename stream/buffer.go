package stream

import (
	"encoding/binary"
	"fmt"
	"time"
)

// SampleBuffer is an immutable block of interleaved signed 16-bit samples.
// It is safe to share between the control goroutine and the render
// goroutine once published.
type SampleBuffer struct {
	samples    []int16
	channels   int
	sampleRate int
}

// NewSampleBuffer copies samples into a new buffer. The sample count must be
// a multiple of channels.
func NewSampleBuffer(samples []int16, channels, sampleRate int) (*SampleBuffer, error) {
	if channels <= 0 {
		return nil, newError("load", ErrInvalidFormat, fmt.Errorf("channel count %d", channels), StateUninitialized)
	}
	if len(samples)%channels != 0 {
		return nil, newError("load", ErrInvalidFormat,
			fmt.Errorf("%d samples is not a whole number of %d-channel frames", len(samples), channels),
			StateUninitialized)
	}
	cp := make([]int16, len(samples))
	copy(cp, samples)
	return &SampleBuffer{samples: cp, channels: channels, sampleRate: sampleRate}, nil
}

// Decode converts raw PCM bytes into a SampleBuffer using the given byte
// order. A nil order means little-endian.
func Decode(data []byte, order binary.ByteOrder, channels, sampleRate int) (*SampleBuffer, error) {
	if len(data)%BytesPerSample != 0 {
		return nil, newError("load", ErrInvalidFormat,
			fmt.Errorf("byte length %d is odd", len(data)), StateUninitialized)
	}
	if order == nil {
		order = binary.LittleEndian
	}
	n := len(data) / BytesPerSample
	if channels <= 0 || n%channels != 0 {
		return nil, newError("load", ErrInvalidFormat,
			fmt.Errorf("%d samples is not a whole number of %d-channel frames", n, channels),
			StateUninitialized)
	}

	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(order.Uint16(data[i*BytesPerSample:]))
	}
	return &SampleBuffer{samples: samples, channels: channels, sampleRate: sampleRate}, nil
}

// Len returns the number of samples.
func (b *SampleBuffer) Len() int { return len(b.samples) }

// Frames returns the number of frames.
func (b *SampleBuffer) Frames() int { return len(b.samples) / b.channels }

// Channels returns the channel count.
func (b *SampleBuffer) Channels() int { return b.channels }

// SampleRate returns the sample rate in Hz.
func (b *SampleBuffer) SampleRate() int { return b.sampleRate }

// Sample returns the i-th interleaved sample.
func (b *SampleBuffer) Sample(i int) int16 { return b.samples[i] }

// Samples returns a copy of the interleaved samples.
func (b *SampleBuffer) Samples() []int16 {
	cp := make([]int16, len(b.samples))
	copy(cp, b.samples)
	return cp
}

// Duration returns the playback length of the buffer.
func (b *SampleBuffer) Duration() time.Duration {
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.sampleRate)
}

// SizeBytes returns the size of the decoded PCM data.
func (b *SampleBuffer) SizeBytes() int { return len(b.samples) * BytesPerSample }
