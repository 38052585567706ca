package stream

import (
	"encoding/binary"
	"sync/atomic"
)

// SampleStore owns the active SampleBuffer. Publication goes through an
// atomic pointer so a reader on another goroutine always sees a fully
// decoded buffer.
type SampleStore struct {
	current    atomic.Pointer[SampleBuffer]
	channels   int
	sampleRate int
}

// NewSampleStore creates an empty store that decodes buffers with the given
// channel count and sample rate.
func NewSampleStore(channels, sampleRate int) *SampleStore {
	return &SampleStore{channels: channels, sampleRate: sampleRate}
}

// Load decodes data and makes it the active buffer. On failure the prior
// buffer, if any, stays active.
func (s *SampleStore) Load(data []byte, order binary.ByteOrder) (*SampleBuffer, error) {
	buf, err := Decode(data, order, s.channels, s.sampleRate)
	if err != nil {
		return nil, err
	}
	s.current.Store(buf)
	return buf, nil
}

// Current returns the active buffer, or false if none is loaded.
func (s *SampleStore) Current() (*SampleBuffer, bool) {
	buf := s.current.Load()
	return buf, buf != nil
}

// Clear drops the active buffer.
func (s *SampleStore) Clear() {
	s.current.Store(nil)
}

// Channels returns the channel count new buffers are decoded with.
func (s *SampleStore) Channels() int { return s.channels }

// Reconfigure changes the layout used for subsequent loads. It does not
// touch the active buffer.
func (s *SampleStore) Reconfigure(channels, sampleRate int) {
	s.channels = channels
	s.sampleRate = sampleRate
}
