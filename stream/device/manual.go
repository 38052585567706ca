package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/aliassadi/pcmplay/stream"
	"github.com/charmbracelet/log"
)

// ManualConfig controls the behaviour of a ManualDevice.
type ManualConfig struct {
	// Unavailable makes OpenStream fail with ErrDeviceUnavailable.
	Unavailable bool
	// SampleRates restricts the accepted sample rates. Empty accepts any.
	SampleRates []int
	// MaxChannels restricts the channel count. Zero accepts any.
	MaxChannels int
	// Clocked drives the render callback from a goroutine at the burst
	// rate, like real hardware. Otherwise frames are pulled with Pull.
	Clocked bool
}

// ManualDevice is an in-memory playback device. Tests pull frames
// synchronously; the clocked variant stands in for hardware in CI.
type ManualDevice struct {
	cfg ManualConfig

	mu      sync.Mutex
	streams []*ManualStream
}

// NewManualDevice creates a manual device.
func NewManualDevice(cfg ManualConfig) *ManualDevice {
	return &ManualDevice{cfg: cfg}
}

// Name returns "mock".
func (d *ManualDevice) Name() string { return "mock" }

// OpenStream opens a manual stream.
func (d *ManualDevice) OpenStream(cfg stream.StreamConfig, cb stream.Callbacks) (stream.Stream, error) {
	if d.cfg.Unavailable {
		return nil, stream.ErrDeviceUnavailable
	}
	if len(d.cfg.SampleRates) > 0 {
		supported := false
		for _, sr := range d.cfg.SampleRates {
			if sr == cfg.SampleRate {
				supported = true
				break
			}
		}
		if !supported {
			return nil, fmt.Errorf("%w: sample rate %d not in %v", stream.ErrInvalidConfig, cfg.SampleRate, d.cfg.SampleRates)
		}
	}
	if d.cfg.MaxChannels > 0 && cfg.Channels > d.cfg.MaxChannels {
		return nil, fmt.Errorf("%w: %d channels exceeds %d", stream.ErrInvalidConfig, cfg.Channels, d.cfg.MaxChannels)
	}

	s := &ManualStream{cfg: cfg, cb: cb, clocked: d.cfg.Clocked}

	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()

	log.Debug("Opened manual stream", "sample_rate", cfg.SampleRate, "channels", cfg.Channels, "clocked", d.cfg.Clocked)
	return s, nil
}

// Last returns the most recently opened stream, or nil.
func (d *ManualDevice) Last() *ManualStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

// Opened returns the number of streams opened so far.
func (d *ManualDevice) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams)
}

// ManualStream is a stream opened by ManualDevice.
type ManualStream struct {
	cfg     stream.StreamConfig
	cb      stream.Callbacks
	clocked bool

	mu      sync.Mutex
	started bool
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// FailStart, when set, is returned by the next Start call.
	FailStart error

	// Test helpers
	StartCount int
	StopCount  int
	CloseCount int
}

// Config returns the stream parameters.
func (s *ManualStream) Config() stream.StreamConfig { return s.cfg }

// Start marks the stream as started.
func (s *ManualStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: stream closed", stream.ErrDeviceLost)
	}
	if err := s.FailStart; err != nil {
		s.FailStart = nil
		return err
	}
	s.StartCount++
	if s.started {
		return nil
	}
	s.started = true

	if s.clocked {
		s.stopCh = make(chan struct{})
		s.doneCh = make(chan struct{})
		go s.clock(s.stopCh, s.doneCh)
	}
	return nil
}

// Stop pauses the stream. It waits for a running Pull or clock tick.
func (s *ManualStream) Stop() error {
	s.mu.Lock()
	s.StopCount++
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}
	return nil
}

// Close stops and releases the stream.
func (s *ManualStream) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.CloseCount++
	return nil
}

// Started reports whether the stream is started.
func (s *ManualStream) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Closed reports whether the stream was closed.
func (s *ManualStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Pull invokes the render callback for the given number of frames, as the
// hardware would for one period. It returns false if the stream is not
// started.
func (s *ManualStream) Pull(frames int) ([]int16, bool) {
	dst := make([]int16, frames*s.cfg.Channels)
	return dst, s.PullInto(dst)
}

// PullInto renders into dst if the stream is started.
func (s *ManualStream) PullInto(dst []int16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.cb.Render == nil {
		return false
	}
	s.cb.Render(dst)
	return true
}

// Render invokes the render callback regardless of the stream state, the
// way a device might deliver one late callback around a stop.
func (s *ManualStream) Render(dst []int16) {
	s.cb.Render(dst)
}

// Disconnect reports a device loss through the error callback.
func (s *ManualStream) Disconnect(err error) {
	if err == nil {
		err = stream.ErrDeviceLost
	}
	if s.cb.Error != nil {
		s.cb.Error(err)
	}
}

// SignalUnderrun reports a device-detected underflow.
func (s *ManualStream) SignalUnderrun() {
	if s.cb.Underrun != nil {
		s.cb.Underrun()
	}
}

func (s *ManualStream) clock(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	period := s.cfg.BurstDuration()
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buf := make([]int16, s.cfg.FramesPerBurst*s.cfg.Channels)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if s.cb.Render != nil {
				s.cb.Render(buf)
			}
		}
	}
}
