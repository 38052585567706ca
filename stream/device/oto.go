//go:build !nocgo
// +build !nocgo

package device

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/aliassadi/pcmplay/stream"
	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process. It is created on the first
// OpenStream and every later stream must match its format.
var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoOptions oto.NewContextOptions
	otoErr     error
)

const (
	otoReadyTimeout = 5 * time.Second
	otoPollInterval = 200 * time.Millisecond
)

// OtoDevice plays through ebitengine/oto.
type OtoDevice struct{}

// NewOtoDevice returns the oto backend.
func NewOtoDevice() *OtoDevice {
	return &OtoDevice{}
}

// Name returns "oto".
func (d *OtoDevice) Name() string { return "oto" }

func sharedOtoContext(cfg stream.StreamConfig) (*oto.Context, error) {
	otoOnce.Do(func() {
		otoOptions = oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: cfg.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   cfg.BurstDuration(),
		}
		// macOS CoreAudio prefers a larger buffer.
		if runtime.GOOS == "darwin" && otoOptions.BufferSize < 20*time.Millisecond {
			otoOptions.BufferSize = 20 * time.Millisecond
		}

		log.Debug("Initializing oto context",
			"sample_rate", otoOptions.SampleRate,
			"channels", otoOptions.ChannelCount,
			"buffer_size", otoOptions.BufferSize)

		ctx, ready, err := oto.NewContext(&otoOptions)
		if err != nil {
			otoErr = err
			return
		}
		select {
		case <-ready:
			otoContext = ctx
		case <-time.After(otoReadyTimeout):
			otoErr = fmt.Errorf("audio context initialization timeout after %v", otoReadyTimeout)
		}
	})

	if otoErr != nil {
		return nil, fmt.Errorf("%w: %v", stream.ErrDeviceUnavailable, otoErr)
	}
	if err := checkOtoContext(otoOptions, otoContext.Err(), cfg); err != nil {
		return nil, err
	}
	return otoContext, nil
}

// checkOtoContext reports whether the shared context can serve a stream
// with cfg. oto cannot recreate its context within a process, so once the
// driver failed every later open is unavailable.
func checkOtoContext(opts oto.NewContextOptions, ctxErr error, cfg stream.StreamConfig) error {
	if ctxErr != nil {
		return fmt.Errorf("%w: oto context failed and cannot be reopened in this process: %v",
			stream.ErrDeviceUnavailable, ctxErr)
	}
	if opts.SampleRate != cfg.SampleRate || opts.ChannelCount != cfg.Channels {
		return fmt.Errorf("%w: oto context already runs at %d Hz with %d channels",
			stream.ErrInvalidConfig, opts.SampleRate, opts.ChannelCount)
	}
	return nil
}

// OpenStream creates a paused oto player whose reader is the render
// callback.
func (d *OtoDevice) OpenStream(cfg stream.StreamConfig, cb stream.Callbacks) (stream.Stream, error) {
	if cfg.Channels < 1 || cfg.Channels > 2 {
		return nil, fmt.Errorf("%w: oto supports 1 or 2 channels, got %d", stream.ErrInvalidConfig, cfg.Channels)
	}
	ctx, err := sharedOtoContext(cfg)
	if err != nil {
		return nil, err
	}

	s := &otoStream{
		cfg:     cfg,
		cb:      cb,
		ctx:     ctx,
		scratch: make([]int16, cfg.FramesPerBurst*cfg.Channels*4),
		closed:  make(chan struct{}),
	}
	s.player = ctx.NewPlayer(s)
	s.player.SetBufferSize(cfg.FramesPerBurst * cfg.Channels * stream.BytesPerSample)

	go s.watch()
	return s, nil
}

type otoStream struct {
	cfg     stream.StreamConfig
	cb      stream.Callbacks
	ctx     *oto.Context
	player  *oto.Player
	scratch []int16

	mu        sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *otoStream) Config() stream.StreamConfig { return s.cfg }

// Read is called by oto's mixer goroutine for every period.
func (s *otoStream) Read(p []byte) (int, error) {
	frameBytes := s.cfg.Channels * stream.BytesPerSample
	frames := len(p) / frameBytes
	if frames == 0 {
		clear(p)
		return len(p), nil
	}

	n := frames * s.cfg.Channels
	if len(s.scratch) < n {
		// Only happens if oto asks for more than four bursts at once.
		s.scratch = make([]int16, n)
	}
	samples := s.scratch[:n]
	s.cb.Render(samples)

	for i, v := range samples {
		binary.LittleEndian.PutUint16(p[i*stream.BytesPerSample:], uint16(v))
	}
	return n * stream.BytesPerSample, nil
}

func (s *otoStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", stream.ErrDeviceLost, err)
	}
	s.player.Play()
	return nil
}

func (s *otoStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Pause()
	return nil
}

func (s *otoStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.Lock()
		defer s.mu.Unlock()
		err = s.player.Close()
	})
	return err
}

// watch polls the context for driver errors, which oto only reports
// through Err.
func (s *otoStream) watch() {
	ticker := time.NewTicker(otoPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			if err := s.ctx.Err(); err != nil {
				if s.cb.Error != nil {
					s.cb.Error(fmt.Errorf("%w: %v", stream.ErrDeviceLost, err))
				}
				return
			}
		}
	}
}

func otoAvailable() bool { return true }
