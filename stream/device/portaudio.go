//go:build portaudio

package device

import (
	"fmt"

	"github.com/aliassadi/pcmplay/stream"
	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

func init() {
	newPortAudio = func() stream.Device { return &PortAudioDevice{} }
}

// PortAudioDevice plays through a PortAudio callback stream.
type PortAudioDevice struct{}

// Name returns "portaudio".
func (d *PortAudioDevice) Name() string { return "portaudio" }

// OpenStream opens a low-latency stream on the default output device.
func (d *PortAudioDevice) OpenStream(cfg stream.StreamConfig, cb stream.Callbacks) (stream.Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize PortAudio: %v", stream.ErrDeviceUnavailable, err)
	}

	out, err := portaudio.DefaultOutputDevice()
	if err != nil || out == nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: no default output device: %v", stream.ErrDeviceUnavailable, err)
	}
	if out.MaxOutputChannels < cfg.Channels {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: device '%s' has %d output channels, need %d",
			stream.ErrInvalidConfig, out.Name, out.MaxOutputChannels, cfg.Channels)
	}

	params := portaudio.LowLatencyParameters(nil, out)
	params.Output.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.FramesPerBurst

	s := &paStream{cfg: cfg, cb: cb}
	st, err := portaudio.OpenStream(params, s.process)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: failed to open stream: %v", stream.ErrInvalidConfig, err)
	}
	s.stream = st

	log.Debug("Opened PortAudio stream",
		"device", out.Name,
		"latency", params.Output.Latency,
		"frames_per_buffer", params.FramesPerBuffer)
	return s, nil
}

type paStream struct {
	cfg    stream.StreamConfig
	cb     stream.Callbacks
	stream *portaudio.Stream
}

func (s *paStream) Config() stream.StreamConfig { return s.cfg }

func (s *paStream) process(out []int16, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.OutputUnderflow != 0 && s.cb.Underrun != nil {
		s.cb.Underrun()
	}
	s.cb.Render(out)
}

func (s *paStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	return nil
}

// Stop uses Pa_StopStream, which returns after pending buffers played and
// the callback is no longer running.
func (s *paStream) Stop() error {
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop stream: %w", err)
	}
	return nil
}

func (s *paStream) Close() error {
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	if termErr := portaudio.Terminate(); termErr != nil && err == nil {
		err = termErr
	}
	if err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}
