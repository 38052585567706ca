package stream

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// Audio format constants shared by every device backend.
const (
	// DefaultSampleRate matches the native rate of most mobile and desktop
	// output paths.
	DefaultSampleRate = 48000
	// DefaultChannels is stereo.
	DefaultChannels = 2
	// DefaultFramesPerBurst is a typical low-latency hardware burst.
	DefaultFramesPerBurst = 192
	// BitDepth is the bit depth per sample (16-bit).
	BitDepth = 16
	// BytesPerSample is the number of bytes per sample.
	BytesPerSample = BitDepth / 8
	// LowLatencyBurstLimit is the largest burst duration still considered
	// low latency.
	LowLatencyBurstLimit = 10 * time.Millisecond
)

// Format is the sample format of a stream.
type Format int

const (
	// FormatInt16LE is signed 16-bit little-endian PCM.
	FormatInt16LE Format = iota
)

// String returns the string representation of the format.
func (f Format) String() string {
	if f == FormatInt16LE {
		return "s16le"
	}
	return "unknown"
}

// EndPolicy defines what the render callback does at the end of the buffer.
type EndPolicy int

const (
	// EndLoop wraps the cursor to the first frame and keeps playing.
	EndLoop EndPolicy = iota
	// EndDrain fills the rest of the period with silence and returns the
	// engine to idle.
	EndDrain
)

// String returns the string representation of the policy.
func (p EndPolicy) String() string {
	switch p {
	case EndLoop:
		return "loop"
	case EndDrain:
		return "drain"
	default:
		return "unknown"
	}
}

// ParseEndPolicy parses "loop" or "drain".
func ParseEndPolicy(s string) (EndPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "loop", "":
		return EndLoop, nil
	case "drain", "stop":
		return EndDrain, nil
	}
	return EndLoop, fmt.Errorf("invalid end policy %q: must be loop or drain", s)
}

// StreamConfig describes the hardware stream. It is fixed once the stream
// is opened.
type StreamConfig struct {
	SampleRate     int
	Channels       int
	Format         Format
	FramesPerBurst int
	EndPolicy      EndPolicy
	// AllowFallback retries with DefaultStreamConfig when the device
	// rejects the requested parameters.
	AllowFallback bool
}

// DefaultStreamConfig returns 48 kHz stereo int16 with a small burst.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		SampleRate:     DefaultSampleRate,
		Channels:       DefaultChannels,
		Format:         FormatInt16LE,
		FramesPerBurst: DefaultFramesPerBurst,
		EndPolicy:      EndLoop,
	}
}

var validSampleRates = []int{8000, 11025, 16000, 22050, 24000, 32000, 44100, 48000, 96000}

// Validate checks if the stream configuration is well formed.
func (c StreamConfig) Validate() error {
	rateValid := false
	for _, sr := range validSampleRates {
		if c.SampleRate == sr {
			rateValid = true
			break
		}
	}
	if !rateValid {
		return fmt.Errorf("invalid sample rate %d: must be one of %v", c.SampleRate, validSampleRates)
	}
	if c.Channels < 1 || c.Channels > 8 {
		return fmt.Errorf("channels must be between 1 and 8, got %d", c.Channels)
	}
	if c.Format != FormatInt16LE {
		return fmt.Errorf("unsupported format %v", c.Format)
	}
	if c.FramesPerBurst < 16 || c.FramesPerBurst > 16384 {
		return fmt.Errorf("frames_per_burst must be between 16 and 16384, got %d", c.FramesPerBurst)
	}
	if c.EndPolicy != EndLoop && c.EndPolicy != EndDrain {
		return fmt.Errorf("invalid end policy %d", c.EndPolicy)
	}
	return nil
}

// BurstDuration returns the length of one hardware period.
func (c StreamConfig) BurstDuration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.FramesPerBurst) * time.Second / time.Duration(c.SampleRate)
}

// IsLowLatency reports whether one burst fits the low-latency limit.
func (c StreamConfig) IsLowLatency() bool {
	return c.BurstDuration() <= LowLatencyBurstLimit
}

// Config contains every engine option as read from file, env and flags.
// Environment variables (PCMPLAY_<KEY>) are resolved by viper.
type Config struct {
	Device         string `yaml:"device"`
	SampleRate     int    `yaml:"sample_rate"`
	Channels       int    `yaml:"channels"`
	FramesPerBurst int    `yaml:"frames_per_burst"`
	ByteOrder      string `yaml:"byte_order"`
	EndPolicy      string `yaml:"end_policy"`
	AllowFallback  bool   `yaml:"allow_fallback"`

	// Diagnostics
	MetricsAddr   string        `yaml:"metrics_addr"`
	UnderrunEvery time.Duration `yaml:"underrun_log_interval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Device:         "auto",
		SampleRate:     DefaultSampleRate,
		Channels:       DefaultChannels,
		FramesPerBurst: DefaultFramesPerBurst,
		ByteOrder:      "little",
		EndPolicy:      EndLoop.String(),
		AllowFallback:  false,
		UnderrunEvery:  time.Second,
	}
}

var validDevices = []string{"auto", "oto", "portaudio", "mock"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	deviceValid := false
	for _, d := range validDevices {
		if strings.EqualFold(c.Device, d) {
			deviceValid = true
			c.Device = strings.ToLower(c.Device)
			break
		}
	}
	if !deviceValid {
		return fmt.Errorf("invalid device '%s': must be one of %v", c.Device, validDevices)
	}

	if _, err := ParseByteOrder(c.ByteOrder); err != nil {
		return err
	}

	sc, err := c.StreamConfig()
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return err
	}

	if c.UnderrunEvery < 0 {
		return fmt.Errorf("underrun_log_interval must not be negative, got %v", c.UnderrunEvery)
	}
	return nil
}

// StreamConfig converts the configuration into stream parameters.
func (c *Config) StreamConfig() (StreamConfig, error) {
	policy, err := ParseEndPolicy(c.EndPolicy)
	if err != nil {
		return StreamConfig{}, err
	}
	return StreamConfig{
		SampleRate:     c.SampleRate,
		Channels:       c.Channels,
		Format:         FormatInt16LE,
		FramesPerBurst: c.FramesPerBurst,
		EndPolicy:      policy,
		AllowFallback:  c.AllowFallback,
	}, nil
}

// ParseByteOrder parses "little" or "big".
func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "little", "le", "":
		return binary.LittleEndian, nil
	case "big", "be":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("invalid byte order %q: must be little or big", s)
}
