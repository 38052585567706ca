package stream

import (
	"encoding/binary"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// TestDefaultConfig tests that default configuration is valid.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}

	sc, err := cfg.StreamConfig()
	if err != nil {
		t.Fatal(err)
	}
	if sc != DefaultStreamConfig() {
		t.Errorf("StreamConfig() = %+v, want %+v", sc, DefaultStreamConfig())
	}
	if !sc.IsLowLatency() {
		t.Errorf("default burst %v should be low latency", sc.BurstDuration())
	}
}

// TestConfigValidation tests configuration validation.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:   "device is case insensitive",
			modify: func(c *Config) { c.Device = "MOCK" },
		},
		{
			name:    "invalid device",
			modify:  func(c *Config) { c.Device = "alsa" },
			wantErr: true,
			errMsg:  "invalid device",
		},
		{
			name:    "invalid sample rate",
			modify:  func(c *Config) { c.SampleRate = 12345 },
			wantErr: true,
			errMsg:  "invalid sample rate",
		},
		{
			name:    "too many channels",
			modify:  func(c *Config) { c.Channels = 9 },
			wantErr: true,
			errMsg:  "channels must be between",
		},
		{
			name:    "burst too small",
			modify:  func(c *Config) { c.FramesPerBurst = 4 },
			wantErr: true,
			errMsg:  "frames_per_burst",
		},
		{
			name:    "invalid byte order",
			modify:  func(c *Config) { c.ByteOrder = "middle" },
			wantErr: true,
			errMsg:  "invalid byte order",
		},
		{
			name:    "invalid end policy",
			modify:  func(c *Config) { c.EndPolicy = "fade" },
			wantErr: true,
			errMsg:  "invalid end policy",
		},
		{
			name:    "negative underrun interval",
			modify:  func(c *Config) { c.UnderrunEvery = -time.Second },
			wantErr: true,
			errMsg:  "underrun_log_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want message containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestParseEndPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    EndPolicy
		wantErr bool
	}{
		{"", EndLoop, false},
		{"loop", EndLoop, false},
		{"Drain", EndDrain, false},
		{" stop ", EndDrain, false},
		{"fade", EndLoop, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEndPolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEndPolicy(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseEndPolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseByteOrder(t *testing.T) {
	if o, err := ParseByteOrder("big"); err != nil || o != binary.BigEndian {
		t.Errorf("ParseByteOrder(big) = %v, %v", o, err)
	}
	if o, err := ParseByteOrder(""); err != nil || o != binary.LittleEndian {
		t.Errorf("ParseByteOrder(\"\") = %v, %v", o, err)
	}
	if _, err := ParseByteOrder("pdp"); err == nil {
		t.Error("ParseByteOrder(pdp) expected error")
	}
}

func TestBurstDuration(t *testing.T) {
	tests := []struct {
		cfg        StreamConfig
		want       time.Duration
		lowLatency bool
	}{
		{StreamConfig{SampleRate: 48000, FramesPerBurst: 192}, 4 * time.Millisecond, true},
		{StreamConfig{SampleRate: 48000, FramesPerBurst: 480}, 10 * time.Millisecond, true},
		{StreamConfig{SampleRate: 8000, FramesPerBurst: 1024}, 128 * time.Millisecond, false},
		{StreamConfig{}, 0, true},
	}
	for _, tt := range tests {
		if got := tt.cfg.BurstDuration(); got != tt.want {
			t.Errorf("BurstDuration(%+v) = %v, want %v", tt.cfg, got, tt.want)
		}
		if got := tt.cfg.IsLowLatency(); got != tt.lowLatency {
			t.Errorf("IsLowLatency(%+v) = %v, want %v", tt.cfg, got, tt.lowLatency)
		}
	}
}

// TestLoadConfigFromViper tests loading configuration from Viper.
func TestLoadConfigFromViper(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	values := map[string]any{
		"device":                "mock",
		"sample_rate":           44100,
		"channels":              1,
		"frames_per_burst":      256,
		"byte_order":            "big",
		"end_policy":            "drain",
		"allow_fallback":        true,
		"metrics_addr":          ":9464",
		"underrun_log_interval": "5s",
	}
	for key, value := range values {
		viper.Set(key, value)
	}

	cfg, err := LoadConfigFromViper()
	if err != nil {
		t.Fatalf("LoadConfigFromViper() error = %v", err)
	}

	want := Config{
		Device:         "mock",
		SampleRate:     44100,
		Channels:       1,
		FramesPerBurst: 256,
		ByteOrder:      "big",
		EndPolicy:      "drain",
		AllowFallback:  true,
		MetricsAddr:    ":9464",
		UnderrunEvery:  5 * time.Second,
	}
	if cfg != want {
		t.Errorf("LoadConfigFromViper() = %+v, want %+v", cfg, want)
	}
}

func TestLoadConfigFromViperInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"sample rate", "sample_rate", 1},
		{"garbage interval", "underrun_log_interval", "garbage"},
		{"interval without unit", "underrun_log_interval", 2},
		{"numeric string interval", "underrun_log_interval", "2"},
		{"negative interval", "underrun_log_interval", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()

			viper.Set(tt.key, tt.value)
			if _, err := LoadConfigFromViper(); err == nil {
				t.Errorf("LoadConfigFromViper() expected error for %s = %v", tt.key, tt.value)
			}
		})
	}
}

func TestLoadConfigFromViperInterval(t *testing.T) {
	tests := []struct {
		value any
		want  time.Duration
	}{
		{"250ms", 250 * time.Millisecond},
		{"2s", 2 * time.Second},
		{5 * time.Second, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.value), func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()

			viper.Set("underrun_log_interval", tt.value)
			cfg, err := LoadConfigFromViper()
			if err != nil {
				t.Fatal(err)
			}
			if cfg.UnderrunEvery != tt.want {
				t.Errorf("UnderrunEvery = %v, want %v", cfg.UnderrunEvery, tt.want)
			}
		})
	}
}

func TestLoadConfigFromViperEnv(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	t.Setenv("PCMPLAY_SAMPLE_RATE", "44100")
	t.Setenv("PCMPLAY_END_POLICY", "drain")
	t.Setenv("PCMPLAY_UNDERRUN_LOG_INTERVAL", "3s")
	viper.SetEnvPrefix("pcmplay")
	viper.AutomaticEnv()
	SetDefaults()

	cfg, err := LoadConfigFromViper()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", cfg.SampleRate)
	}
	if cfg.EndPolicy != "drain" {
		t.Errorf("EndPolicy = %q, want drain", cfg.EndPolicy)
	}
	if cfg.UnderrunEvery != 3*time.Second {
		t.Errorf("UnderrunEvery = %v, want 3s", cfg.UnderrunEvery)
	}
	if cfg.Channels != DefaultChannels {
		t.Errorf("Channels = %d, want default %d", cfg.Channels, DefaultChannels)
	}
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	SetDefaults()
	cfg, err := LoadConfigFromViper()
	if err != nil {
		t.Fatal(err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("config from defaults = %+v, want %+v", cfg, DefaultConfig())
	}
}
