package stream

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads the engine configuration from Viper.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("device") {
		cfg.Device = viper.GetString("device")
	}

	// Stream settings
	if viper.IsSet("sample_rate") {
		cfg.SampleRate = viper.GetInt("sample_rate")
	}
	if viper.IsSet("channels") {
		cfg.Channels = viper.GetInt("channels")
	}
	if viper.IsSet("frames_per_burst") {
		cfg.FramesPerBurst = viper.GetInt("frames_per_burst")
	}
	if viper.IsSet("byte_order") {
		cfg.ByteOrder = viper.GetString("byte_order")
	}
	if viper.IsSet("end_policy") {
		cfg.EndPolicy = viper.GetString("end_policy")
	}
	if viper.IsSet("allow_fallback") {
		cfg.AllowFallback = viper.GetBool("allow_fallback")
	}

	// Diagnostics
	if viper.IsSet("metrics_addr") {
		cfg.MetricsAddr = viper.GetString("metrics_addr")
	}
	if viper.IsSet("underrun_log_interval") {
		d, err := parseInterval(viper.Get("underrun_log_interval"))
		if err != nil {
			return cfg, fmt.Errorf("invalid configuration: underrun_log_interval: %w", err)
		}
		cfg.UnderrunEvery = d
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// parseInterval accepts a time.Duration or a duration string with a unit
// such as "500ms". Bare numbers are rejected since their unit is ambiguous.
func parseInterval(v any) (time.Duration, error) {
	if d, ok := v.(time.Duration); ok {
		return d, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("%v is not a duration, use a unit such as \"1s\"", v)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err //nolint:wrapcheck
	}
	return d, nil
}

// SetDefaults sets default values in Viper for the engine configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("device", defaults.Device)
	viper.SetDefault("sample_rate", defaults.SampleRate)
	viper.SetDefault("channels", defaults.Channels)
	viper.SetDefault("frames_per_burst", defaults.FramesPerBurst)
	viper.SetDefault("byte_order", defaults.ByteOrder)
	viper.SetDefault("end_policy", defaults.EndPolicy)
	viper.SetDefault("allow_fallback", defaults.AllowFallback)
	viper.SetDefault("metrics_addr", defaults.MetricsAddr)
	viper.SetDefault("underrun_log_interval", defaults.UnderrunEvery.String())
}
