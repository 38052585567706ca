package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	// Asset path shown in the header
	Path string

	EnableMouse bool

	// For debugging the UI
	AltScreen       bool          `env:"PCMPLAY_ALT_SCREEN"     envDefault:"false"`
	RefreshInterval time.Duration `env:"PCMPLAY_UI_REFRESH"     envDefault:"100ms"`
	ShowStats       bool          `env:"PCMPLAY_UI_SHOW_STATS"  envDefault:"true"`
}
