package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aliassadi/pcmplay/stream"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// status is a snapshot of the player rendered by the view.
type status struct {
	stats    stream.Stats
	config   stream.StreamConfig
	frames   int
	bytes    int
	duration time.Duration
	err      error
}

// progress returns the cursor position within the buffer, from 0 to 1.
func (s status) progress() float64 {
	if s.frames <= 0 {
		return 0
	}
	p := float64(s.stats.Cursor) / float64(s.frames)
	return min(max(p, 0), 1)
}

// position returns the cursor position as a duration.
func (s status) position() time.Duration {
	if s.config.SampleRate <= 0 {
		return 0
	}
	return time.Duration(s.stats.Cursor) * time.Second / time.Duration(s.config.SampleRate)
}

// stateColor returns the appropriate color for the engine state.
func stateColor(st stream.State) lipgloss.Color {
	switch st {
	case stream.StateRunning:
		return lipgloss.Color("#00FF00") // Green
	case stream.StateIdle:
		return lipgloss.Color("#888888") // Gray
	case stream.StateStarting:
		return lipgloss.Color("#00AAFF") // Blue
	case stream.StateError:
		return lipgloss.Color("#FF0000") // Red
	case stream.StateStopping:
		return lipgloss.Color("#FF8800") // Orange
	default:
		return lipgloss.Color("#666666") // Dark gray
	}
}

// stateIcon returns an icon for the engine state.
func stateIcon(st stream.State) string {
	switch st {
	case stream.StateRunning:
		return "▶"
	case stream.StateIdle:
		return "■"
	case stream.StateStarting:
		return "⟳"
	case stream.StateError:
		return "✗"
	case stream.StateStopping:
		return "◼"
	default:
		return "○"
	}
}

// compact returns a one-line status for the button row.
func (s status) compact() string {
	st := s.stats.State
	style := lipgloss.NewStyle().Foreground(stateColor(st))
	line := style.Render(fmt.Sprintf("%s %s", stateIcon(st), st))
	if s.duration > 0 {
		line += subtleStyle.Render(fmt.Sprintf("  %s / %s",
			formatDuration(s.position()), formatDuration(s.duration)))
	}
	return line
}

// details returns the diagnostics panel.
func (s status) details() string {
	var lines []string

	if s.config.SampleRate > 0 {
		lines = append(lines, fmt.Sprintf("Stream:    %s, %d ch, %s, %d frames/burst (%s)",
			humanize.SIWithDigits(float64(s.config.SampleRate), 1, "Hz"),
			s.config.Channels,
			s.config.Format,
			s.config.FramesPerBurst,
			s.config.BurstDuration()))
		lines = append(lines, fmt.Sprintf("End:       %s", s.config.EndPolicy))
	}
	if s.frames > 0 {
		lines = append(lines, fmt.Sprintf("Buffer:    %s frames, %s",
			humanize.Comma(int64(s.frames)), humanize.IBytes(uint64(s.bytes))))
	} else {
		lines = append(lines, "Buffer:    none loaded")
	}
	lines = append(lines, fmt.Sprintf("Callbacks: %s  Frames: %s",
		humanize.Comma(int64(s.stats.Callbacks)),
		humanize.Comma(int64(s.stats.FramesRendered))))

	underruns := fmt.Sprintf("Underruns: %d", s.stats.Underruns)
	if s.stats.Underruns > 0 {
		underruns = warnStyle.Render(underruns)
	}
	lines = append(lines, underruns)

	if s.stats.StreamID != "" {
		lines = append(lines, subtleStyle.Render("Stream ID: "+s.stats.StreamID))
	}
	return strings.Join(lines, "\n")
}

// progressBar renders a bar of the given width.
func (s status) progressBar(width int) string {
	if width < 10 || s.frames <= 0 {
		return ""
	}

	filledWidth := min(int(s.progress()*float64(width)), width)
	filled := strings.Repeat("█", filledWidth)
	empty := strings.Repeat("░", width-filledWidth)

	filledStyle := lipgloss.NewStyle().Foreground(stateColor(s.stats.State))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))
	return filledStyle.Render(filled) + emptyStyle.Render(empty)
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
