// Package ui provides the one-button terminal player for pcmplay.
package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliassadi/pcmplay/stream"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied!"
	ellipsis             = "…"
)

// Player is the control surface the UI drives. stream.Controller
// implements it.
type Player interface {
	Init() error
	Toggle() (bool, error)
	Stop() error
	State() stream.State
	Stats() stream.Stats
	Config() stream.StreamConfig
	Current() (*stream.SampleBuffer, bool)
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, player Player) *tea.Program {
	log.Debug("Starting pcmplay ui", "path", cfg.Path, "refresh", cfg.RefreshInterval)

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, player), opts...)
}

type tickMsg time.Time

type toggleDoneMsg struct {
	playing bool
	err     error
}

type (
	stopDoneMsg             struct{ err error }
	reinitDoneMsg           struct{ err error }
	statusMessageTimeoutMsg struct{}
)

type model struct {
	cfg    Config
	player Player
	keys   keyMap
	help   help.Model

	width      int
	status     status
	busy       bool // a control command is in flight
	err        error
	statusNote string
}

func newModel(cfg Config, player Player) model {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 100 * time.Millisecond
	}
	m := model{
		cfg:    cfg,
		player: player,
		keys:   defaultKeyMap(),
		help:   help.New(),
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.cfg.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh polls the player. The buffer may be swapped by the file watcher,
// so it is re-read on every tick.
func (m *model) refresh() {
	s := status{
		stats:  m.player.Stats(),
		config: m.player.Config(),
	}
	if buf, ok := m.player.Current(); ok {
		s.frames = buf.Frames()
		s.bytes = buf.SizeBytes()
		s.duration = buf.Duration()
	}
	m.status = s
}

func (m model) toggle() tea.Cmd {
	return func() tea.Msg {
		playing, err := m.player.Toggle()
		return toggleDoneMsg{playing: playing, err: err}
	}
}

func (m model) stop() tea.Cmd {
	return func() tea.Msg {
		return stopDoneMsg{err: m.player.Stop()}
	}
}

func (m model) reinit() tea.Cmd {
	return func() tea.Msg {
		return reinitDoneMsg{err: m.player.Init()}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Copy):
			text := m.diagnostics()
			// Copy using OSC 52
			termenv.Copy(text)
			// Copy using native system clipboard
			_ = clipboard.WriteAll(text)
			m.statusNote = "Copied stats"
			return m, tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
				return statusMessageTimeoutMsg{}
			})
		}
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Toggle):
			m.busy = true
			return m, m.toggle()
		case key.Matches(msg, m.keys.Stop):
			m.busy = true
			return m, m.stop()
		case key.Matches(msg, m.keys.Reinit):
			m.busy = true
			return m, m.reinit()
		}
		return m, nil

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft && !m.busy {
			m.busy = true
			return m, m.toggle()
		}
		return m, nil

	case toggleDoneMsg:
		m.busy = false
		m.err = msg.err
		if msg.err != nil {
			log.Warn("Toggle failed", "error", msg.err)
		}
		m.refresh()
		return m, nil

	case stopDoneMsg:
		m.busy = false
		m.err = msg.err
		m.refresh()
		return m, nil

	case reinitDoneMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			log.Info("Playback device reopened")
		}
		m.refresh()
		return m, nil

	case statusMessageTimeoutMsg:
		m.statusNote = ""
		return m, nil

	case tickMsg:
		m.refresh()
		return m, m.tick()
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	title := "pcmplay"
	if m.cfg.Path != "" {
		title += " · " + filepath.Base(m.cfg.Path)
	}
	if m.width > 0 {
		title = runewidth.Truncate(title, max(m.width-8, 10), ellipsis)
	}
	b.WriteString(titleStyle.Render(title))
	if m.statusNote != "" {
		b.WriteString(" ")
		b.WriteString(subtleStyle.Render(m.statusNote))
	}
	b.WriteString("\n\n")

	label := "  Play  "
	style := buttonStyle
	if m.status.stats.State == stream.StateRunning {
		label = "  Stop  "
		style = buttonActiveStyle
	}
	b.WriteString(style.Render(label))
	b.WriteString(m.status.compact())
	b.WriteString("\n\n")

	if bar := m.status.progressBar(max(m.width-8, 10)); bar != "" {
		b.WriteString(bar)
		b.WriteString("\n\n")
	}

	if m.cfg.ShowStats {
		b.WriteString(m.status.details())
		b.WriteString("\n\n")
	}

	if msg := errorMessage(m.err, m.status.stats.State); msg != "" {
		if m.width > 0 {
			msg = truncate.StringWithTail(msg, uint(max(m.width-4, 10)), ellipsis) //nolint:gosec
		}
		b.WriteString(errorStyle.Render(msg))
		b.WriteString("\n\n")
	}

	b.WriteString(m.help.View(m.keys))
	return appStyle.Render(b.String())
}

// diagnostics returns the plain-text stats copied by the copy key.
func (m model) diagnostics() string {
	s := m.status
	return fmt.Sprintf("stream_id=%s state=%s cursor=%d callbacks=%d frames=%d underruns=%d drains=%d device_errors=%d sample_rate=%d channels=%d frames_per_burst=%d",
		s.stats.StreamID, s.stats.State, s.stats.Cursor,
		s.stats.Callbacks, s.stats.FramesRendered, s.stats.Underruns,
		s.stats.Drains, s.stats.DeviceErrors,
		s.config.SampleRate, s.config.Channels, s.config.FramesPerBurst)
}

// errorMessage turns an engine error into a hint for the user.
func errorMessage(err error, state stream.State) string {
	switch {
	case err == nil && state == stream.StateError:
		return "Playback device lost. Press r to reopen it."
	case err == nil:
		return ""
	case stream.NeedsReinitialize(err):
		return err.Error() + ". Press r to reopen the device."
	case errors.Is(err, stream.ErrNoBufferLoaded):
		return "Nothing to play: no sample buffer loaded."
	}
	return err.Error()
}
