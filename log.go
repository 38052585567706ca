package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, "pcmplay").CacheDir()
	if err != nil {
		return "", err //nolint:wrapcheck
	}
	return filepath.Join(dir, "pcmplay.log"), nil
}

// setupLog sends logs to a file in the user cache dir, so they don't tear
// the TUI. Set PCMPLAY_DEBUG to log at debug level.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)
	log.SetReportTimestamp(true)
	if os.Getenv("PCMPLAY_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}

	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		// log disabled
		return func() error { return nil }, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		// log disabled
		return func() error { return nil }, nil
	}
	log.SetOutput(f)
	return f.Close, nil
}

// logToStderr is used when there is no TUI to disturb.
func logToStderr() {
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(false)
}
