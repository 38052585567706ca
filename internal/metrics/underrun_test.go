package metrics

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aliassadi/pcmplay/stream"
	"github.com/charmbracelet/log"
)

func TestUnderrunReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	src := &fakeSource{}

	r := NewUnderrunReporter(src, time.Hour, logger)

	if r.check() {
		t.Error("check() logged without underruns")
	}

	src.stats.Underruns = 3
	if !r.check() {
		t.Fatal("check() did not log new underruns")
	}
	if !strings.Contains(buf.String(), "Audio underrun") {
		t.Errorf("log output = %q", buf.String())
	}

	// Rate limited within the interval.
	src.stats.Underruns = 4
	if r.check() {
		t.Error("check() logged twice within the interval")
	}
}

func TestUnderrunReporterUnlimited(t *testing.T) {
	src := &fakeSource{}
	r := NewUnderrunReporter(src, 0, log.New(&bytes.Buffer{}))

	for i := uint64(1); i <= 3; i++ {
		src.stats.Underruns = i
		if !r.check() {
			t.Errorf("check() #%d did not log", i)
		}
	}

	// Re-initializing the stream restarts its counters.
	src.stats = stream.Stats{Underruns: 1}
	if !r.check() {
		t.Error("check() did not log after counter reset")
	}
}

func TestUnderrunReporterRun(t *testing.T) {
	r := NewUnderrunReporter(&fakeSource{}, 0, log.New(&bytes.Buffer{}))
	r.poll = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Errorf("Run() = %v", err)
	}
}
