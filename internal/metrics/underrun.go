package metrics

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// UnderrunReporter polls the engine counters and logs underruns, at most
// once per interval. Underruns are counted on the render goroutine, which
// must not log, so reporting happens here.
type UnderrunReporter struct {
	src      StatsSource
	logger   *log.Logger
	limiter  *rate.Limiter
	poll     time.Duration
	lastSeen uint64
}

// NewUnderrunReporter creates a reporter. A zero interval logs every poll
// that saw new underruns.
func NewUnderrunReporter(src StatsSource, interval time.Duration, logger *log.Logger) *UnderrunReporter {
	if logger == nil {
		logger = log.Default()
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &UnderrunReporter{
		src:     src,
		logger:  logger.WithPrefix("underrun"),
		limiter: rate.NewLimiter(limit, 1),
		poll:    250 * time.Millisecond,
	}
}

// Run polls until ctx is done.
func (r *UnderrunReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.check()
		}
	}
}

// check reports new underruns since the last report. It returns true when
// it logged.
func (r *UnderrunReporter) check() bool {
	s := r.src.Stats()
	if s.Underruns < r.lastSeen {
		// Counters restart when the stream is re-initialized.
		r.lastSeen = 0
	}
	if s.Underruns == r.lastSeen {
		return false
	}
	if !r.limiter.Allow() {
		return false
	}

	r.logger.Warn("Audio underrun",
		"new", s.Underruns-r.lastSeen,
		"total", s.Underruns,
		"callbacks", s.Callbacks,
		"state", s.State)
	r.lastSeen = s.Underruns
	return true
}
