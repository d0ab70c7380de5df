// Package heartbeat observes the liveness signal described in §4.5: a
// monotonic "last seen" timestamp refreshed by any list-jobs query (or
// an open realtime connection, per SPEC_FULL's expansion), and on
// timeout cancels all active work. Ticker loop grounded on the
// teacher's worker.go time.NewTicker polling idiom, generalized from
// "poll the database for claimable work" to "poll a timestamp for
// staleness".
package heartbeat

import (
	"context"
	"time"

	"github.com/restoreq/restoreq/internal/pkg/logger"
)

// Scheduler is the narrow slice of scheduler.Scheduler the monitor
// needs: it never touches Job Store internals directly.
type Scheduler interface {
	LastHeartbeat() time.Time
	CancelActiveWork() int
}

type Monitor struct {
	scheduler Scheduler
	timeout   time.Duration
	interval  time.Duration
	log       *logger.Logger
}

func New(scheduler Scheduler, timeout time.Duration, log *logger.Logger) *Monitor {
	return &Monitor{
		scheduler: scheduler,
		timeout:   timeout,
		interval:  5 * time.Second,
		log:       log.With("component", "HeartbeatMonitor"),
	}
}

// Run ticks every 5 seconds until ctx is cancelled, matching §4.5's
// fixed tick rate independent of the configurable timeout.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Monitor) tick() {
	if time.Since(m.scheduler.LastHeartbeat()) < m.timeout {
		return
	}
	if n := m.scheduler.CancelActiveWork(); n > 0 {
		m.log.Warn("heartbeat timeout, cancelled active jobs", "count", n)
	}
}
