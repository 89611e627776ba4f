package zones

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/logging"
)

// Refresher re-lists zones on a cron schedule so the console picks up changes
// made elsewhere.
type Refresher struct {
	cron    *cron.Cron
	m       *Manager
	log     logging.Logger
	timeout time.Duration
}

// NewRefresher schedules m.List. An empty schedule returns nil, nil.
func NewRefresher(m *Manager, schedule string, log logging.Logger) (*Refresher, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil, nil
	}
	if log == nil {
		log = logging.Noop()
	}
	r := &Refresher{cron: cron.New(), m: m, log: log, timeout: 30 * time.Second}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("zones refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	ctx, _ = logging.EnsureRequestID(ctx)
	if err := r.m.List(ctx); err != nil {
		r.log.Warn(ctx, "scheduled zone refresh failed", logging.Err(err))
	}
}

func (r *Refresher) Start() { r.cron.Start() }

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
