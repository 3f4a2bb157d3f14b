package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// Sweeper purges audit entries older than the retention window on a cron
// schedule. Purge failures are logged and retried on the next due tick.
type Sweeper struct {
	store     *AuditStore
	schedule  string
	retention time.Duration
	cron      *gronx.Gronx
}

// NewSweeper returns a sweeper. schedule is a cron expression checked once
// per minute; retention of zero disables sweeping entirely.
func NewSweeper(st *AuditStore, schedule string, retention time.Duration) *Sweeper {
	return &Sweeper{
		store:     st,
		schedule:  schedule,
		retention: retention,
		cron:      gronx.New(),
	}
}

// Run blocks until ctx is cancelled, purging whenever the schedule is due.
func (s *Sweeper) Run(ctx context.Context) {
	if s.retention <= 0 || s.schedule == "" {
		return
	}
	if !s.cron.IsValid(s.schedule) {
		slog.Error("invalid audit sweep schedule, retention disabled", "schedule", s.schedule)
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			due, err := s.cron.IsDue(s.schedule, now)
			if err != nil || !due {
				continue
			}
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	purged, err := s.store.Purge(ctx, cutoff)
	if err != nil {
		slog.Warn("audit sweep failed", "error", err)
		return
	}
	if purged > 0 {
		slog.Info("audit entries purged", "count", purged, "cutoff", cutoff.UTC().Format(time.RFC3339))
	}
}
