package faultstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/logfields"
)

// Retention prunes journal entries older than maxAge on a fixed interval.
type Retention struct {
	scheduler gocron.Scheduler
	store     Store
	maxAge    time.Duration
	now       func() time.Time
}

// NewRetention schedules pruning of store every interval.
func NewRetention(store Store, maxAge, interval time.Duration) (*Retention, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create gocron scheduler").Build()
	}
	r := &Retention{scheduler: s, store: store, maxAge: maxAge, now: time.Now}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.run),
		gocron.WithName("fault-journal-retention"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create retention job").Build()
	}
	return r, nil
}

// Start begins the schedule.
func (r *Retention) Start() {
	slog.Info("Starting fault journal retention", slog.Duration("max_age", r.maxAge))
	r.scheduler.Start()
}

// Stop shuts the scheduler down.
func (r *Retention) Stop() error {
	return r.scheduler.Shutdown()
}

// PruneNow deletes entries older than maxAge.
func (r *Retention) PruneNow(ctx context.Context) (int64, error) {
	return r.store.Prune(ctx, r.now().Add(-r.maxAge))
}

func (r *Retention) run() {
	n, err := r.PruneNow(context.Background())
	if err != nil {
		slog.Error("Fault journal pruning failed", logfields.Error(err))
		return
	}
	if n > 0 {
		slog.Info("Pruned fault journal", slog.Int64("removed", n))
	}
}
