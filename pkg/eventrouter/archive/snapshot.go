package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter"
	"github.com/randalmurphal/eventrouter/pkg/eventrouter/observability"
)

// DefaultSnapshotSchedule takes one snapshot a minute.
const DefaultSnapshotSchedule = "@every 1m"

// StatsSource is implemented by *eventrouter.Router.
type StatsSource interface {
	Stats() eventrouter.Stats
}

// Snapshotter periodically persists router statistics to a Store.
type Snapshotter struct {
	store  Store
	source StatsSource
	logger *slog.Logger
	cron   *cron.Cron
	retry  RetryPolicy
	now    func() time.Time
}

// SnapshotOption configures a Snapshotter.
type SnapshotOption func(*Snapshotter)

// WithRetry sets the policy scheduled snapshots use when the store fails.
// Snapshot itself never retries.
func WithRetry(p RetryPolicy) SnapshotOption {
	return func(s *Snapshotter) {
		s.retry = p
	}
}

// NewSnapshotter creates a snapshotter. Call Start to schedule it.
func NewSnapshotter(store Store, source StatsSource, logger *slog.Logger, opts ...SnapshotOption) *Snapshotter {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Snapshotter{
		store:  store,
		source: source,
		logger: logger,
		cron:   cron.New(),
		retry:  DefaultRetry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules snapshots using a standard cron expression or a
// descriptor such as "@every 30s".
func (s *Snapshotter) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSnapshotSchedule
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	s.logger.Info("stats snapshots scheduled", "schedule", schedule)
	return nil
}

func (s *Snapshotter) run() {
	attempts, err := withRetry(context.Background(), s.retry, s.Snapshot)
	if err != nil {
		observability.LogArchiveError(s.logger, "snapshot", err)
		return
	}
	if attempts > 1 {
		s.logger.Info("stats snapshot saved after retry", slog.Int("attempts", attempts))
	}
}

// Snapshot persists the current statistics immediately.
func (s *Snapshotter) Snapshot(ctx context.Context) error {
	data, err := json.Marshal(s.source.Stats())
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	return s.store.SaveSnapshot(ctx, Snapshot{TakenAt: s.now().UTC(), Data: data})
}

// Stop halts the schedule and waits for a running snapshot to finish, or
// for ctx to be done.
func (s *Snapshotter) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
