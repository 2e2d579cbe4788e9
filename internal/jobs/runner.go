// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/college-admin/internal/logging"
)

const defaultJobTimeout = 5 * time.Minute

// NotificationPurger deletes read notifications older than a retention period.
type NotificationPurger interface {
	PurgeRead(ctx context.Context, olderThan time.Duration) (int, error)
}

// Runner owns the cron scheduler of the process.
type Runner struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

// NewRunner builds a runner that evaluates cron specs in loc.
func NewRunner(loc *time.Location, logger *slog.Logger) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "jobs")
	adapter := cronLogger{logger: logger}
	return &Runner{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		logger:  logger,
		timeout: defaultJobTimeout,
	}
}

// AddNotificationPurge registers the retention purge under spec.
func (r *Runner) AddNotificationPurge(spec string, purger NotificationPurger, retention time.Duration) (cron.EntryID, error) {
	if purger == nil {
		return 0, fmt.Errorf("notification purger is required")
	}
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive")
	}
	id, err := r.cron.AddFunc(spec, r.notificationPurge(purger, retention))
	if err != nil {
		return 0, fmt.Errorf("add notification purge: %w", err)
	}
	r.logger.Info("job registered", "job", "notification_purge", "spec", spec, "retention", retention.String())
	return id, nil
}

func (r *Runner) notificationPurge(purger NotificationPurger, retention time.Duration) func() {
	return func() {
		logger := r.logger.With("job", "notification_purge")
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		ctx = logging.ContextWithLogger(ctx, logger)

		started := time.Now()
		deleted, err := purger.PurgeRead(ctx, retention)
		if err != nil {
			logger.ErrorContext(ctx, "job failed", "error", err)
			return
		}
		logger.InfoContext(ctx, "job completed", "deleted", deleted, "duration_ms", time.Since(started).Milliseconds())
	}
}

// Entries reports the registered jobs.
func (r *Runner) Entries() []cron.Entry {
	return r.cron.Entries()
}

// Start begins running jobs in the background.
func (r *Runner) Start() {
	r.cron.Start()
}

// Stop halts the scheduler and waits for running jobs until ctx ends.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
