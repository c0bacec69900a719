// Package jobs runs periodic maintenance in the server process.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"collectorhub/internal/middleware"
	"collectorhub/internal/observability"

	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler wraps cron with logging, metrics and a per-run timeout.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler whose runs are cancelled after timeout.
func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add schedules job under spec, which accepts standard five-field cron
// expressions and descriptors such as @daily or @every 5m.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	middleware.Logger.Info("job scheduled", slog.String("job", name), slog.String("schedule", spec))
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := job(ctx)
	attrs := []any{slog.String("job", name), slog.Duration("duration", time.Since(start))}
	if err != nil {
		observability.JobRuns.WithLabelValues(name, "error").Inc()
		middleware.Logger.Error("job failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	observability.JobRuns.WithLabelValues(name, "ok").Inc()
	middleware.Logger.Info("job finished", attrs...)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
