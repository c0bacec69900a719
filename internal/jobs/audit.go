package jobs

import (
	"context"
	"errors"
	"log/slog"

	"collectorhub/internal/middleware"
	"collectorhub/internal/observability"
	"collectorhub/internal/repository"

	"gorm.io/gorm"
)

// AuditReport summarizes one counter audit pass.
type AuditReport struct {
	Scanned          int
	PostsRepaired    int
	CommentsRepaired int64
}

// CounterAuditor recomputes post and comment counters from the vote ledger
// and repairs rows that drifted. It never runs on the request path.
type CounterAuditor struct {
	posts repository.PostRepository
	batch int
}

func NewCounterAuditor(posts repository.PostRepository, batch int) *CounterAuditor {
	if batch <= 0 {
		batch = 200
	}
	return &CounterAuditor{posts: posts, batch: batch}
}

// Run audits every post in id order. Posts deleted mid-run are skipped.
func (a *CounterAuditor) Run(ctx context.Context) (*AuditReport, error) {
	report := &AuditReport{}
	var after uint
	for {
		ids, err := a.posts.ListIDsAfter(ctx, after, a.batch)
		if err != nil {
			return report, err
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			repair, err := a.posts.ReconcileCounters(ctx, id)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return report, err
			}
			report.Scanned++
			if repair.PostRepaired {
				report.PostsRepaired++
				middleware.Logger.WarnContext(ctx, "post counters drifted from ledger", slog.Uint64("post_id", uint64(id)))
			}
			report.CommentsRepaired += repair.CommentsRepaired
		}
		after = ids[len(ids)-1]
	}

	observability.CounterDrift.WithLabelValues("posts").Add(float64(report.PostsRepaired))
	observability.CounterDrift.WithLabelValues("comments").Add(float64(report.CommentsRepaired))
	return report, nil
}

// Job adapts Run for the scheduler.
func (a *CounterAuditor) Job() Job {
	return func(ctx context.Context) error {
		report, err := a.Run(ctx)
		if err != nil {
			return err
		}
		middleware.Logger.InfoContext(ctx, "counter audit complete",
			slog.Int("scanned", report.Scanned),
			slog.Int("posts_repaired", report.PostsRepaired),
			slog.Int64("comments_repaired", report.CommentsRepaired),
		)
		return nil
	}
}
