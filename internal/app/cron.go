package app

import (
	"context"
	"time"

	"github.com/foliohq/core/internal/modules/stats/analyze"
	pkgcron "github.com/foliohq/core/internal/pkg/cron"
	"github.com/foliohq/core/internal/pkg/ratelimit"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerCronJobs registers the scheduled background jobs. memStore is nil
// when rate limiting runs on Redis and there is nothing to sweep.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, memStore *ratelimit.MemoryStore, logger *zap.Logger) {
	cronLog := logger.Named("cron")

	mustRegister(sched, cronLog, pkgcron.Job{
		Name:        "cleanup_analytics",
		Description: "delete page-view events past the retention window",
		Interval:    24 * time.Hour,
		Run: func(ctx context.Context) error {
			deleted, err := analyze.CleanOld(db)
			if err != nil {
				cronLog.Warn("analytics cleanup failed", zap.Error(err))
				return err
			}
			cronLog.Info("analytics cleanup done", zap.Int64("deleted", deleted))
			return nil
		},
	})

	if memStore != nil {
		mustRegister(sched, cronLog, pkgcron.Job{
			Name:        "sweep_rate_limiter",
			Description: "drop expired rate-limit buckets",
			Interval:    10 * time.Minute,
			Run: func(ctx context.Context) error {
				swept := memStore.Sweep()
				if swept > 0 {
					cronLog.Debug("rate-limit sweep", zap.Int("removed", swept))
				}
				return nil
			},
		})
	}
}

func mustRegister(sched *pkgcron.Scheduler, log *zap.Logger, job pkgcron.Job) {
	if err := sched.Register(job); err != nil {
		log.Error("cron registration failed", zap.String("job", job.Name), zap.Error(err))
	}
}
