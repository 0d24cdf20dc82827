package app

import (
	"context"
	"errors"
	"time"

	"github.com/nn1-dev/club-api/internal/pkg/cron"
	"github.com/nn1-dev/club-api/internal/pkg/outbox"
	"go.uber.org/zap"
)

const (
	pendingSubscriberTTL = 7 * 24 * time.Hour
	outboxRetention      = 3 * 24 * time.Hour
)

type subscriberReaper interface {
	DeleteExpiredSubscribers(ctx context.Context, cutoff time.Time) (int64, error)
}

// registerCronJobs registers the scheduled maintenance jobs.
// Outbox jobs are only registered when an outbox is configured.
func registerCronJobs(sched *cron.Scheduler, store subscriberReaper, ob *outbox.Outbox, mailer outbox.Mailer, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(cron.Job{
		Name:        "reap_unconfirmed_subscribers",
		Description: "Delete newsletter signups left unconfirmed for 7 days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := store.DeleteExpiredSubscribers(ctx, time.Now().Add(-pendingSubscriberTTL))
			if err != nil {
				return err
			}
			cronLogger.Info("reaped unconfirmed subscribers", zap.Int64("deleted", n))
			return nil
		},
	})

	if ob == nil {
		return
	}

	sched.Register(cron.Job{
		Name:        "retry_outbox",
		Description: "Resend notifications that failed to deliver",
		Interval:    10 * time.Minute,
		Fn: func(ctx context.Context) error {
			res, err := ob.Retry(ctx, mailer)
			if errors.Is(err, outbox.ErrBusy) {
				cronLogger.Debug("outbox retry skipped, another run holds the lock")
				return nil
			}
			if err != nil {
				return err
			}
			if res != (outbox.RetryResult{}) {
				cronLogger.Info("outbox retried",
					zap.Int("sent", res.Sent), zap.Int("failed", res.Failed), zap.Int("pending", res.Pending))
			}
			return nil
		},
	})

	sched.Register(cron.Job{
		Name:        "purge_outbox",
		Description: "Drop delivered and abandoned outbox entries",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := ob.Purge(ctx, time.Now().Add(-outboxRetention))
			if err != nil {
				return err
			}
			cronLogger.Info("outbox purged", zap.Int("deleted", n))
			return nil
		},
	})
}
