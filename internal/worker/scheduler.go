package worker

// scheduler.go
// Cron jobs for alert housekeeping: requeue alerts whose retry time has come
// and sweep for products close to their expiration date.

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// AlertSweeper is the part of the alert service the scheduler drives.
type AlertSweeper interface {
	RequeueDue(ctx context.Context) (int, error)
	SweepExpiring(ctx context.Context) (int, error)
}

// SchedulerConfig holds cron specs in robfig/cron syntax ("@every 1m", "0 6 * * *").
type SchedulerConfig struct {
	RetrySchedule  string
	ExpirySchedule string
}

// StartScheduler registers the jobs and starts the cron runner. The runner
// stops when ctx is cancelled; running jobs are allowed to finish.
func StartScheduler(ctx context.Context, alerts AlertSweeper, cfg SchedulerConfig) (*cron.Cron, error) {
	c := cron.New()

	if _, err := c.AddFunc(cfg.RetrySchedule, func() {
		n, err := alerts.RequeueDue(ctx)
		if err != nil {
			log.Error().Err(err).Msg("scheduler: alert requeue failed")
			return
		}
		if n > 0 {
			log.Info().Int("count", n).Msg("scheduler: alerts requeued")
		}
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(cfg.ExpirySchedule, func() {
		if _, err := alerts.SweepExpiring(ctx); err != nil {
			log.Error().Err(err).Msg("scheduler: expiry sweep failed")
		}
	}); err != nil {
		return nil, err
	}

	c.Start()
	log.Info().
		Str("retry", cfg.RetrySchedule).
		Str("expiry", cfg.ExpirySchedule).
		Msg("scheduler: started")

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		log.Info().Msg("scheduler: stopped")
	}()
	return c, nil
}
