package auditlog

import (
	"context"
	"time"

	"smallbiznis-license/pkg/task"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler enqueues one purge task per day at a fixed hour.
type Scheduler struct {
	enqueuer task.Enqueuer
	hour     int
	location *time.Location
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(enqueuer task.Enqueuer, hour int, location *time.Location) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{enqueuer: enqueuer, hour: hour, location: location}
}

func (s *Scheduler) register(lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			s.cancel = cancel
			s.done = make(chan struct{})
			go s.run(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.cancel()
			select {
			case <-s.done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	zap.L().Info("[Scheduler] started activation log purge scheduler", zap.Int("hour", s.hour))

	for {
		now := time.Now().In(s.location)
		next := nextRunTime(now, s.hour, 0)

		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", next.Sub(now)),
		)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-timer.C:
			s.runDaily(ctx)
		case <-ctx.Done():
			timer.Stop()
			zap.L().Info("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context) {
	t, err := NewPurgeTask(PurgePayload{})
	if err != nil {
		zap.L().Error("[Scheduler] failed to build purge task", zap.Error(err))
		return
	}

	info, err := s.enqueuer.Enqueue(ctx, t, asynq.Unique(time.Hour))
	if err != nil {
		zap.L().Error("[Scheduler] failed to enqueue purge task", zap.Error(err))
		return
	}

	zap.L().Info("[Scheduler] enqueued purge task", zap.String("task_id", info.ID))
}

// nextRunTime returns the next hour:minute strictly after now, in now's location.
func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
