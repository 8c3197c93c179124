package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// FollowUps enqueues delayed follow-up nudges after order confirmation.
type FollowUps struct {
	manager Manager
	delay   time.Duration
	log     *slog.Logger
}

// NewFollowUps builds the scheduler. delay <= 0 defaults to 20 minutes.
func NewFollowUps(manager Manager, delay time.Duration, log *slog.Logger) *FollowUps {
	if log == nil {
		log = slog.Default()
	}
	if delay <= 0 {
		delay = 20 * time.Minute
	}

	return &FollowUps{manager: manager, delay: delay, log: log}
}

// ScheduleFollowUp enqueues the nudge for processing after the delay.
func (f *FollowUps) ScheduleFollowUp(ctx context.Context, phone, orderID string) error {
	task, err := NewOrderFollowUpTask(phone, orderID)
	if err != nil {
		return err
	}

	if _, err := f.manager.Enqueue(ctx, task, asynq.ProcessIn(f.delay)); err != nil {
		f.log.Error("failed to enqueue follow-up", slog.String("phone", phone), slog.Any("error", err))
		return err
	}

	return nil
}
