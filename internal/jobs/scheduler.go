package jobs

import (
	"log/slog"

	"github.com/hibiken/asynq"
)

// stale conversations are swept twice per session TTL window
const cleanupSchedule = "@every 30m"

// Scheduler periodically enqueues the conversation cleanup task.
type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	log            *slog.Logger
}

// NewScheduler builds the periodic task scheduler.
func NewScheduler(redisOpt asynq.RedisConnOpt, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, nil),
		log:            log,
	}
}

// RegisterTasks wires the recurring tasks to their schedules.
func (s *scheduler) RegisterTasks() error {
	task, err := NewConversationCleanupTask()
	if err != nil {
		return err
	}

	entryID, err := s.asynqScheduler.Register(cleanupSchedule, task, asynq.Queue(QueueLow))
	if err != nil {
		return err
	}

	s.log.Info("scheduled conversation cleanup",
		slog.String("entry_id", entryID),
		slog.String("schedule", cleanupSchedule),
	)

	return nil
}

// Run starts the scheduler loop in the background.
func (s *scheduler) Run() {
	go func() {
		if err := s.asynqScheduler.Run(); err != nil {
			s.log.Error("scheduler stopped", slog.Any("error", err))
		}
	}()
}

// Shutdown stops the scheduler.
func (s *scheduler) Shutdown() {
	s.log.Info("scheduler shutting down")
	s.asynqScheduler.Shutdown()
}
