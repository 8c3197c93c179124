package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Manager enqueues background tasks: follow-up nudges and scheduled cleanups.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type manager struct {
	client *asynq.Client
	log    *slog.Logger
}

// NewManager builds a Manager backed by an asynq client.
func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		client: asynq.NewClient(redisOpt),
		log:    log,
	}
}

func (m *manager) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		m.log.Error("failed to enqueue task", slog.String("type", task.Type()), slog.Any("error", err))
		return nil, err
	}

	m.log.Debug("task enqueued",
		slog.String("type", task.Type()),
		slog.String("id", info.ID),
		slog.String("queue", info.Queue),
	)

	return info, nil
}

func (m *manager) Close() error {
	return m.client.Close()
}
