package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Worker processes queued tasks: follow-up messages and conversation cleanup.
type Worker interface {
	RegisterHandler(taskType string, handler asynq.Handler)
	Run() error
	Shutdown()
}

type worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

var _ Worker = (*worker)(nil)

// NewWorker constructs a Worker consuming the given queues with their weights.
func NewWorker(redisOpt asynq.RedisConnOpt, queues map[string]int, log *slog.Logger) Worker {
	if log == nil {
		log = slog.Default()
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Queues:      queues,
		Concurrency: 10,
	})

	mux := asynq.NewServeMux()
	mux.Use(taskLogging(log))

	return &worker{
		server: server,
		mux:    mux,
		log:    log,
	}
}

// RegisterHandler wires a task type to the provided handler.
func (w *worker) RegisterHandler(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

// Run starts the processing loop and blocks until Shutdown.
func (w *worker) Run() error {
	w.log.Info("jobs worker starting")
	return w.server.Run(w.mux)
}

// Shutdown drains in-flight tasks and stops the worker.
func (w *worker) Shutdown() {
	w.log.Info("jobs worker shutting down")
	w.server.Shutdown()
}

func taskLogging(log *slog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			start := time.Now()
			err := next.ProcessTask(ctx, task)
			if err != nil {
				log.Error("task failed",
					slog.String("type", task.Type()),
					slog.Duration("elapsed", time.Since(start)),
					slog.Any("error", err),
				)
				return err
			}

			log.Info("task processed",
				slog.String("type", task.Type()),
				slog.Duration("elapsed", time.Since(start)),
			)
			return nil
		})
	}
}
