package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sabordigital/zappedido/internal/conversation"
)

// CleanupHandler clears conversations idle beyond the session TTL.
type CleanupHandler struct {
	cleaner *conversation.Cleaner
	log     *slog.Logger
}

func NewCleanupHandler(cleaner *conversation.Cleaner, log *slog.Logger) *CleanupHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CleanupHandler{cleaner: cleaner, log: log}
}

func (h *CleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	h.log.InfoContext(ctx, "running conversation cleanup sweep")
	h.cleaner.Sweep(ctx)
	return nil
}
