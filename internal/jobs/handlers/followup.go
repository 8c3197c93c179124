// Package handlers contains asynq task handlers.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sabordigital/zappedido/internal/bot/handlers"
	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/jobs"
	"github.com/sabordigital/zappedido/internal/messages"
)

// FollowUpHandler sends the preparation nudge for confirmed orders. The nudge
// is skipped when the user has since cancelled or moved on.
type FollowUpHandler struct {
	fsm    conversation.Machine
	sender handlers.Sender
	log    *slog.Logger
}

func NewFollowUpHandler(fsm conversation.Machine, sender handlers.Sender, log *slog.Logger) *FollowUpHandler {
	if log == nil {
		log = slog.Default()
	}
	return &FollowUpHandler{fsm: fsm, sender: sender, log: log}
}

func (h *FollowUpHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.OrderFollowUpPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "follow-up: failed to decode payload", slog.Any("error", err))
		return err
	}

	conv, err := h.fsm.Get(ctx, payload.Phone)
	if err != nil || conv == nil {
		h.log.InfoContext(ctx, "follow-up: conversation gone, skipping", slog.String("phone", payload.Phone))
		return nil
	}

	if conv.CurrentState != conversation.StateOrderConfirmed && conv.CurrentState != conversation.StateTrackingOrder {
		h.log.InfoContext(ctx, "follow-up: user moved on, skipping",
			slog.String("phone", payload.Phone),
			slog.String("state", string(conv.CurrentState)),
		)
		return nil
	}

	if conv.Context.OrderID != payload.OrderID {
		return nil
	}

	return h.sender.SendText(ctx, payload.Phone, messages.FollowUp)
}
