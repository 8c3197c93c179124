package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/messages"
)

var yesWords = map[string]struct{}{
	"sim": {}, "s": {}, "ok": {}, "confirmo": {}, "confirmar": {},
	"isso": {}, "pode confirmar": {}, "claro": {}, "👍": {}, "1": {},
}

var editWords = map[string]struct{}{
	"não": {}, "nao": {}, "n": {}, "editar": {}, "edita": {},
	"mudar": {}, "alterar": {}, "trocar": {}, "2": {},
}

func isYes(text string) bool {
	_, ok := yesWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func isEdit(text string) bool {
	_, ok := editWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// isCancelChoice matches option 3 of the confirmation menu. The word forms of
// cancel are global commands and never reach the state handlers.
func isCancelChoice(text string) bool {
	return strings.TrimSpace(text) == "3"
}

func isBack(text string) bool {
	word := strings.ToLower(strings.TrimSpace(text))
	return word == "voltar" || word == "volta"
}

// getConversation loads the sender's conversation, defaulting to a fresh idle
// record when none exists.
func getConversation(c Context, d Deps) (*conversation.Conversation, error) {
	conv, err := d.FSM.Get(c.Ctx(), c.UserID())
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			return &conversation.Conversation{
				UserID:       c.UserID(),
				CurrentState: conversation.StateIdle,
			}, nil
		}
		return nil, err
	}

	return conv, nil
}

// retryOrEscalate re-prompts after invalid input and hands the conversation
// over to a human after too many consecutive failures.
func retryOrEscalate(c Context, d Deps, prompt string) error {
	count, err := d.FSM.IncrementRetry(c.Ctx(), c.UserID())
	if err != nil {
		return err
	}

	if count >= d.MaxRetries {
		if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateCustomerSupport, nil); err != nil {
			return err
		}
		return c.Send(messages.Escalated)
	}

	return c.Send(prompt)
}

// resetToIdle drops a conversation whose context lost required data.
func resetToIdle(c Context, d Deps) error {
	if err := d.FSM.Clear(c.Ctx(), c.UserID()); err != nil && !errors.Is(err, conversation.ErrNotFound) {
		return err
	}
	return c.Send(messages.NoActiveOrder)
}

func (d Deps) notify(ctx context.Context, phone, text string) {
	if d.Sender == nil {
		return
	}
	if err := d.Sender.SendText(ctx, phone, text); err != nil && d.Log != nil {
		d.Log.Error("failed to send notification", slog.String("phone", phone), slog.Any("error", err))
	}
}
