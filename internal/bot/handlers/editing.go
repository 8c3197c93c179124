package handlers

import (
	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/messages"
	"github.com/sabordigital/zappedido/internal/order"
	"github.com/sabordigital/zappedido/internal/validation"
	"github.com/sabordigital/zappedido/pkg/metrics"
)

// NewEditingOrder replaces the cart with a freshly sent summary, or returns to
// review unchanged on "voltar".
func NewEditingOrder(d Deps) Handler {
	return func(c Context) error {
		conv, err := getConversation(c, d)
		if err != nil {
			return err
		}

		text := validation.Sanitize(c.Text())

		if isBack(text) {
			if conv.Context.Order == nil {
				return resetToIdle(c, d)
			}
			if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateConfirmingOrder, nil); err != nil {
				return err
			}
			return c.Send(messages.OrderConfirmation(conv.Context.Order))
		}

		if order.LooksLikeSummary(text) {
			draft, err := order.ParseSummary(text)
			if err != nil {
				metrics.RecordValidationFailure("cart_summary")
				return retryOrEscalate(c, d, messages.SummaryNotUnderstood)
			}

			merge := &conversation.Context{Order: draft}
			if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateConfirmingOrder, merge); err != nil {
				return err
			}
			return c.Send(messages.OrderConfirmation(draft))
		}

		return retryOrEscalate(c, d, messages.AskOrderEdit)
	}
}
