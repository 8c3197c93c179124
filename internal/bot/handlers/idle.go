package handlers

import (
	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/messages"
	"github.com/sabordigital/zappedido/internal/order"
	"github.com/sabordigital/zappedido/internal/validation"
	"github.com/sabordigital/zappedido/pkg/metrics"
)

// NewIdle waits for a cart summary. Anything that looks like one starts a new
// order; everything else gets the main menu.
func NewIdle(d Deps) Handler {
	return func(c Context) error {
		text := validation.Sanitize(c.Text())

		if order.LooksLikeSummary(text) {
			draft, err := order.ParseSummary(text)
			if err != nil {
				metrics.RecordValidationFailure("cart_summary")
				return c.Send(messages.SummaryNotUnderstood)
			}

			data := &conversation.Context{Order: draft}
			if err := d.FSM.Begin(c.Ctx(), c.UserID(), conversation.StateConfirmingOrder, data); err != nil {
				return err
			}

			return c.Send(messages.OrderConfirmation(draft))
		}

		return c.Send(messages.Greeting(c.ProfileName()) + "\n\n" + messages.MainMenu)
	}
}
