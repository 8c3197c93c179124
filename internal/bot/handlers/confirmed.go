package handlers

import (
	"strings"

	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/messages"
	"github.com/sabordigital/zappedido/internal/order"
	"github.com/sabordigital/zappedido/internal/validation"
	"github.com/sabordigital/zappedido/pkg/metrics"
)

// NewOrderConfirmed handles the post-confirmation state: tracking requests
// move to tracking_order, a new cart summary starts the next order.
func NewOrderConfirmed(d Deps) Handler {
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

		if wantsTracking(text) {
			conv, err := getConversation(c, d)
			if err != nil {
				return err
			}
			if conv.Context.OrderID == "" {
				return resetToIdle(c, d)
			}

			if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateTrackingOrder, nil); err != nil {
				return err
			}

			status, err := d.Backend.GetOrderStatus(c.Ctx(), conv.Context.OrderID)
			if err != nil {
				return c.Send(messages.GenericError)
			}
			return c.Send(messages.OrderStatus(status))
		}

		return c.Send(messages.OrderConfirmedHint)
	}
}

func wantsTracking(text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	return strings.Contains(lowered, "acompanhar") ||
		strings.Contains(lowered, "rastrear") ||
		strings.Contains(lowered, "cadê") ||
		strings.Contains(lowered, "cade")
}
