package handlers

import (
	"github.com/sabordigital/zappedido/internal/messages"
)

// NewTrackingOrder reports the backend order status on every ping and closes
// the conversation once the order is delivered.
func NewTrackingOrder(d Deps) Handler {
	return func(c Context) error {
		conv, err := getConversation(c, d)
		if err != nil {
			return err
		}
		if conv.Context.OrderID == "" {
			return resetToIdle(c, d)
		}

		status, err := d.Backend.GetOrderStatus(c.Ctx(), conv.Context.OrderID)
		if err != nil {
			return c.Send(messages.GenericError)
		}

		if status == "delivered" {
			if err := d.FSM.Clear(c.Ctx(), c.UserID()); err != nil && d.Log != nil {
				d.Log.Warn("failed to clear delivered conversation", "phone", c.UserID(), "error", err)
			}
			return c.Send(messages.DeliveredThanks)
		}

		return c.Send(messages.OrderStatus(status))
	}
}
