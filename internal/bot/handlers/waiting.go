package handlers

import (
	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/messages"
	"github.com/sabordigital/zappedido/internal/order"
	"github.com/sabordigital/zappedido/internal/payment"
	"github.com/sabordigital/zappedido/pkg/metrics"
)

// NewWaitingPayment answers pings while a digital payment is pending. A user
// message triggers an immediate status check so an already-approved payment
// does not wait for the next poll tick.
func NewWaitingPayment(d Deps) Handler {
	return func(c Context) error {
		conv, err := getConversation(c, d)
		if err != nil {
			return err
		}
		if conv.Context.OrderID == "" {
			return resetToIdle(c, d)
		}

		status, err := d.Backend.GetPaymentStatus(c.Ctx(), conv.Context.OrderID)
		if err != nil {
			// poller keeps watching, just reassure the user
			return c.Send(messages.WaitingPayment)
		}

		gateway := ""
		if conv.Context.Payment != nil {
			gateway = conv.Context.Payment.Gateway
		}

		switch status {
		case order.PaymentApproved:
			if d.Poller != nil {
				d.Poller.Cancel(conv.Context.OrderID)
			}
			metrics.RecordPayment(gateway, "approved")
			if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateOrderConfirmed, nil); err != nil {
				return err
			}
			finishOrder(d, c.Ctx(), c.UserID(), conv.Context.OrderID)
			return c.Send(messages.PaymentApproved)

		case order.PaymentRejected:
			if d.Poller != nil {
				d.Poller.Cancel(conv.Context.OrderID)
			}
			metrics.RecordPayment(gateway, "rejected")
			if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateSelectingPayment, nil); err != nil {
				return err
			}
			return c.Send(messages.PaymentRejected + "\n\n" + payment.MenuText())

		default:
			return c.Send(messages.WaitingPayment)
		}
	}
}
