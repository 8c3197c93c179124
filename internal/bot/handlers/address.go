package handlers

import (
	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/messages"
	"github.com/sabordigital/zappedido/internal/payment"
	"github.com/sabordigital/zappedido/internal/validation"
	"github.com/sabordigital/zappedido/pkg/metrics"
)

// NewConfirmingAddress validates the delivery address, applies the delivery
// fee to the draft and moves on to payment selection.
func NewConfirmingAddress(d Deps) Handler {
	return func(c Context) error {
		conv, err := getConversation(c, d)
		if err != nil {
			return err
		}
		draft := conv.Context.Order
		if draft == nil {
			return resetToIdle(c, d)
		}

		addr, err := validation.ValidateAddress(validation.Sanitize(c.Text()))
		if err != nil {
			if validation.IsFieldError(err) {
				metrics.RecordValidationFailure("address")
				return retryOrEscalate(c, d, err.Error())
			}
			return err
		}

		fee := d.Fees.Fee(draft.Subtotal)
		draft.ApplyDeliveryFee(fee)

		merge := &conversation.Context{
			Order: draft,
			Address: &conversation.AddressInfo{
				Address:     addr.Raw,
				Valid:       true,
				DeliveryFee: draft.DeliveryFee,
			},
		}
		if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateSelectingPayment, merge); err != nil {
			return err
		}

		if d.Customers != nil {
			if err := d.Customers.RememberAddress(c.Ctx(), c.UserID(), addr.Raw); err != nil && d.Log != nil {
				d.Log.Warn("failed to save customer address", "phone", c.UserID(), "error", err)
			}
		}

		return c.Send(messages.OrderTotals(draft) + "\n\n" + payment.MenuText())
	}
}
