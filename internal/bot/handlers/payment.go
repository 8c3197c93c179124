package handlers

import (
	"context"
	"errors"

	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/messages"
	"github.com/sabordigital/zappedido/internal/order"
	"github.com/sabordigital/zappedido/internal/payment"
	"github.com/sabordigital/zappedido/internal/validation"
	"github.com/sabordigital/zappedido/pkg/metrics"
)

var errIncompleteOrder = errors.New("conversation context is missing order data")

// NewSelectingPayment matches the chosen payment method. Digital methods get a
// payment link and move to waiting_payment; on-delivery methods confirm the
// order immediately. Cash has a change sub-step first.
func NewSelectingPayment(d Deps) Handler {
	return func(c Context) error {
		conv, err := getConversation(c, d)
		if err != nil {
			return err
		}
		if conv.Context.Order == nil {
			return resetToIdle(c, d)
		}

		if pay := conv.Context.Payment; pay != nil && pay.AwaitingChange {
			return collectChange(c, d, conv, pay)
		}

		opt, ok := payment.MatchOption(c.Text())
		if !ok {
			metrics.RecordValidationFailure("payment_option")
			return retryOrEscalate(c, d, payment.MenuText())
		}

		pay := &conversation.PaymentInfo{Type: opt.Type, Gateway: opt.Gateway, Label: opt.Label}

		if opt.Type == payment.TypeCash {
			pay.AwaitingChange = true
			if err := d.FSM.MergeContext(c.Ctx(), c.UserID(), &conversation.Context{Payment: pay}); err != nil {
				return err
			}
			return c.Send(messages.AskPaymentChange)
		}

		if !opt.Digital {
			return confirmOnDelivery(c, d, conv, pay, "")
		}

		return startDigitalPayment(c, d, conv, pay)
	}
}

func collectChange(c Context, d Deps, conv *conversation.Conversation, pay *conversation.PaymentInfo) error {
	change, err := validation.ParseChange(c.Text(), conv.Context.Order.Total)
	if err != nil {
		if validation.IsFieldError(err) {
			metrics.RecordValidationFailure("change_amount")
			return retryOrEscalate(c, d, err.Error())
		}
		return err
	}

	pay.AwaitingChange = false
	pay.ChangeFor = change

	return confirmOnDelivery(c, d, conv, pay, messages.CashChangeConfirmed(messages.Money(change)))
}

// confirmOnDelivery creates the order in the backend and confirms right away,
// skipping the payment wait.
func confirmOnDelivery(c Context, d Deps, conv *conversation.Conversation, pay *conversation.PaymentInfo, prefix string) error {
	orderID, err := ensureOrder(c.Ctx(), d, c.UserID(), conv, pay)
	if err != nil {
		if errors.Is(err, errIncompleteOrder) {
			return resetToIdle(c, d)
		}
		return c.Send(messages.OrderCreateFailed)
	}

	merge := &conversation.Context{Payment: pay, OrderID: orderID}
	if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateOrderConfirmed, merge); err != nil {
		return err
	}

	metrics.RecordPayment("on_delivery", "confirmed")
	finishOrder(d, c.Ctx(), c.UserID(), orderID)

	text := messages.OnDeliveryConfirmed(pay.Label)
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	return c.Send(text)
}

// startDigitalPayment creates the order, generates the payment link and starts
// the status poller.
func startDigitalPayment(c Context, d Deps, conv *conversation.Conversation, pay *conversation.PaymentInfo) error {
	orderID, err := ensureOrder(c.Ctx(), d, c.UserID(), conv, pay)
	if err != nil {
		if errors.Is(err, errIncompleteOrder) {
			return resetToIdle(c, d)
		}
		return c.Send(messages.OrderCreateFailed)
	}

	link, err := d.Links.GenerateLink(c.Ctx(), payment.LinkRequest{
		OrderID: orderID,
		Gateway: pay.Gateway,
		Method:  pay.Type,
		Amount:  conv.Context.Order.Total,
	})
	if err != nil {
		metrics.RecordPayment(pay.Gateway, "link_failed")
		return c.Send(messages.PaymentLinkFailed)
	}

	merge := &conversation.Context{Payment: pay, OrderID: orderID}
	if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateWaitingPayment, merge); err != nil {
		return err
	}

	if d.Poller != nil {
		d.Poller.Watch(context.Background(), orderID, paymentOutcome(d, c.UserID()))
	}

	return c.Send(messages.PaymentLink(link.URL, link.QRCode) + "\n\n" + messages.WaitingPayment)
}

// ensureOrder creates the backend order once, reusing the stored ID when the
// user retries after a link failure.
func ensureOrder(ctx context.Context, d Deps, phone string, conv *conversation.Conversation, pay *conversation.PaymentInfo) (string, error) {
	if conv.Context.OrderID != "" {
		return conv.Context.OrderID, nil
	}

	cctx := conv.Context
	if cctx.Order == nil || cctx.Personal == nil || cctx.Address == nil {
		return "", errIncompleteOrder
	}

	req := order.CreateRequest{
		CustomerPhone: phone,
		CustomerName:  cctx.Personal.Name,
		CustomerEmail: cctx.Personal.Email,
		Address:       cctx.Address.Address,
		Items:         cctx.Order.Items,
		Subtotal:      cctx.Order.Subtotal,
		DeliveryFee:   cctx.Order.DeliveryFee,
		Total:         cctx.Order.Total,
		PaymentType:   pay.Type,
		PaymentLabel:  pay.Label,
		ChangeFor:     pay.ChangeFor,
	}

	orderID, err := d.Backend.CreateOrder(ctx, req)
	if err != nil {
		return "", err
	}

	if err := d.FSM.MergeContext(ctx, phone, &conversation.Context{OrderID: orderID}); err != nil && d.Log != nil {
		d.Log.Warn("failed to store order id", "phone", phone, "error", err)
	}

	return orderID, nil
}

// finishOrder runs the post-confirmation bookkeeping: profile counter and the
// delayed follow-up nudge.
func finishOrder(d Deps, ctx context.Context, phone, orderID string) {
	if d.Customers != nil {
		if err := d.Customers.RecordOrder(ctx, phone); err != nil && d.Log != nil {
			d.Log.Warn("failed to record order on profile", "phone", phone, "error", err)
		}
	}

	if d.FollowUps != nil {
		if err := d.FollowUps.ScheduleFollowUp(ctx, phone, orderID); err != nil && d.Log != nil {
			d.Log.Warn("failed to schedule follow-up", "phone", phone, "error", err)
		}
	}
}

// paymentOutcome applies a terminal poll result to the conversation. It runs
// outside any inbound message, so replies go through the Sender.
func paymentOutcome(d Deps, phone string) func(payment.Result) {
	return func(r payment.Result) {
		ctx := context.Background()

		gateway := ""
		orderID := ""
		if conv, err := d.FSM.Get(ctx, phone); err == nil && conv != nil {
			if conv.Context.Payment != nil {
				gateway = conv.Context.Payment.Gateway
			}
			orderID = conv.Context.OrderID
		}

		switch r {
		case payment.ResultApproved:
			metrics.RecordPayment(gateway, "approved")
			if err := d.FSM.Transition(ctx, phone, conversation.StateOrderConfirmed, nil); err != nil {
				if d.Log != nil {
					d.Log.Error("failed to confirm paid order", "phone", phone, "error", err)
				}
				return
			}
			finishOrder(d, ctx, phone, orderID)
			d.notify(ctx, phone, messages.PaymentApproved)

		case payment.ResultRejected:
			metrics.RecordPayment(gateway, "rejected")
			if err := d.FSM.Transition(ctx, phone, conversation.StateSelectingPayment, nil); err != nil {
				return
			}
			d.notify(ctx, phone, messages.PaymentRejected+"\n\n"+payment.MenuText())

		case payment.ResultTimeout:
			metrics.RecordPayment(gateway, "timeout")
			if err := d.FSM.Transition(ctx, phone, conversation.StateCustomerSupport, nil); err != nil {
				return
			}
			d.notify(ctx, phone, messages.PaymentTimeout)
		}
	}
}
