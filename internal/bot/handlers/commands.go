package handlers

import (
	"errors"

	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/messages"
)

// NewCancel aborts the current conversation from any state. Any active payment
// watch is stopped so no stale callback fires later.
func NewCancel(d Deps) Handler {
	return func(c Context) error {
		conv, err := d.FSM.Get(c.Ctx(), c.UserID())
		if err == nil && conv != nil && conv.Context.OrderID != "" && d.Poller != nil {
			d.Poller.Cancel(conv.Context.OrderID)
		}

		if err := d.FSM.Clear(c.Ctx(), c.UserID()); err != nil && !errors.Is(err, conversation.ErrNotFound) {
			return err
		}

		return c.Send(messages.Cancelled)
	}
}

// NewHelp lists the available commands.
func NewHelp(d Deps) Handler {
	return func(c Context) error {
		return c.Send(messages.Help)
	}
}

// NewMenuLink sends the digital menu link. From customer_support the command
// also closes the hand-off, as promised by the waiting message.
func NewMenuLink(d Deps) Handler {
	return func(c Context) error {
		conv, err := d.FSM.Get(c.Ctx(), c.UserID())
		if err == nil && conv != nil && conv.CurrentState == conversation.StateCustomerSupport {
			if err := d.FSM.Clear(c.Ctx(), c.UserID()); err != nil && !errors.Is(err, conversation.ErrNotFound) {
				return err
			}
			return c.Send(messages.MainMenu + "\n\n" + messages.Menu(d.MenuURL))
		}

		return c.Send(messages.Menu(d.MenuURL))
	}
}

// NewStatus reports the current order status from any state.
func NewStatus(d Deps) Handler {
	return func(c Context) error {
		conv, err := getConversation(c, d)
		if err != nil {
			return err
		}

		if conv.Context.OrderID == "" {
			return c.Send(messages.NoActiveOrder)
		}

		if conv.CurrentState == conversation.StateWaitingPayment {
			return c.Send(messages.WaitingPayment)
		}

		status, err := d.Backend.GetOrderStatus(c.Ctx(), conv.Context.OrderID)
		if err != nil {
			return c.Send(messages.GenericError)
		}

		return c.Send(messages.OrderStatus(status))
	}
}

// NewSupport escalates to a human agent from any state.
func NewSupport(d Deps) Handler {
	return func(c Context) error {
		if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateCustomerSupport, nil); err != nil {
			return err
		}
		return c.Send(messages.Escalated)
	}
}
