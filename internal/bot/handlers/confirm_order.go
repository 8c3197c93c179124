package handlers

import (
	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/messages"
)

// NewConfirmingOrder handles the cart review step. Returning customers with a
// saved profile skip straight to the address step.
func NewConfirmingOrder(d Deps) Handler {
	return func(c Context) error {
		conv, err := getConversation(c, d)
		if err != nil {
			return err
		}
		if conv.Context.Order == nil {
			return resetToIdle(c, d)
		}

		switch {
		case isYes(c.Text()):
			if merge, prompt := savedProfileShortcut(c, d); merge != nil {
				if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateConfirmingAddress, merge); err != nil {
					return err
				}
				return c.Send(prompt)
			}

			if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateProvidingDetails, nil); err != nil {
				return err
			}
			return c.Send(messages.AskName)

		case isEdit(c.Text()):
			if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateEditingOrder, nil); err != nil {
				return err
			}
			return c.Send(messages.AskOrderEdit)

		case isCancelChoice(c.Text()):
			return NewCancel(d)(c)

		default:
			return retryOrEscalate(c, d, messages.ConfirmOrderRetry)
		}
	}
}

// savedProfileShortcut returns the context to merge and the address prompt when
// the customer already has complete saved details.
func savedProfileShortcut(c Context, d Deps) (*conversation.Context, string) {
	if d.Customers == nil {
		return nil, ""
	}

	cust, err := d.Customers.GetOrCreate(c.Ctx(), c.UserID())
	if err != nil || !cust.HasSavedDetails() {
		return nil, ""
	}

	merge := &conversation.Context{
		Personal: &conversation.PersonalInfo{Name: cust.FullName, Email: cust.Email},
	}

	if cust.LastAddress != "" {
		return merge, messages.SavedAddressPrompt(cust.LastAddress)
	}
	return merge, messages.AskAddress
}
