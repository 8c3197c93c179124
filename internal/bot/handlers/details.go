package handlers

import (
	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/messages"
	"github.com/sabordigital/zappedido/internal/validation"
	"github.com/sabordigital/zappedido/pkg/metrics"
)

// NewProvidingDetails collects name and e-mail, one sub-step per message.
func NewProvidingDetails(d Deps) Handler {
	return func(c Context) error {
		conv, err := getConversation(c, d)
		if err != nil {
			return err
		}

		personal := conv.Context.Personal
		if personal == nil || personal.Name == "" {
			return collectName(c, d)
		}

		return collectEmail(c, d, personal.Name)
	}
}

func collectName(c Context, d Deps) error {
	name, err := validation.ValidateName(validation.Sanitize(c.Text()))
	if err != nil {
		if validation.IsFieldError(err) {
			metrics.RecordValidationFailure("name")
			return retryOrEscalate(c, d, err.Error())
		}
		return err
	}

	merge := &conversation.Context{Personal: &conversation.PersonalInfo{Name: name.Full}}
	if err := d.FSM.MergeContext(c.Ctx(), c.UserID(), merge); err != nil {
		return err
	}

	return c.Send(messages.AskEmail)
}

func collectEmail(c Context, d Deps, name string) error {
	email, err := validation.ValidateEmail(c.Text())
	if err != nil {
		if validation.IsFieldError(err) {
			metrics.RecordValidationFailure("email")
			return retryOrEscalate(c, d, err.Error())
		}
		return err
	}

	merge := &conversation.Context{Personal: &conversation.PersonalInfo{Name: name, Email: email}}
	if err := d.FSM.Transition(c.Ctx(), c.UserID(), conversation.StateConfirmingAddress, merge); err != nil {
		return err
	}

	if d.Customers != nil {
		if err := d.Customers.RememberDetails(c.Ctx(), c.UserID(), name, email); err != nil && d.Log != nil {
			d.Log.Warn("failed to save customer details", "phone", c.UserID(), "error", err)
		}
	}

	return c.Send(messages.AskAddress)
}
