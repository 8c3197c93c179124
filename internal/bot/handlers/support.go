package handlers

import (
	"errors"

	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/messages"
)

// NewCustomerSupport holds the conversation for a human agent. The bot only
// steps back in when the user asks for the menu.
func NewCustomerSupport(d Deps) Handler {
	return func(c Context) error {
		if isBack(c.Text()) {
			if err := d.FSM.Clear(c.Ctx(), c.UserID()); err != nil && !errors.Is(err, conversation.ErrNotFound) {
				return err
			}
			return c.Send(messages.MainMenu)
		}

		return c.Send(messages.SupportWaiting)
	}
}
