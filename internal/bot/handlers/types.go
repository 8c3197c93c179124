// Package handlers contains the state handlers of the order conversation flow.
package handlers

import (
	"context"
	"log/slog"

	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/domain"
	"github.com/sabordigital/zappedido/internal/order"
	"github.com/sabordigital/zappedido/internal/payment"
)

// Context carries one inbound WhatsApp message through the middleware chain
// and into a state handler.
type Context interface {
	// Ctx is the request context of the inbound message.
	Ctx() context.Context
	// UserID is the sender's phone number.
	UserID() string
	// MessageID is the WhatsApp message identifier.
	MessageID() string
	// ProfileName is the sender's WhatsApp display name, possibly empty.
	ProfileName() string
	// Text is the message body.
	Text() string
	// Send replies to the sender.
	Send(text string) error
}

// Handler processes one inbound message.
type Handler func(c Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Sender pushes outbound messages outside the scope of an inbound message,
// for payment poll callbacks and follow-up jobs.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// FollowUpScheduler enqueues a delayed follow-up nudge after confirmation.
type FollowUpScheduler interface {
	ScheduleFollowUp(ctx context.Context, phone, orderID string) error
}

// CustomerDirectory looks up and updates returning-customer profiles.
type CustomerDirectory interface {
	GetOrCreate(ctx context.Context, phone string) (*domain.Customer, error)
	RememberDetails(ctx context.Context, phone, fullName, email string) error
	RememberAddress(ctx context.Context, phone, address string) error
	RecordOrder(ctx context.Context, phone string) error
}

// Deps bundles the services shared by the state handlers. Customers, Poller
// and FollowUps are optional; everything else is required.
type Deps struct {
	FSM        conversation.Machine
	Backend    order.Backend
	Links      payment.LinkRequestor
	Poller     *payment.Poller
	Customers  CustomerDirectory
	Fees       order.FeeCalculator
	Sender     Sender
	FollowUps  FollowUpScheduler
	MenuURL    string
	MaxRetries int
	Log        *slog.Logger
}
