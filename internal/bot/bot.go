// Package bot wires the conversation flow: per-user serialization, global
// commands, state dispatch and the middleware chain.
package bot

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sabordigital/zappedido/internal/bot/handlers"
	"github.com/sabordigital/zappedido/internal/conversation"
	apperrors "github.com/sabordigital/zappedido/internal/errors"
	"github.com/sabordigital/zappedido/internal/idempotency"
	"github.com/sabordigital/zappedido/internal/ratelimit"
	"github.com/sabordigital/zappedido/internal/validation"
	"github.com/sabordigital/zappedido/pkg/config"
	"github.com/sabordigital/zappedido/pkg/metrics"
)

// Inbound is one text message received from the WhatsApp webhook.
type Inbound struct {
	From        string
	MessageID   string
	ProfileName string
	Text        string
}

// Bot is the conversational order-flow engine.
type Bot struct {
	cfg        config.Config
	log        *slog.Logger
	router     *Router
	dispatcher *Dispatcher
	errHandler *apperrors.Handler
	deps       handlers.Deps

	userLocks sync.Map // phone -> *sync.Mutex
}

// New assembles the bot: state handlers, global commands and middlewares.
// limiter and deduper are optional.
func New(
	cfg config.Config,
	log *slog.Logger,
	deps handlers.Deps,
	limiter ratelimit.Limiter,
	rules *ratelimit.Rules,
	deduper *idempotency.Deduper,
) *Bot {
	if log == nil {
		log = slog.Default()
	}
	if deps.Log == nil {
		deps.Log = log
	}
	if deps.MaxRetries <= 0 {
		deps.MaxRetries = cfg.Bot.MaxRetriesOrDefault()
	}
	if deps.MenuURL == "" {
		deps.MenuURL = cfg.Bot.MenuURL
	}

	dispatcher := NewDispatcher(deps.FSM, log)
	router := NewRouter(dispatcher, log)
	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	b := &Bot{
		cfg:        cfg,
		log:        log,
		router:     router,
		dispatcher: dispatcher,
		errHandler: errHandler,
		deps:       deps,
	}

	b.setupMiddlewares(limiter, rules, deduper)
	b.setupHandlers()

	return b
}

func (b *Bot) setupMiddlewares(limiter ratelimit.Limiter, rules *ratelimit.Rules, deduper *idempotency.Deduper) {
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	if deduper != nil {
		b.router.Use(DedupeMiddleware(deduper, b.log))
	}
	if limiter != nil {
		b.router.Use(RateLimitMiddleware(limiter, rules, b.log))
	}
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(MetricsMiddleware)
}

func (b *Bot) setupHandlers() {
	d := b.deps

	b.dispatcher.RegisterStateHandler(conversation.StateIdle, handlers.NewIdle(d))
	b.dispatcher.RegisterStateHandler(conversation.StateConfirmingOrder, handlers.NewConfirmingOrder(d))
	b.dispatcher.RegisterStateHandler(conversation.StateProvidingDetails, handlers.NewProvidingDetails(d))
	b.dispatcher.RegisterStateHandler(conversation.StateConfirmingAddress, handlers.NewConfirmingAddress(d))
	b.dispatcher.RegisterStateHandler(conversation.StateSelectingPayment, handlers.NewSelectingPayment(d))
	b.dispatcher.RegisterStateHandler(conversation.StateWaitingPayment, handlers.NewWaitingPayment(d))
	b.dispatcher.RegisterStateHandler(conversation.StateOrderConfirmed, handlers.NewOrderConfirmed(d))
	b.dispatcher.RegisterStateHandler(conversation.StateEditingOrder, handlers.NewEditingOrder(d))
	b.dispatcher.RegisterStateHandler(conversation.StateTrackingOrder, handlers.NewTrackingOrder(d))
	b.dispatcher.RegisterStateHandler(conversation.StateCustomerSupport, handlers.NewCustomerSupport(d))

	b.router.RegisterCommand(validation.CommandCancel, handlers.NewCancel(d))
	b.router.RegisterCommand(validation.CommandHelp, handlers.NewHelp(d))
	b.router.RegisterCommand(validation.CommandMenu, handlers.NewMenuLink(d))
	b.router.RegisterCommand(validation.CommandStatus, handlers.NewStatus(d))
	b.router.RegisterCommand(validation.CommandSupport, handlers.NewSupport(d))
}

// HandleMessage processes one inbound message. Messages from the same phone
// are serialized; different phones run concurrently.
func (b *Bot) HandleMessage(ctx context.Context, msg Inbound) {
	if msg.From == "" {
		b.log.Warn("inbound message without sender, dropping")
		return
	}

	lock := b.userLock(msg.From)
	lock.Lock()
	defer lock.Unlock()

	c := &messageContext{ctx: ctx, msg: msg, sender: b.deps.Sender, log: b.log}

	if err := b.router.Route(c); err != nil {
		// middlewares swallow handler errors; anything left is a routing bug
		b.log.Error("message routing failed", slog.String("phone", msg.From), slog.Any("error", err))
	}
}

func (b *Bot) userLock(phone string) *sync.Mutex {
	actual, _ := b.userLocks.LoadOrStore(phone, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// messageContext adapts an inbound message to the handlers.Context interface.
type messageContext struct {
	ctx    context.Context
	msg    Inbound
	sender handlers.Sender
	log    *slog.Logger
}

func (c *messageContext) Ctx() context.Context { return c.ctx }
func (c *messageContext) UserID() string       { return c.msg.From }
func (c *messageContext) MessageID() string    { return c.msg.MessageID }
func (c *messageContext) ProfileName() string  { return c.msg.ProfileName }
func (c *messageContext) Text() string         { return c.msg.Text }

func (c *messageContext) Send(text string) error {
	if c.sender == nil {
		return nil
	}

	if err := c.sender.SendText(c.ctx, c.msg.From, text); err != nil {
		metrics.RecordMessage("outbound", "failed")
		return err
	}

	metrics.RecordMessage("outbound", "sent")
	return nil
}
