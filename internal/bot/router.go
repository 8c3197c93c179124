package bot

import (
	"log/slog"
	"sync"

	"github.com/sabordigital/zappedido/internal/bot/handlers"
	"github.com/sabordigital/zappedido/internal/validation"
)

// Router checks for global commands first and falls back to state dispatch.
// Commands like "cancelar" and "atendente" work from any conversation state.
type Router struct {
	mu          sync.RWMutex
	commands    map[validation.Command]handlers.Handler
	dispatcher  *Dispatcher
	middlewares []handlers.Middleware
	log         *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(dispatcher *Dispatcher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:    make(map[validation.Command]handlers.Handler),
		dispatcher:  dispatcher,
		middlewares: make([]handlers.Middleware, 0),
		log:         log,
	}
}

// RegisterCommand registers a handler for a global command.
func (r *Router) RegisterCommand(cmd validation.Command, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd] = h
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// Route directs the inbound message to a command handler or the state
// dispatcher, running the middleware chain either way.
func (r *Router) Route(c handlers.Context) error {
	if cmd, ok := validation.DetectCommand(c.Text()); ok {
		if handler := r.getCommandHandler(cmd); handler != nil {
			return r.executeHandler(handler, c)
		}
	}

	if r.dispatcher == nil {
		return nil
	}

	return r.executeHandler(r.dispatcher.Dispatch, c)
}

func (r *Router) executeHandler(h handlers.Handler, c handlers.Context) error {
	wrapped := r.applyMiddlewares(h)
	if wrapped == nil {
		return nil
	}
	return wrapped(c)
}

func (r *Router) getCommandHandler(cmd validation.Command) handlers.Handler {
	r.mu.RLock()
	handler := r.commands[cmd]
	r.mu.RUnlock()
	return handler
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	if h == nil {
		return nil
	}

	middlewares := r.middlewaresSnapshot()
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func (r *Router) middlewaresSnapshot() []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.middlewares) == 0 {
		return nil
	}

	snapshot := make([]handlers.Middleware, len(r.middlewares))
	copy(snapshot, r.middlewares)
	return snapshot
}
