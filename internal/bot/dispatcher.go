package bot

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sabordigital/zappedido/internal/bot/handlers"
	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/pkg/metrics"
)

// Dispatcher routes inbound messages to state-specific handlers.
type Dispatcher struct {
	fsm           conversation.Machine
	stateHandlers map[conversation.State]handlers.Handler
	log           *slog.Logger
	mu            sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handlers registry.
func NewDispatcher(fsm conversation.Machine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		fsm:           fsm,
		stateHandlers: make(map[conversation.State]handlers.Handler),
		log:           log,
	}
}

// RegisterStateHandler registers a handler for the provided state.
func (d *Dispatcher) RegisterStateHandler(s conversation.State, h handlers.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateHandlers[s] = h
}

// Dispatch routes the message based on the sender's current state. Users
// without a stored conversation are treated as idle.
func (d *Dispatcher) Dispatch(c handlers.Context) error {
	currentState := conversation.StateIdle

	conv, err := d.fsm.Get(c.Ctx(), c.UserID())
	if err != nil {
		if !errors.Is(err, conversation.ErrNotFound) {
			return err
		}
	} else if conv != nil {
		currentState = conv.CurrentState
	}

	handler := d.getHandler(currentState)
	if handler == nil {
		d.log.Info("no handler registered for state", "state", currentState, "user_id", c.UserID())
		return nil
	}

	start := time.Now()
	err = handler(c)
	metrics.RecordHandling(string(currentState), time.Since(start))

	return err
}

func (d *Dispatcher) getHandler(s conversation.State) handlers.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stateHandlers[s]
}
