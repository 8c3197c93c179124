package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPattern = "conv:lock:%s"
	lockTTL            = 5 * time.Second
)

var (
	// ErrInvalidTransition indicates that a requested FSM transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNotFound indicates that a conversation record does not exist.
	ErrNotFound = errors.New("conversation not found")
	// ErrLocked indicates that a concurrent operation already holds the lock.
	ErrLocked = errors.New("conversation is locked, try again later")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// Machine describes the operations supported by the conversation controller.
// All context mutation flows through these methods; handlers never write the
// stored record directly.
type Machine interface {
	Get(ctx context.Context, userID string) (*Conversation, error)
	Begin(ctx context.Context, userID string, state State, data *Context) error
	Transition(ctx context.Context, userID string, newState State, merge *Context) error
	MergeContext(ctx context.Context, userID string, merge *Context) error
	IncrementRetry(ctx context.Context, userID string) (int, error)
	Clear(ctx context.Context, userID string) error
	All(ctx context.Context) ([]*Conversation, error)
}

// machine is a concrete Machine backed by Storage and Redis locking.
type machine struct {
	storage     Storage
	log         *slog.Logger
	redisClient *redis.Client
}

// NewMachine creates the FSM controller using the provided storage backend and
// redis client for per-user locking.
func NewMachine(storage Storage, log *slog.Logger, redisClient *redis.Client) Machine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage:     storage,
		log:         log,
		redisClient: redisClient,
	}
}

// Get proxies to the underlying storage implementation.
func (m *machine) Get(ctx context.Context, userID string) (*Conversation, error) {
	return m.storage.Get(ctx, userID)
}

// All returns every persisted conversation.
func (m *machine) All(ctx context.Context) ([]*Conversation, error) {
	return m.storage.All(ctx)
}

// Begin creates or replaces the conversation with a fresh record in the given
// state, discarding any previous context.
func (m *machine) Begin(ctx context.Context, userID string, state State, data *Context) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	conv := &Conversation{
		UserID:       userID,
		CurrentState: state,
	}
	if data != nil {
		conv.Context = *data
	}

	return m.storage.Set(ctx, userID, conv)
}

// Transition changes the state if the transition is allowed, merging the
// provided context slots and resetting the retry counter.
func (m *machine) Transition(ctx context.Context, userID string, newState State, merge *Context) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	conv, err := m.load(ctx, userID)
	if err != nil {
		return err
	}

	current := conv.CurrentState
	if !IsTransitionAllowed(current, newState) {
		m.log.Warn("invalid state transition", "user_id", userID, "from", current, "to", newState)
		return ErrInvalidTransition
	}

	transitionRecorder(string(current), string(newState))

	conv.CurrentState = newState
	conv.Context.merge(merge)
	conv.RetryCount = 0

	return m.storage.Set(ctx, userID, conv)
}

// MergeContext overlays the provided slots onto the stored context without
// changing the state.
func (m *machine) MergeContext(ctx context.Context, userID string, merge *Context) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	conv, err := m.load(ctx, userID)
	if err != nil {
		return err
	}

	conv.Context.merge(merge)
	conv.RetryCount = 0

	return m.storage.Set(ctx, userID, conv)
}

// IncrementRetry bumps the retry counter for repeated invalid input in the
// current collection step and returns the new value.
func (m *machine) IncrementRetry(ctx context.Context, userID string) (int, error) {
	if err := m.lock(ctx, userID); err != nil {
		return 0, err
	}
	defer m.unlock(ctx, userID)

	conv, err := m.load(ctx, userID)
	if err != nil {
		return 0, err
	}

	conv.RetryCount++
	if err := m.storage.Set(ctx, userID, conv); err != nil {
		return 0, err
	}

	return conv.RetryCount, nil
}

// Clear removes the stored conversation while holding the lock.
func (m *machine) Clear(ctx context.Context, userID string) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	return m.storage.Clear(ctx, userID)
}

func (m *machine) load(ctx context.Context, userID string) (*Conversation, error) {
	conv, err := m.storage.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Conversation{UserID: userID, CurrentState: StateIdle}, nil
		}
		return nil, err
	}

	if conv == nil {
		return &Conversation{UserID: userID, CurrentState: StateIdle}, nil
	}

	return conv, nil
}

func (m *machine) lock(ctx context.Context, userID string) error {
	if m.redisClient == nil {
		m.log.Warn("redis client not configured for conversation locks; skipping", "user_id", userID)
		return nil
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	acquired, err := m.redisClient.SetNX(ctx, key, 1, lockTTL).Result()
	if err != nil {
		m.log.Error("failed to acquire conversation lock", "user_id", userID, "error", err)
		return err
	}

	if !acquired {
		m.log.Warn("conversation lock already held", "user_id", userID)
		return ErrLocked
	}

	return nil
}

func (m *machine) unlock(ctx context.Context, userID string) {
	if m.redisClient == nil {
		return
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	if err := m.redisClient.Del(ctx, key).Err(); err != nil {
		m.log.Error("failed to release conversation lock", "user_id", userID, "error", err)
	}
}
