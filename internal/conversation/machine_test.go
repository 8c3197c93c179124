package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Get(ctx context.Context, userID string) (*Conversation, error) {
	args := m.Called(ctx, userID)
	conv, _ := args.Get(0).(*Conversation)
	return conv, args.Error(1)
}

func (m *mockStorage) Set(ctx context.Context, userID string, conv *Conversation) error {
	args := m.Called(ctx, userID, conv)
	return args.Error(0)
}

func (m *mockStorage) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStorage) All(ctx context.Context) ([]*Conversation, error) {
	args := m.Called(ctx)
	convs, _ := args.Get(0).([]*Conversation)
	return convs, args.Error(1)
}

func TestMachine_Transition(t *testing.T) {
	ctx := context.Background()
	userID := "5585999998888"
	log := testLogger()

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		newState    State
		expectedErr error
	}{
		{
			name: "successful transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("Get", mock.Anything, userID).
					Return(&Conversation{UserID: userID, CurrentState: StateIdle}, nil).Once()
				ms.On("Set", mock.Anything, userID, mock.MatchedBy(func(conv *Conversation) bool {
					return conv.CurrentState == StateConfirmingOrder
				})).Return(nil).Once()
			},
			newState:    StateConfirmingOrder,
			expectedErr: nil,
		},
		{
			name: "invalid transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("Get", mock.Anything, userID).
					Return(&Conversation{UserID: userID, CurrentState: StateIdle}, nil).Once()
			},
			newState:    StateWaitingPayment,
			expectedErr: ErrInvalidTransition,
		},
		{
			name: "new user starts from idle",
			setupMocks: func(ms *mockStorage) {
				ms.On("Get", mock.Anything, userID).
					Return((*Conversation)(nil), ErrNotFound).Once()
				ms.On("Set", mock.Anything, userID, mock.MatchedBy(func(conv *Conversation) bool {
					return conv.CurrentState == StateConfirmingOrder
				})).Return(nil).Once()
			},
			newState:    StateConfirmingOrder,
			expectedErr: nil,
		},
		{
			name: "escalation allowed from any state",
			setupMocks: func(ms *mockStorage) {
				ms.On("Get", mock.Anything, userID).
					Return(&Conversation{UserID: userID, CurrentState: StateWaitingPayment}, nil).Once()
				ms.On("Set", mock.Anything, userID, mock.MatchedBy(func(conv *Conversation) bool {
					return conv.CurrentState == StateCustomerSupport
				})).Return(nil).Once()
			},
			newState:    StateCustomerSupport,
			expectedErr: nil,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewMachine(ms, log, nil)
			err := fsm.Transition(ctx, userID, tc.newState, nil)

			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
			} else {
				require.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestMachine_TransitionResetsRetryCount(t *testing.T) {
	ctx := context.Background()
	userID := "5511988887777"

	ms := &mockStorage{}
	ms.On("Get", mock.Anything, userID).
		Return(&Conversation{UserID: userID, CurrentState: StateConfirmingAddress, RetryCount: 2}, nil).Once()
	ms.On("Set", mock.Anything, userID, mock.MatchedBy(func(conv *Conversation) bool {
		return conv.CurrentState == StateSelectingPayment && conv.RetryCount == 0
	})).Return(nil).Once()

	fsm := NewMachine(ms, testLogger(), nil)
	require.NoError(t, fsm.Transition(ctx, userID, StateSelectingPayment, nil))
	ms.AssertExpectations(t)
}

func TestMachine_TransitionMergesContext(t *testing.T) {
	ctx := context.Background()
	userID := "5511988887777"

	stored := &Conversation{
		UserID:       userID,
		CurrentState: StateProvidingDetails,
		Context: Context{
			Personal: &PersonalInfo{Name: "Maria Silva"},
		},
	}

	ms := &mockStorage{}
	ms.On("Get", mock.Anything, userID).Return(stored, nil).Once()
	ms.On("Set", mock.Anything, userID, mock.MatchedBy(func(conv *Conversation) bool {
		// previously collected slot survives, new slot is added
		return conv.Context.Personal != nil &&
			conv.Context.Personal.Name == "Maria Silva" &&
			conv.Context.Address != nil &&
			conv.Context.Address.Address == "Rua das Flores, 123"
	})).Return(nil).Once()

	fsm := NewMachine(ms, testLogger(), nil)
	err := fsm.Transition(ctx, userID, StateConfirmingAddress, &Context{
		Address: &AddressInfo{Address: "Rua das Flores, 123", Valid: true},
	})
	require.NoError(t, err)
	ms.AssertExpectations(t)
}

func TestMachine_IncrementRetry(t *testing.T) {
	ctx := context.Background()
	userID := "5585999998888"

	ms := &mockStorage{}
	ms.On("Get", mock.Anything, userID).
		Return(&Conversation{UserID: userID, CurrentState: StateConfirmingAddress, RetryCount: 1}, nil).Once()
	ms.On("Set", mock.Anything, userID, mock.MatchedBy(func(conv *Conversation) bool {
		return conv.RetryCount == 2
	})).Return(nil).Once()

	fsm := NewMachine(ms, testLogger(), nil)
	count, err := fsm.IncrementRetry(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	ms.AssertExpectations(t)
}

func TestMachine_Clear(t *testing.T) {
	ctx := context.Background()
	userID := "5585999998888"

	testCases := []struct {
		name       string
		setupMocks func(ms *mockStorage)
		expectErr  error
	}{
		{
			name: "clear success",
			setupMocks: func(ms *mockStorage) {
				ms.On("Clear", mock.Anything, userID).Return(nil).Once()
			},
		},
		{
			name: "clear error",
			setupMocks: func(ms *mockStorage) {
				ms.On("Clear", mock.Anything, userID).Return(errStorageFailure).Once()
			},
			expectErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewMachine(ms, testLogger(), nil)
			err := fsm.Clear(ctx, userID)

			if tc.expectErr != nil {
				require.ErrorIs(t, err, tc.expectErr)
			} else {
				require.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestMachine_Lock(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := newInMemoryStorage(100 * time.Millisecond)
	fsm := NewMachine(storage, testLogger(), client)

	ctx := context.Background()
	userID := "5585999998888"

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- fsm.Begin(ctx, userID, StateConfirmingOrder, nil)
		}()
	}

	wg.Wait()
	close(errCh)

	var success, locked int
	for err := range errCh {
		if err == nil {
			success++
			continue
		}

		if errors.Is(err, ErrLocked) {
			locked++
			continue
		}

		t.Fatalf("unexpected error: %v", err)
	}

	if success != 1 {
		t.Fatalf("expected 1 successful operation, got %d", success)
	}
	if locked != 1 {
		t.Fatalf("expected 1 locked operation, got %d", locked)
	}
}

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type inMemoryStorage struct {
	mu    sync.Mutex
	convs map[string]*Conversation
	delay time.Duration
}

func newInMemoryStorage(delay time.Duration) *inMemoryStorage {
	return &inMemoryStorage{
		convs: make(map[string]*Conversation),
		delay: delay,
	}
}

func (s *inMemoryStorage) Get(ctx context.Context, userID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[userID]
	if !ok {
		return nil, ErrNotFound
	}

	return cloneConversation(conv), nil
}

func (s *inMemoryStorage) Set(ctx context.Context, userID string, conv *Conversation) error {
	time.Sleep(s.delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[userID] = cloneConversation(conv)
	return nil
}

func (s *inMemoryStorage) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.convs, userID)
	return nil
}

func (s *inMemoryStorage) All(ctx context.Context) ([]*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*Conversation, 0, len(s.convs))
	for _, conv := range s.convs {
		result = append(result, cloneConversation(conv))
	}

	return result, nil
}

func cloneConversation(conv *Conversation) *Conversation {
	if conv == nil {
		return nil
	}

	copied := *conv
	return &copied
}
