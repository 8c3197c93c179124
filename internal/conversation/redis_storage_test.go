package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorageRoundTrip(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)
	ctx := context.Background()
	userID := "5585999998888"

	_, err := storage.Get(ctx, userID)
	require.ErrorIs(t, err, ErrNotFound)

	conv := &Conversation{
		UserID:       userID,
		CurrentState: StateProvidingDetails,
		Context: Context{
			Personal: &PersonalInfo{Name: "Maria Silva", Email: "maria@example.com"},
		},
		RetryCount: 1,
	}
	require.NoError(t, storage.Set(ctx, userID, conv))

	loaded, err := storage.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, StateProvidingDetails, loaded.CurrentState)
	assert.Equal(t, 1, loaded.RetryCount)
	require.NotNil(t, loaded.Context.Personal)
	assert.Equal(t, "Maria Silva", loaded.Context.Personal.Name)
	assert.False(t, loaded.UpdatedAt.IsZero())

	require.NoError(t, storage.Clear(ctx, userID))
	_, err = storage.Get(ctx, userID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorageAll(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)
	ctx := context.Background()

	users := []string{"5585999998888", "5511988887777", "5521977776666"}
	for _, id := range users {
		require.NoError(t, storage.Set(ctx, id, &Conversation{
			UserID:       id,
			CurrentState: StateIdle,
		}))
	}

	all, err := storage.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(users))
}
