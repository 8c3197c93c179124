// Package conversation manages per-user conversation state for the order flow.
package conversation

import "context"

// Storage defines the persistence contract for conversation state.
type Storage interface {
	// Get returns the current conversation for the specified user.
	Get(ctx context.Context, userID string) (*Conversation, error)
	// Set saves the provided conversation for the specified user.
	Set(ctx context.Context, userID string, conv *Conversation) error
	// Clear removes the conversation for the specified user.
	Clear(ctx context.Context, userID string) error
	// All returns every stored conversation.
	All(ctx context.Context) ([]*Conversation, error)
}
