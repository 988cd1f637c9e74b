package conversation

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("conversation not found")
	// ErrEnded is returned when appending to or ending a conversation that
	// is no longer active.
	ErrEnded = errors.New("conversation has ended")
)

type Repository interface {
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	// FindResumable returns the user's most recent active conversation.
	FindResumable(ctx context.Context, userID string) (*Conversation, error)
	// End clears is_active and stamps ended_at. ErrEnded if already inactive.
	End(ctx context.Context, id uuid.UUID) (*Conversation, error)
	AppendMessage(ctx context.Context, m *Message) error
	// ListMessages returns all messages for a conversation in creation order.
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error)
}
