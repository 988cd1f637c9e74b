package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("profile not found")
	// ErrVersionConflict is returned when a compare-and-swap update lost
	// against a concurrent writer.
	ErrVersionConflict = errors.New("profile version conflict")
)

type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*UserProfile, error)
	Create(ctx context.Context, p *UserProfile) error
	// UpdateCAS writes profile_data and ai_instructions_summary guarded on
	// the expected version, setting version to expected+1. Returns
	// ErrVersionConflict when the row moved underneath the caller.
	UpdateCAS(ctx context.Context, p *UserProfile, expectedVersion int) error

	RecordProcessedConversation(ctx context.Context, userID string, conversationID uuid.UUID) error
	// ListPendingConversations returns recorded conversations not yet folded
	// into the summary, oldest first.
	ListPendingConversations(ctx context.Context, userID string) ([]*ProcessedConversation, error)
	MarkConversationsProcessed(ctx context.Context, ids []uuid.UUID) error
	InsertAnalysis(ctx context.Context, a *ConversationAnalysis) error

	DeleteProcessedConversations(ctx context.Context, userID string) (int64, error)
	DeleteAnalyses(ctx context.Context, userID string) (int64, error)
}
