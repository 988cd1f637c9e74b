package handoff

import (
	"context"
	"errors"

	"github.com/mindwell/mindwell/pkg/pagination"
)

var (
	ErrNotFound = errors.New("handoff not found")
	// ErrTemplateNotFound is returned when no active template exists for a
	// (category, role) pair.
	ErrTemplateNotFound = errors.New("prompt template not found")
)

type Repository interface {
	// GetLatestActiveTemplate returns the newest active version for the
	// category and role.
	GetLatestActiveTemplate(ctx context.Context, category, role string) (*PromptTemplate, error)
	CreateHandoff(ctx context.Context, h *WarmHandoff) error
	// ListByUser returns handoffs newest first.
	ListByUser(ctx context.Context, userID string, p pagination.Params) ([]*WarmHandoff, int64, error)
}
