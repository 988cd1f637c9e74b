package community

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mindwell/mindwell/pkg/pagination"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	CreatePost(ctx context.Context, p *Post) error
	// GetPost returns a non-deleted post.
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	// ListPosts returns non-deleted posts newest first, optionally filtered
	// by circle.
	ListPosts(ctx context.Context, circleID *uuid.UUID, p pagination.Params) ([]*Post, int64, error)
	SoftDeletePost(ctx context.Context, id uuid.UUID, userID string) error
	// IncrementViewCount and UpvotePost are single-statement increments.
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
	UpvotePost(ctx context.Context, id uuid.UUID) error

	CreateComment(ctx context.Context, c *Comment) error
	GetComment(ctx context.Context, id uuid.UUID) (*Comment, error)
	ListComments(ctx context.Context, postID uuid.UUID) ([]*Comment, error)
	SoftDeleteComment(ctx context.Context, id uuid.UUID, userID string) error

	// GetReaction looks up the user's reaction on a target. Exactly one of
	// postID or commentID is non-nil.
	GetReaction(ctx context.Context, userID string, postID, commentID *uuid.UUID) (*Reaction, error)
	InsertReaction(ctx context.Context, r *Reaction) error
	UpdateReactionType(ctx context.Context, id uuid.UUID, reactionType string) error
	DeleteReaction(ctx context.Context, id uuid.UUID) error

	JoinCircle(ctx context.Context, m *CircleMembership) error
	LeaveCircle(ctx context.Context, circleID uuid.UUID, userID string) error
	ListCircleMembers(ctx context.Context, circleID uuid.UUID) ([]*CircleMembership, error)
}
