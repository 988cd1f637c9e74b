package community

import (
	"time"

	"github.com/google/uuid"
)

// Post is a forum post inside a support circle. Counters are denormalized
// and only ever changed with single-statement increments.
type Post struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	CircleID  *uuid.UUID `db:"circle_id" json:"circle_id,omitempty"`
	Title     string     `db:"title" json:"title"`
	Content   string     `db:"content" json:"content"`
	Upvotes   int        `db:"upvotes" json:"upvotes"`
	ViewCount int        `db:"view_count" json:"view_count"`
	IsDeleted bool       `db:"is_deleted" json:"is_deleted"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

type Comment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PostID    uuid.UUID `db:"post_id" json:"post_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	Upvotes   int       `db:"upvotes" json:"upvotes"`
	IsDeleted bool      `db:"is_deleted" json:"is_deleted"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Reaction targets exactly one of PostID or CommentID. A user holds at most
// one reaction per target.
type Reaction struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	PostID    *uuid.UUID `db:"post_id" json:"post_id,omitempty"`
	CommentID *uuid.UUID `db:"comment_id" json:"comment_id,omitempty"`
	Type      string     `db:"type" json:"type"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// CircleMembership records a user's membership in a support circle.
type CircleMembership struct {
	CircleID uuid.UUID `db:"circle_id" json:"circle_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// Toggle actions reported by the reaction endpoint.
const (
	ToggleAdded   = "added"
	ToggleUpdated = "updated"
	ToggleRemoved = "removed"
)

// ToggleResult describes what the reaction toggle did.
type ToggleResult struct {
	Action   string    `json:"action"`
	Reaction *Reaction `json:"reaction,omitempty"`
}

// ReactionRequest is the toggle payload. Exactly one of PostID or CommentID
// must be set.
type ReactionRequest struct {
	UserID    string     `json:"user_id"`
	PostID    *uuid.UUID `json:"post_id"`
	CommentID *uuid.UUID `json:"comment_id"`
	Type      string     `json:"type"`
}
