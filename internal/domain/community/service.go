package community

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindwell/mindwell/pkg/pagination"
)

// ErrValidation marks input errors that map to HTTP 400.
var ErrValidation = errors.New("validation error")

// validReactionTypes enumerates the supported reaction kinds.
var validReactionTypes = map[string]bool{
	"heart":     true,
	"hug":       true,
	"strength":  true,
	"hope":      true,
	"relate":    true,
	"support":   true,
	"celebrate": true,
	"gratitude": true,
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreatePost(ctx context.Context, p *Post) error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(p.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	return s.repo.CreatePost(ctx, p)
}

// GetPost returns the post and counts the view. The increment is
// best-effort so a read never fails on counter contention.
func (s *Service) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	p, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("post_id", id.String()).Msg("failed to count post view")
	} else {
		p.ViewCount++
	}
	return p, nil
}

func (s *Service) ListPosts(ctx context.Context, circleID *uuid.UUID, p pagination.Params) ([]*Post, int64, error) {
	return s.repo.ListPosts(ctx, circleID, p)
}

func (s *Service) DeletePost(ctx context.Context, id uuid.UUID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	return s.repo.SoftDeletePost(ctx, id, userID)
}

func (s *Service) UpvotePost(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpvotePost(ctx, id)
}

func (s *Service) CreateComment(ctx context.Context, c *Comment) error {
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	if _, err := s.repo.GetPost(ctx, c.PostID); err != nil {
		return err
	}
	return s.repo.CreateComment(ctx, c)
}

func (s *Service) ListComments(ctx context.Context, postID uuid.UUID) ([]*Comment, error) {
	comments, err := s.repo.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*Comment{}
	}
	return comments, nil
}

func (s *Service) DeleteComment(ctx context.Context, id uuid.UUID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	return s.repo.SoftDeleteComment(ctx, id, userID)
}

// ToggleReaction drives the per-(user, target) state machine: no reaction
// inserts, the same type removes, a different type updates in place.
func (s *Service) ToggleReaction(ctx context.Context, req *ReactionRequest) (*ToggleResult, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if !validReactionTypes[req.Type] {
		return nil, fmt.Errorf("%w: unknown reaction type %q", ErrValidation, req.Type)
	}
	if (req.PostID == nil) == (req.CommentID == nil) {
		return nil, fmt.Errorf("%w: exactly one of post_id or comment_id must be set", ErrValidation)
	}

	// Verify the target exists and is not deleted.
	if req.PostID != nil {
		if _, err := s.repo.GetPost(ctx, *req.PostID); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.repo.GetComment(ctx, *req.CommentID); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.GetReaction(ctx, req.UserID, req.PostID, req.CommentID)
	switch {
	case errors.Is(err, ErrNotFound):
		re := &Reaction{
			UserID:    req.UserID,
			PostID:    req.PostID,
			CommentID: req.CommentID,
			Type:      req.Type,
		}
		if err := s.repo.InsertReaction(ctx, re); err != nil {
			return nil, err
		}
		return &ToggleResult{Action: ToggleAdded, Reaction: re}, nil
	case err != nil:
		return nil, err
	case existing.Type == req.Type:
		if err := s.repo.DeleteReaction(ctx, existing.ID); err != nil {
			return nil, err
		}
		return &ToggleResult{Action: ToggleRemoved}, nil
	default:
		if err := s.repo.UpdateReactionType(ctx, existing.ID, req.Type); err != nil {
			return nil, err
		}
		existing.Type = req.Type
		return &ToggleResult{Action: ToggleUpdated, Reaction: existing}, nil
	}
}

func (s *Service) JoinCircle(ctx context.Context, circleID uuid.UUID, userID string) (*CircleMembership, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	m := &CircleMembership{CircleID: circleID, UserID: userID}
	if err := s.repo.JoinCircle(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) LeaveCircle(ctx context.Context, circleID uuid.UUID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	return s.repo.LeaveCircle(ctx, circleID, userID)
}

func (s *Service) ListCircleMembers(ctx context.Context, circleID uuid.UUID) ([]*CircleMembership, error) {
	members, err := s.repo.ListCircleMembers(ctx, circleID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []*CircleMembership{}
	}
	return members, nil
}
