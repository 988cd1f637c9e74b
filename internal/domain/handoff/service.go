package handoff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mindwell/mindwell/internal/domain/profile"
	"github.com/mindwell/mindwell/internal/platform/llm"
	"github.com/mindwell/mindwell/pkg/pagination"
)

// ErrValidation marks input errors that map to HTTP 400.
var ErrValidation = errors.New("validation error")

// ErrProfileNotFound is returned when the user has no profile to hand off.
var ErrProfileNotFound = errors.New("no profile for user")

// ErrPlaceholderMissing is returned when the stored user template does not
// contain the profile placeholder. The generator refuses to call the LLM
// with a template that cannot receive the profile.
var ErrPlaceholderMissing = errors.New("user template is missing the profile placeholder")

// profileSource provides the latest profile row for a user. Backed by the
// profile service.
type profileSource interface {
	LatestProfileData(ctx context.Context, userID string) (*profile.UserProfile, error)
}

type Service struct {
	repo      Repository
	profiles  profileSource
	completer llm.Completer
	logger    zerolog.Logger
}

func NewService(repo Repository, profiles profileSource, completer llm.Completer, logger zerolog.Logger) *Service {
	return &Service{repo: repo, profiles: profiles, completer: completer, logger: logger}
}

// Generate builds the prompt pair from the newest active templates,
// substitutes the user's profile, calls the LLM once (no retry), and
// persists the narrative.
func (s *Service) Generate(ctx context.Context, userID string) (*WarmHandoff, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	p, err := s.profiles.LatestProfileData(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	systemTpl, err := s.repo.GetLatestActiveTemplate(ctx, TemplateCategory, RoleSystem)
	if err != nil {
		return nil, err
	}
	userTpl, err := s.repo.GetLatestActiveTemplate(ctx, TemplateCategory, RoleUser)
	if err != nil {
		return nil, err
	}

	if !strings.Contains(userTpl.Content, ProfilePlaceholder) {
		return nil, fmt.Errorf("%w (template version %d)", ErrPlaceholderMissing, userTpl.Version)
	}
	userPrompt := strings.ReplaceAll(userTpl.Content, ProfilePlaceholder, string(p.ProfileData))

	content, err := s.completer.Complete(ctx, systemTpl.Content, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("generating handoff: %w", err)
	}

	h := &WarmHandoff{
		UserID:         userID,
		ProfileID:      p.ID,
		ProfileVersion: p.Version,
		Content:        content,
	}
	if err := s.repo.CreateHandoff(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// List returns the user's handoffs newest first.
func (s *Service) List(ctx context.Context, userID string, p pagination.Params) ([]*WarmHandoff, int64, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, 0, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	return s.repo.ListByUser(ctx, userID, p)
}
