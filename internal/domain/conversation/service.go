package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrValidation marks input errors that map to HTTP 400.
var ErrValidation = errors.New("validation error")

var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
}

// SessionInfo identifies the intake session bound to a bootstrapped
// conversation.
type SessionInfo struct {
	ID         uuid.UUID
	AccessCode string
}

// SessionEnsurer creates (or finds) the user's unlinked intake session and
// binds it to a conversation. Backed by the intake service.
type SessionEnsurer interface {
	EnsureSession(ctx context.Context, userID string, conversationID uuid.UUID) (SessionInfo, error)
}

// tracker records an ended conversation for later profile enrichment.
// Backed by the profile service; recording is best-effort.
type tracker interface {
	RecordConversation(ctx context.Context, userID string, conversationID uuid.UUID) error
}

type Service struct {
	repo    Repository
	tracker tracker
	intake  SessionEnsurer
	logger  zerolog.Logger
}

// NewService builds the conversation service. tracker may be nil.
func NewService(repo Repository, tracker tracker, logger zerolog.Logger) *Service {
	return &Service{repo: repo, tracker: tracker, logger: logger}
}

// SetSessionEnsurer attaches the intake bootstrap. Set after construction
// because the intake service in turn depends on this one.
func (s *Service) SetSessionEnsurer(e SessionEnsurer) { s.intake = e }

// CreateForUser creates a bare active conversation. Used by the intake
// submission path, which binds the returned id to the new intake session.
func (s *Service) CreateForUser(ctx context.Context, userID string) (uuid.UUID, error) {
	if strings.TrimSpace(userID) == "" {
		return uuid.Nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	c := &Conversation{UserID: userID}
	if err := s.repo.Create(ctx, c); err != nil {
		return uuid.Nil, err
	}
	return c.ID, nil
}

// Bootstrap starts a voice session: creates an active conversation and
// ensures an unlinked intake session exists for the user. Intake session
// creation is best-effort; the conversation is returned regardless.
func (s *Service) Bootstrap(ctx context.Context, userID string) (*BootstrapResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	c := &Conversation{UserID: userID}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	result := &BootstrapResult{Conversation: c}
	if s.intake != nil {
		info, err := s.intake.EnsureSession(ctx, userID, c.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).
				Msg("failed to ensure intake session for conversation")
		} else {
			result.IntakeSessionID = &info.ID
			result.AccessCode = info.AccessCode
		}
	}
	return result, nil
}

// Resumable returns the user's most recent active conversation with its
// messages in order.
func (s *Service) Resumable(ctx context.Context, userID string) (*ResumableConversation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	c, err := s.repo.FindResumable(ctx, userID)
	if err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	if messages == nil {
		messages = []*Message{}
	}
	return &ResumableConversation{Conversation: c, Messages: messages}, nil
}

// AppendMessage adds a turn to an active conversation.
func (s *Service) AppendMessage(ctx context.Context, m *Message) error {
	if !validRoles[m.Role] {
		return fmt.Errorf("%w: role must be one of user, assistant, system", ErrValidation)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}

	c, err := s.repo.GetByID(ctx, m.ConversationID)
	if err != nil {
		return err
	}
	if !c.IsActive {
		return ErrEnded
	}
	return s.repo.AppendMessage(ctx, m)
}

// End deactivates a conversation and records it for profile enrichment.
// Recording is best-effort.
func (s *Service) End(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	c, err := s.repo.End(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.tracker != nil {
		if err := s.tracker.RecordConversation(ctx, c.UserID, c.ID); err != nil {
			s.logger.Warn().Err(err).Str("conversation_id", c.ID.String()).
				Msg("failed to record ended conversation for enrichment")
		}
	}
	return c, nil
}
