package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindwell/mindwell/internal/domain/conversation"
	"github.com/mindwell/mindwell/internal/platform/llm"
)

// ErrValidation marks input errors that map to HTTP 400.
var ErrValidation = errors.New("validation error")

// GenericInstructions is returned when a user has no stored summary yet.
const GenericInstructions = "You are a warm, supportive mental health intake assistant. " +
	"Listen carefully, ask one question at a time, and never give medical advice."

const regenerateSystemPrompt = "You are a clinical summarization assistant. " +
	"Given transcripts of a patient's past conversations, produce concise " +
	"instructions describing the patient's context, concerns, and preferences " +
	"so future sessions can be personalized. Do not invent details."

// casAttempts bounds merge retries against concurrent writers.
const casAttempts = 3

// conversationReader loads messages for regeneration. Backed by the
// conversation repository.
type conversationReader interface {
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*conversation.Message, error)
}

type Service struct {
	repo          Repository
	conversations conversationReader
	completer     llm.Completer
	logger        zerolog.Logger
}

// NewService builds the profile service. conversations and completer may be
// nil; Regenerate then reports an error while the read paths keep working.
func NewService(repo Repository, conversations conversationReader, completer llm.Completer, logger zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		conversations: conversations,
		completer:     completer,
		logger:        logger,
	}
}

// GetInstructions returns the stored summary or the generic fallback.
func (s *Service) GetInstructions(ctx context.Context, userID string) (*InstructionsResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &InstructionsResult{Instructions: GenericInstructions, Fallback: true}, nil
		}
		return nil, err
	}
	if strings.TrimSpace(p.AIInstructionsSummary) == "" {
		return &InstructionsResult{Instructions: GenericInstructions, Fallback: true}, nil
	}
	return &InstructionsResult{Instructions: p.AIInstructionsSummary}, nil
}

// Merge folds a JSON fragment into profile_data with a shallow merge and
// bumps the version. Creates the profile when absent. Retries the
// compare-and-swap a few times before surfacing the conflict.
func (s *Service) Merge(ctx context.Context, userID string, fragment json.RawMessage) (*UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	var incoming map[string]json.RawMessage
	if err := json.Unmarshal(fragment, &incoming); err != nil {
		return nil, fmt.Errorf("%w: profile fragment must be a JSON object", ErrValidation)
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		p, err := s.repo.GetByUserID(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			p = &UserProfile{UserID: userID, ProfileData: fragment}
			if cerr := s.repo.Create(ctx, p); cerr != nil {
				return nil, cerr
			}
			return p, nil
		}
		if err != nil {
			return nil, err
		}

		merged, err := shallowMerge(p.ProfileData, incoming)
		if err != nil {
			return nil, err
		}
		p.ProfileData = merged

		err = s.repo.UpdateCAS(ctx, p, p.Version)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		s.logger.Debug().Str("user_id", userID).Int("attempt", attempt+1).
			Msg("profile merge lost CAS race, retrying")
	}
	return nil, ErrVersionConflict
}

// Clear resets profile_data to an empty object and bumps the version. With
// resetTracker the enrichment bookkeeping is also deleted, best-effort: a
// partial failure surfaces as a warning, not an error.
func (s *Service) Clear(ctx context.Context, userID string, resetTracker bool) (*ClearResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	p.ProfileData = json.RawMessage(`{}`)
	p.AIInstructionsSummary = ""
	if err := s.repo.UpdateCAS(ctx, p, p.Version); err != nil {
		return nil, err
	}

	result := &ClearResult{Version: p.Version}
	if resetTracker {
		var failures []string
		if _, err := s.repo.DeleteProcessedConversations(ctx, userID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to reset processed conversations")
			failures = append(failures, "processed conversations")
		}
		if _, err := s.repo.DeleteAnalyses(ctx, userID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to reset conversation analyses")
			failures = append(failures, "conversation analyses")
		}
		if len(failures) > 0 {
			result.Warning = "profile cleared, but tracker reset failed for: " + strings.Join(failures, ", ")
		}
	}
	return result, nil
}

// Regenerate folds all pending conversations into a fresh instructions
// summary via the LLM, storing one analysis row per regeneration batch.
func (s *Service) Regenerate(ctx context.Context, userID string) (*RegenerateResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if s.completer == nil || s.conversations == nil {
		return nil, fmt.Errorf("summary regeneration is not configured")
	}

	pending, err := s.repo.ListPendingConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &RegenerateResult{NothingToProcess: true}, nil
	}

	var transcript strings.Builder
	ids := make([]uuid.UUID, 0, len(pending))
	for _, pc := range pending {
		ids = append(ids, pc.ID)
		messages, err := s.conversations.ListMessages(ctx, pc.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("loading conversation %s: %w", pc.ConversationID, err)
		}
		fmt.Fprintf(&transcript, "--- conversation %s ---\n", pc.ConversationID)
		for _, m := range messages {
			fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Content)
		}
	}

	summary, err := s.completer.Complete(ctx, regenerateSystemPrompt, transcript.String())
	if err != nil {
		return nil, fmt.Errorf("generating summary: %w", err)
	}

	p, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		p = &UserProfile{UserID: userID, ProfileData: json.RawMessage(`{}`), AIInstructionsSummary: summary}
		if cerr := s.repo.Create(ctx, p); cerr != nil {
			return nil, cerr
		}
	} else if err != nil {
		return nil, err
	} else {
		p.AIInstructionsSummary = summary
		if err := s.repo.UpdateCAS(ctx, p, p.Version); err != nil {
			return nil, err
		}
	}

	// Analysis rows and the processed marks are bookkeeping; failure is
	// logged so the next run retries those conversations.
	for _, pc := range pending {
		a := &ConversationAnalysis{UserID: userID, ConversationID: pc.ConversationID, Analysis: summary}
		if err := s.repo.InsertAnalysis(ctx, a); err != nil {
			s.logger.Warn().Err(err).Str("conversation_id", pc.ConversationID.String()).
				Msg("failed to store conversation analysis")
		}
	}
	if err := s.repo.MarkConversationsProcessed(ctx, ids); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to mark conversations processed")
	}

	return &RegenerateResult{Updated: len(pending), Summary: summary, Version: p.Version}, nil
}

// RecordConversation registers an ended conversation for later enrichment.
// Satisfies the conversation service's tracker dependency.
func (s *Service) RecordConversation(ctx context.Context, userID string, conversationID uuid.UUID) error {
	return s.repo.RecordProcessedConversation(ctx, userID, conversationID)
}

// LatestProfileData returns the user's profile row for handoff generation.
func (s *Service) LatestProfileData(ctx context.Context, userID string) (*UserProfile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// shallowMerge overlays the incoming keys onto the stored object. Nested
// objects are replaced wholesale, matching the original contract.
func shallowMerge(stored json.RawMessage, incoming map[string]json.RawMessage) (json.RawMessage, error) {
	base := make(map[string]json.RawMessage)
	if len(stored) > 0 {
		if err := json.Unmarshal(stored, &base); err != nil {
			return nil, fmt.Errorf("stored profile_data is not an object: %w", err)
		}
	}
	for k, v := range incoming {
		base[k] = v
	}
	return json.Marshal(base)
}
