package intake

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrValidation marks input errors that map to HTTP 400.
var ErrValidation = errors.New("validation error")

// accessCodeRe matches the two accepted code forms: five digits, or an
// "a"-prefixed five digits submitted by unverified providers.
var accessCodeRe = regexp.MustCompile(`^a?\d{5}$`)

// codeAttempts bounds the generate-insert loop when codes collide. The code
// space is 100,000 values, so consecutive collisions indicate exhaustion,
// not bad luck.
const codeAttempts = 5

// conversationCreator creates a placeholder conversation for a user. Backed
// by the conversation service; creation is best-effort on submission.
type conversationCreator interface {
	CreateForUser(ctx context.Context, userID string) (uuid.UUID, error)
}

type Service struct {
	repo          Repository
	conversations conversationCreator
	logger        zerolog.Logger
}

// NewService builds the intake service. conversations may be nil, in which
// case submissions never get a placeholder conversation.
func NewService(repo Repository, conversations conversationCreator, logger zerolog.Logger) *Service {
	return &Service{repo: repo, conversations: conversations, logger: logger}
}

func (s *Service) validateSubmission(req *SubmitRequest) error {
	required := []struct {
		value, name string
	}{
		{req.UserID, "user_id"},
		{req.FullLegalName, "full legal name"},
		{req.DateOfBirth, "date of birth"},
		{req.Email, "email"},
		{req.Phone, "phone"},
		{req.State, "state"},
		{req.City, "city"},
		{req.ZipCode, "zip code"},
		{req.InsuranceProvider, "insurance provider"},
		{req.SessionPreference, "session preference"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, f.name)
		}
	}
	if len(req.Availability) == 0 && strings.TrimSpace(req.AvailabilityOther) == "" {
		return fmt.Errorf("%w: At least one availability slot must be selected, or use the other field to describe your availability", ErrValidation)
	}
	return nil
}

// Submit validates the intake form, upserts the patient, and links or
// creates the intake session. When an unlinked session already exists for
// the user it is linked in place and its conversation id reused, so
// re-submission never duplicates sessions.
func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	if err := s.validateSubmission(req); err != nil {
		return nil, err
	}

	patient := &PatientDetails{
		UserID:            req.UserID,
		FullLegalName:     req.FullLegalName,
		DateOfBirth:       req.DateOfBirth,
		Email:             req.Email,
		Phone:             req.Phone,
		State:             req.State,
		City:              req.City,
		ZipCode:           req.ZipCode,
		InsuranceProvider: req.InsuranceProvider,
		SessionPreference: req.SessionPreference,
		Availability:      req.Availability,
		AvailabilityOther: req.AvailabilityOther,
	}
	if err := s.repo.UpsertPatient(ctx, patient); err != nil {
		return nil, fmt.Errorf("upserting patient: %w", err)
	}

	// Reuse the newest unlinked session if the voice bootstrap ran first.
	existing, err := s.repo.FindUnlinkedSession(ctx, req.UserID)
	if err == nil {
		if err := s.repo.LinkSession(ctx, existing.ID, patient.ID); err != nil {
			return nil, fmt.Errorf("linking session: %w", err)
		}
		return &SubmitResult{
			IntakeID:       existing.ID,
			AccessCode:     existing.AccessCode,
			ConversationID: existing.ConversationID,
		}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("finding unlinked session: %w", err)
	}

	// Conversation creation is best-effort: intake still succeeds without it.
	var conversationID *uuid.UUID
	if s.conversations != nil {
		cid, cerr := s.conversations.CreateForUser(ctx, req.UserID)
		if cerr != nil {
			s.logger.Warn().Err(cerr).Str("user_id", req.UserID).
				Msg("failed to create placeholder conversation for intake")
		} else {
			conversationID = &cid
		}
	}

	session, err := s.createSessionWithCode(ctx, req.UserID, &patient.ID, conversationID)
	if err != nil {
		return nil, err
	}

	return &SubmitResult{
		IntakeID:       session.ID,
		AccessCode:     session.AccessCode,
		ConversationID: session.ConversationID,
	}, nil
}

// EnsureSession creates an unlinked intake session for the user if none
// exists, binding it to the given conversation. Called by the voice-session
// bootstrap so a later form submission links instead of duplicating.
func (s *Service) EnsureSession(ctx context.Context, userID string, conversationID uuid.UUID) (*IntakeSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	existing, err := s.repo.FindUnlinkedSession(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("finding unlinked session: %w", err)
	}

	return s.createSessionWithCode(ctx, userID, nil, &conversationID)
}

func (s *Service) createSessionWithCode(ctx context.Context, userID string, patientID, conversationID *uuid.UUID) (*IntakeSession, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := generateAccessCode()
		if err != nil {
			return nil, fmt.Errorf("generating access code: %w", err)
		}

		session := &IntakeSession{
			UserID:         userID,
			PatientID:      patientID,
			AccessCode:     code,
			ConversationID: conversationID,
			Status:         "pending",
		}
		err = s.repo.CreateSession(ctx, session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrCodeCollision) {
			return nil, fmt.Errorf("creating session: %w", err)
		}
		s.logger.Debug().Int("attempt", attempt+1).Msg("access code collision, regenerating")
	}
	return nil, fmt.Errorf("creating session: exhausted %d access code attempts", codeAttempts)
}

// generateAccessCode produces a 5-digit decimal code with a uniform
// crypto/rand draw. Leading zeros are valid.
func generateAccessCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%05d", n.Int64()), nil
}

// ValidateCode resolves an access code to its intake session and patient.
// Codes failing the accepted forms are rejected before any repository
// access. The audit row is best-effort.
func (s *Service) ValidateCode(ctx context.Context, code, providerUserID string) (*ValidateResult, error) {
	code = strings.TrimSpace(code)
	if !accessCodeRe.MatchString(code) {
		return nil, fmt.Errorf("%w: access code must be 5 digits", ErrValidation)
	}

	unverified := strings.HasPrefix(code, "a")
	code = strings.TrimPrefix(code, "a")

	session, err := s.repo.GetSessionByAccessCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up access code: %w", err)
	}

	result := &ValidateResult{Valid: true, Intake: session}
	if session.PatientID != nil {
		patient, perr := s.repo.GetPatientByUserID(ctx, session.UserID)
		if perr != nil && !errors.Is(perr, ErrNotFound) {
			return nil, fmt.Errorf("loading patient: %w", perr)
		}
		result.Patient = patient
	}

	view := &ProviderIntakeView{
		IntakeID:       session.ID,
		ProviderUserID: providerUserID,
		Unverified:     unverified,
	}
	if err := s.repo.RecordProviderView(ctx, view); err != nil {
		s.logger.Warn().Err(err).Str("intake_id", session.ID.String()).
			Msg("failed to record provider intake view")
	}

	return result, nil
}
