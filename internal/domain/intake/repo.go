package intake

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrCodeCollision is returned when an access code is already in use.
	ErrCodeCollision = errors.New("access code already in use")
)

// Repository persists patients, intake sessions, and provider audit views.
type Repository interface {
	UpsertPatient(ctx context.Context, p *PatientDetails) error
	GetPatientByUserID(ctx context.Context, userID string) (*PatientDetails, error)

	// FindUnlinkedSession returns the most recent session for userID with no
	// linked patient, or ErrNotFound.
	FindUnlinkedSession(ctx context.Context, userID string) (*IntakeSession, error)
	// LinkSession attaches a patient to an existing session.
	LinkSession(ctx context.Context, sessionID, patientID uuid.UUID) error
	// CreateSession inserts a new session. Returns ErrCodeCollision when the
	// access code is taken.
	CreateSession(ctx context.Context, s *IntakeSession) error
	GetSessionByID(ctx context.Context, id uuid.UUID) (*IntakeSession, error)
	GetSessionByAccessCode(ctx context.Context, code string) (*IntakeSession, error)

	RecordProviderView(ctx context.Context, v *ProviderIntakeView) error
}
