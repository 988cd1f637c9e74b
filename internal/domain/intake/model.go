package intake

import (
	"time"

	"github.com/google/uuid"
)

// PatientDetails holds the identity and intake answers a patient submits on
// the intake form. Rows are upserted by user id; re-submission overwrites.
type PatientDetails struct {
	ID                uuid.UUID `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	FullLegalName     string    `db:"full_legal_name" json:"full_legal_name"`
	DateOfBirth       string    `db:"date_of_birth" json:"date_of_birth"`
	Email             string    `db:"email" json:"email"`
	Phone             string    `db:"phone" json:"phone"`
	State             string    `db:"state" json:"state"`
	City              string    `db:"city" json:"city"`
	ZipCode           string    `db:"zip_code" json:"zip_code"`
	InsuranceProvider string    `db:"insurance_provider" json:"insurance_provider"`
	SessionPreference string    `db:"session_preference" json:"session_preference"`
	Availability      []string  `db:"availability" json:"availability"`
	AvailabilityOther string    `db:"availability_other" json:"availability_other,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// IntakeSession links a patient's intake answers to a voice conversation and
// a short provider access code. PatientID is null until the form is
// submitted; at most one unlinked session exists per user at a time.
type IntakeSession struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	PatientID      *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	AccessCode     string     `db:"access_code" json:"access_code"`
	ConversationID *uuid.UUID `db:"conversation_id" json:"conversation_id,omitempty"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// ProviderIntakeView is an audit row recording a provider retrieving an
// intake session by access code.
type ProviderIntakeView struct {
	ID             uuid.UUID `db:"id" json:"id"`
	IntakeID       uuid.UUID `db:"intake_id" json:"intake_id"`
	ProviderUserID string    `db:"provider_user_id" json:"provider_user_id"`
	Unverified     bool      `db:"unverified" json:"unverified"`
	ViewedAt       time.Time `db:"viewed_at" json:"viewed_at"`
}

// SubmitRequest is the intake form payload.
type SubmitRequest struct {
	UserID            string   `json:"user_id"`
	FullLegalName     string   `json:"full_legal_name"`
	DateOfBirth       string   `json:"date_of_birth"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	State             string   `json:"state"`
	City              string   `json:"city"`
	ZipCode           string   `json:"zip_code"`
	InsuranceProvider string   `json:"insurance_provider"`
	SessionPreference string   `json:"session_preference"`
	Availability      []string `json:"availability"`
	AvailabilityOther string   `json:"availability_other"`
}

// SubmitResult is returned to the patient on a successful submission.
type SubmitResult struct {
	IntakeID       uuid.UUID  `json:"intake_id"`
	AccessCode     string     `json:"access_code"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
}

// ValidateResult joins the intake session with patient details for the
// provider retrieving it.
type ValidateResult struct {
	Valid   bool            `json:"valid"`
	Intake  *IntakeSession  `json:"intake"`
	Patient *PatientDetails `json:"patient,omitempty"`
}
