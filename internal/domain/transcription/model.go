package transcription

import (
	"time"

	"github.com/google/uuid"
)

// Job statuses. Transitions are forward-only: processing → completed|failed.
// A failed job may be reset back to processing for a retry; a completed job
// is never overwritten.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// TranscriptJob is one transcription attempt for an intake's combined audio.
// At most one row exists per intake id.
type TranscriptJob struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	IntakeID        uuid.UUID  `db:"intake_id" json:"intake_id"`
	ConversationID  *uuid.UUID `db:"conversation_id" json:"conversation_id,omitempty"`
	AudioPath       string     `db:"audio_path" json:"audio_path"`
	Status          string     `db:"status" json:"status"`
	Transcript      string     `db:"transcript" json:"transcript,omitempty"`
	DurationSeconds float64    `db:"duration_seconds" json:"duration_seconds"`
	ErrorMessage    string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// TranscribeRequest triggers transcription of an intake's combined audio.
type TranscribeRequest struct {
	IntakeID          uuid.UUID  `json:"intake_id"`
	ConversationID    *uuid.UUID `json:"conversation_id"`
	CombinedAudioPath string     `json:"combined_audio_path"`
}

// TranscribeResult reports the job state after a transcribe request. For a
// short-circuited request Status reflects the existing row.
type TranscribeResult struct {
	IntakeID        uuid.UUID `json:"intake_id"`
	Status          string    `json:"status"`
	Transcript      string    `json:"transcript,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
}
