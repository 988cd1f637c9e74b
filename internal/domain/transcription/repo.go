package transcription

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("transcript job not found")

type Repository interface {
	// Claim inserts a processing row for the intake. Returns false without
	// error when a row already exists (the unique constraint absorbed the
	// insert), in which case the caller should re-read the existing row.
	Claim(ctx context.Context, job *TranscriptJob) (bool, error)
	// ResetFailed atomically flips a failed row back to processing for a
	// retry. Returns false when the row is not in the failed state.
	ResetFailed(ctx context.Context, intakeID uuid.UUID, audioPath string) (bool, error)
	// MarkCompleted records the transcript. Guarded on status=processing so
	// a completed row is never overwritten.
	MarkCompleted(ctx context.Context, intakeID uuid.UUID, transcript string, durationSeconds float64) error
	// MarkFailed records the failure message. Guarded on status=processing.
	MarkFailed(ctx context.Context, intakeID uuid.UUID, errorMessage string) error
	GetByIntakeID(ctx context.Context, intakeID uuid.UUID) (*TranscriptJob, error)
}
