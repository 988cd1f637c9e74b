package transcription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindwell/mindwell/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns the Postgres-backed transcript job repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const jobCols = `id, intake_id, conversation_id, audio_path, status, transcript,
	duration_seconds, error_message, created_at, updated_at`

func scanJob(row pgx.Row) (*TranscriptJob, error) {
	var j TranscriptJob
	err := row.Scan(&j.ID, &j.IntakeID, &j.ConversationID, &j.AudioPath, &j.Status,
		&j.Transcript, &j.DurationSeconds, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &j, err
}

// Claim relies on the unique index on intake_id: concurrent claims race at
// the database and exactly one insert wins.
func (r *repoPG) Claim(ctx context.Context, job *TranscriptJob) (bool, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO intake_transcripts (id, intake_id, conversation_id, audio_path, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (intake_id) DO NOTHING`,
		job.ID, job.IntakeID, job.ConversationID, job.AudioPath, StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("claiming transcript job: %w", err)
	}
	job.Status = StatusProcessing
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) ResetFailed(ctx context.Context, intakeID uuid.UUID, audioPath string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE intake_transcripts
		SET status = $1, audio_path = $2, error_message = '', updated_at = NOW()
		WHERE intake_id = $3 AND status = $4`,
		StatusProcessing, audioPath, intakeID, StatusFailed)
	if err != nil {
		return false, fmt.Errorf("resetting failed transcript job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) MarkCompleted(ctx context.Context, intakeID uuid.UUID, transcript string, durationSeconds float64) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE intake_transcripts
		SET status = $1, transcript = $2, duration_seconds = $3, updated_at = NOW()
		WHERE intake_id = $4 AND status = $5`,
		StatusCompleted, transcript, durationSeconds, intakeID, StatusProcessing)
	if err != nil {
		return fmt.Errorf("completing transcript job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) MarkFailed(ctx context.Context, intakeID uuid.UUID, errorMessage string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE intake_transcripts
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE intake_id = $3 AND status = $4`,
		StatusFailed, errorMessage, intakeID, StatusProcessing)
	if err != nil {
		return fmt.Errorf("failing transcript job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) GetByIntakeID(ctx context.Context, intakeID uuid.UUID) (*TranscriptJob, error) {
	return scanJob(r.conn(ctx).QueryRow(ctx,
		`SELECT `+jobCols+` FROM intake_transcripts WHERE intake_id = $1`, intakeID))
}
