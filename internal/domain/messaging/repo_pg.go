package messaging

import (
	"context"
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

// NewRepoPG returns the Postgres-backed audio message repository.
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

func (r *repoPG) Create(ctx context.Context, m *AudioMessage) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO audio_messages (id, patient_id, provider_id, sender_role, audio_path, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		m.ID, m.PatientID, m.ProviderID, m.SenderRole, m.AudioPath, m.SizeBytes)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("inserting audio message: %w", err)
	}
	return nil
}

func (r *repoPG) ListThread(ctx context.Context, patientID, providerID string) ([]*AudioMessage, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, provider_id, sender_role, audio_path, size_bytes, created_at
		FROM audio_messages
		WHERE patient_id = $1 AND provider_id = $2
		ORDER BY created_at ASC`, patientID, providerID)
	if err != nil {
		return nil, fmt.Errorf("listing audio messages: %w", err)
	}
	defer rows.Close()

	var messages []*AudioMessage
	for rows.Next() {
		var m AudioMessage
		if err := rows.Scan(&m.ID, &m.PatientID, &m.ProviderID, &m.SenderRole,
			&m.AudioPath, &m.SizeBytes, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audio message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
