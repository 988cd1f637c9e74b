package profile

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

// NewRepoPG returns the Postgres-backed profile repository.
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

const profileCols = `id, user_id, profile_data, ai_instructions_summary, version, created_at, updated_at`

func scanProfile(row pgx.Row) (*UserProfile, error) {
	var p UserProfile
	err := row.Scan(&p.ID, &p.UserID, &p.ProfileData, &p.AIInstructionsSummary,
		&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) GetByUserID(ctx context.Context, userID string) (*UserProfile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM user_profiles WHERE user_id = $1`, userID))
}

func (r *repoPG) Create(ctx context.Context, p *UserProfile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO user_profiles (id, user_id, profile_data, ai_instructions_summary, version)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.ProfileData, p.AIInstructionsSummary, p.Version)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}
	return nil
}

func (r *repoPG) UpdateCAS(ctx context.Context, p *UserProfile, expectedVersion int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE user_profiles
		SET profile_data = $1, ai_instructions_summary = $2,
			version = $3, updated_at = NOW()
		WHERE user_id = $4 AND version = $5`,
		p.ProfileData, p.AIInstructionsSummary, expectedVersion+1, p.UserID, expectedVersion)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Missing row and stale version both land here; the caller read the
		// row first, so report a conflict.
		return ErrVersionConflict
	}
	p.Version = expectedVersion + 1
	return nil
}

func (r *repoPG) RecordProcessedConversation(ctx context.Context, userID string, conversationID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO processed_conversations (id, user_id, conversation_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id) DO NOTHING`,
		uuid.New(), userID, conversationID)
	if err != nil {
		return fmt.Errorf("recording processed conversation: %w", err)
	}
	return nil
}

func (r *repoPG) ListPendingConversations(ctx context.Context, userID string) ([]*ProcessedConversation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, conversation_id, processed_at, created_at
		FROM processed_conversations
		WHERE user_id = $1 AND processed_at IS NULL
		ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing pending conversations: %w", err)
	}
	defer rows.Close()

	var pending []*ProcessedConversation
	for rows.Next() {
		var pc ProcessedConversation
		if err := rows.Scan(&pc.ID, &pc.UserID, &pc.ConversationID, &pc.ProcessedAt, &pc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning pending conversation: %w", err)
		}
		pending = append(pending, &pc)
	}
	return pending, rows.Err()
}

func (r *repoPG) MarkConversationsProcessed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE processed_conversations
		SET processed_at = NOW()
		WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("marking conversations processed: %w", err)
	}
	return nil
}

func (r *repoPG) InsertAnalysis(ctx context.Context, a *ConversationAnalysis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO conversation_analyses (id, user_id, conversation_id, analysis)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		a.ID, a.UserID, a.ConversationID, a.Analysis)
	if err := row.Scan(&a.CreatedAt); err != nil {
		return fmt.Errorf("inserting analysis: %w", err)
	}
	return nil
}

func (r *repoPG) DeleteProcessedConversations(ctx context.Context, userID string) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM processed_conversations WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting processed conversations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) DeleteAnalyses(ctx context.Context, userID string) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM conversation_analyses WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting analyses: %w", err)
	}
	return tag.RowsAffected(), nil
}
