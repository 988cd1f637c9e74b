package handoff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindwell/mindwell/internal/platform/db"
	"github.com/mindwell/mindwell/pkg/pagination"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns the Postgres-backed handoff repository.
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

func (r *repoPG) GetLatestActiveTemplate(ctx context.Context, category, role string) (*PromptTemplate, error) {
	var t PromptTemplate
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, category, role, version, is_active, content, created_at
		FROM prompt_templates
		WHERE category = $1 AND role = $2 AND is_active
		ORDER BY version DESC LIMIT 1`, category, role).
		Scan(&t.ID, &t.Category, &t.Role, &t.Version, &t.IsActive, &t.Content, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading prompt template: %w", err)
	}
	return &t, nil
}

func (r *repoPG) CreateHandoff(ctx context.Context, h *WarmHandoff) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO warm_handoffs (id, user_id, profile_id, profile_version, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		h.ID, h.UserID, h.ProfileID, h.ProfileVersion, h.Content)
	if err := row.Scan(&h.CreatedAt); err != nil {
		return fmt.Errorf("inserting warm handoff: %w", err)
	}
	return nil
}

func (r *repoPG) ListByUser(ctx context.Context, userID string, p pagination.Params) ([]*WarmHandoff, int64, error) {
	var total int64
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM warm_handoffs WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting handoffs: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, profile_id, profile_version, content, created_at
		FROM warm_handoffs
		WHERE user_id = $1
		ORDER BY created_at DESC `+p.SQL(), userID)
	if err != nil {
		return nil, 0, fmt.Errorf("listing handoffs: %w", err)
	}
	defer rows.Close()

	var handoffs []*WarmHandoff
	for rows.Next() {
		var h WarmHandoff
		if err := rows.Scan(&h.ID, &h.UserID, &h.ProfileID, &h.ProfileVersion, &h.Content, &h.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning handoff: %w", err)
		}
		handoffs = append(handoffs, &h)
	}
	return handoffs, total, rows.Err()
}
