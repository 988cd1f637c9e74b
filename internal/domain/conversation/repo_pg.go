package conversation

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

// NewRepoPG returns the Postgres-backed conversation repository.
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

const conversationCols = `id, user_id, is_active, ended_at, created_at, updated_at`

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.IsActive, &c.EndedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Conversation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO conversations (id, user_id, is_active)
		VALUES ($1, $2, TRUE)
		RETURNING is_active, created_at, updated_at`,
		c.ID, c.UserID)
	if err := row.Scan(&c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	return scanConversation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+conversationCols+` FROM conversations WHERE id = $1`, id))
}

func (r *repoPG) FindResumable(ctx context.Context, userID string) (*Conversation, error) {
	return scanConversation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+conversationCols+` FROM conversations
		 WHERE user_id = $1 AND is_active
		 ORDER BY created_at DESC LIMIT 1`, userID))
}

func (r *repoPG) End(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	c, err := scanConversation(r.conn(ctx).QueryRow(ctx, `
		UPDATE conversations
		SET is_active = FALSE, ended_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING `+conversationCols, id))
	if errors.Is(err, ErrNotFound) {
		// Distinguish missing from already-ended for the caller.
		if _, gerr := r.GetByID(ctx, id); gerr == nil {
			return nil, ErrEnded
		}
		return nil, ErrNotFound
	}
	return c, err
}

const messageCols = `id, conversation_id, role, content, metadata, created_at`

func (r *repoPG) AppendMessage(ctx context.Context, m *Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		m.ID, m.ConversationID, m.Role, m.Content, m.Metadata)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

func (r *repoPG) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+messageCols+` FROM messages
		 WHERE conversation_id = $1
		 ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
