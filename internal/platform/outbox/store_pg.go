package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindwell/mindwell/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type storePG struct {
	pool *pgxpool.Pool
}

// NewStore returns a Postgres-backed outbox Store.
func NewStore(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

func (s *storePG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return s.pool
}

const taskCols = `id, kind, payload, status, attempts, next_attempt_at, last_error, created_at, updated_at`

func (s *storePG) Enqueue(ctx context.Context, kind string, payload json.RawMessage) (*Task, error) {
	task := &Task{
		ID:      uuid.NewString(),
		Kind:    kind,
		Payload: payload,
		Status:  StatusPending,
	}

	row := s.conn(ctx).QueryRow(ctx, `
		INSERT INTO outbox_tasks (id, kind, payload, status, attempts, next_attempt_at)
		VALUES ($1, $2, $3, $4, 0, now())
		RETURNING next_attempt_at, created_at, updated_at`,
		task.ID, task.Kind, task.Payload, task.Status)
	if err := row.Scan(&task.NextAttemptAt, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, fmt.Errorf("enqueueing outbox task: %w", err)
	}
	return task, nil
}

// ClaimDue uses SKIP LOCKED so multiple server instances can poll the same
// table without handing out a task twice.
func (s *storePG) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Task, error) {
	rows, err := s.conn(ctx).Query(ctx, `
		UPDATE outbox_tasks SET status = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM outbox_tasks
			WHERE status = $2 AND next_attempt_at <= $3
			ORDER BY next_attempt_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+taskCols,
		StatusDelivering, StatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claiming outbox tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Kind, &t.Payload, &t.Status, &t.Attempts,
			&t.NextAttemptAt, &t.LastError, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning outbox task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (s *storePG) MarkDelivered(ctx context.Context, id string) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE outbox_tasks SET status = $1, last_error = '', updated_at = now()
		WHERE id = $2 AND status = $3`,
		StatusDelivered, id, StatusDelivering)
	if err != nil {
		return fmt.Errorf("marking outbox task delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *storePG) MarkRetry(ctx context.Context, id string, attempts int, nextAttempt time.Time, lastError string) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE outbox_tasks
		SET status = $1, attempts = $2, next_attempt_at = $3, last_error = $4, updated_at = now()
		WHERE id = $5 AND status = $6`,
		StatusPending, attempts, nextAttempt, lastError, id, StatusDelivering)
	if err != nil {
		return fmt.Errorf("scheduling outbox retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *storePG) MarkDead(ctx context.Context, id string, lastError string) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE outbox_tasks SET status = $1, last_error = $2, updated_at = now()
		WHERE id = $3 AND status = $4`,
		StatusDead, lastError, id, StatusDelivering)
	if err != nil {
		return fmt.Errorf("dead-lettering outbox task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}
