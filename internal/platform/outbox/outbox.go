// Package outbox provides an at-least-once task queue backed by the
// database. Side effects that must not be lost with the request (patient
// notifications, profile regeneration kicks) are enqueued in the same
// transaction as the domain write and delivered by a polling dispatcher.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task statuses. Transitions: pending -> delivering -> delivered,
// or delivering -> pending (retry scheduled), or delivering -> dead.
const (
	StatusPending    = "pending"
	StatusDelivering = "delivering"
	StatusDelivered  = "delivered"
	StatusDead       = "dead"
)

var ErrTaskNotFound = errors.New("outbox task not found")

// Task is a single queued side effect.
type Task struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Store persists outbox tasks.
type Store interface {
	// Enqueue inserts a pending task due immediately.
	Enqueue(ctx context.Context, kind string, payload json.RawMessage) (*Task, error)
	// ClaimDue atomically moves up to limit due pending tasks to delivering
	// and returns them. Two concurrent dispatchers never claim the same task.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Task, error)
	// MarkDelivered finalizes a delivering task.
	MarkDelivered(ctx context.Context, id string) error
	// MarkRetry returns a delivering task to pending with a new due time.
	MarkRetry(ctx context.Context, id string, attempts int, nextAttempt time.Time, lastError string) error
	// MarkDead dead-letters a delivering task that exhausted its retries.
	MarkDead(ctx context.Context, id string, lastError string) error
}

// MemoryStore is a thread-safe in-memory Store for testing and development.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*Task)}
}

func (s *MemoryStore) Enqueue(_ context.Context, kind string, payload json.RawMessage) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:            uuid.NewString(),
		Kind:          kind,
		Payload:       append(json.RawMessage(nil), payload...),
		Status:        StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()

	copied := *task
	return &copied, nil
}

func (s *MemoryStore) ClaimDue(_ context.Context, now time.Time, limit int) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Task
	for _, task := range s.tasks {
		if task.Status == StatusPending && !task.NextAttemptAt.After(now) {
			due = append(due, task)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*Task, 0, len(due))
	for _, task := range due {
		task.Status = StatusDelivering
		task.UpdatedAt = now
		copied := *task
		claimed = append(claimed, &copied)
	}
	return claimed, nil
}

func (s *MemoryStore) MarkDelivered(_ context.Context, id string) error {
	return s.update(id, func(t *Task) {
		t.Status = StatusDelivered
		t.LastError = ""
	})
}

func (s *MemoryStore) MarkRetry(_ context.Context, id string, attempts int, nextAttempt time.Time, lastError string) error {
	return s.update(id, func(t *Task) {
		t.Status = StatusPending
		t.Attempts = attempts
		t.NextAttemptAt = nextAttempt
		t.LastError = lastError
	})
}

func (s *MemoryStore) MarkDead(_ context.Context, id string, lastError string) error {
	return s.update(id, func(t *Task) {
		t.Status = StatusDead
		t.LastError = lastError
	})
}

func (s *MemoryStore) update(id string, fn func(*Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	fn(task)
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// Get returns a copy of the task, used by tests.
func (s *MemoryStore) Get(id string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	copied := *task
	return &copied, true
}
