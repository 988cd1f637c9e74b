package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// HandlerFunc executes one task. A nil return marks the task delivered; an
// error schedules a retry (or dead-letters after the delays are exhausted).
type HandlerFunc func(ctx context.Context, task *Task) error

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPollInterval sets how often the dispatcher looks for due tasks.
func WithPollInterval(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.pollInterval = d }
}

// WithBatchSize caps how many tasks are claimed per poll.
func WithBatchSize(n int) DispatcherOption {
	return func(disp *Dispatcher) { disp.batchSize = n }
}

// WithRetryDelays overrides the retry schedule. len(delays)+1 is the total
// number of attempts before a task is dead-lettered.
func WithRetryDelays(delays []time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.retryDelays = delays }
}

// Dispatcher polls the store for due tasks and runs the registered handler
// for each task kind.
type Dispatcher struct {
	store        Store
	logger       zerolog.Logger
	handlers     map[string]HandlerFunc
	pollInterval time.Duration
	batchSize    int
	retryDelays  []time.Duration
}

// NewDispatcher builds a dispatcher with the default schedule of one
// immediate attempt and three retries at 1s, 30s, and 5m.
func NewDispatcher(store Store, logger zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:        store,
		logger:       logger,
		handlers:     make(map[string]HandlerFunc),
		pollInterval: 5 * time.Second,
		batchSize:    20,
		retryDelays:  []time.Duration{1 * time.Second, 30 * time.Second, 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register binds a handler to a task kind. Tasks of an unregistered kind are
// dead-lettered on first claim.
func (d *Dispatcher) Register(kind string, h HandlerFunc) {
	d.handlers[kind] = h
}

// Run polls until ctx is cancelled. It is meant to be started as a goroutine
// from the server process.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	d.logger.Info().Dur("poll_interval", d.pollInterval).Msg("outbox dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("outbox dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil {
				d.logger.Error().Err(err).Msg("outbox poll failed")
			}
		}
	}
}

// Tick claims and processes one batch of due tasks. Exposed for tests and
// for callers that drive the loop themselves.
func (d *Dispatcher) Tick(ctx context.Context) error {
	tasks, err := d.store.ClaimDue(ctx, time.Now().UTC(), d.batchSize)
	if err != nil {
		return fmt.Errorf("claiming due tasks: %w", err)
	}

	for _, task := range tasks {
		d.process(ctx, task)
	}
	return nil
}

func (d *Dispatcher) process(ctx context.Context, task *Task) {
	handler, ok := d.handlers[task.Kind]
	if !ok {
		d.logger.Error().Str("task_id", task.ID).Str("kind", task.Kind).Msg("no handler registered for task kind")
		if err := d.store.MarkDead(ctx, task.ID, "no handler registered"); err != nil {
			d.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to dead-letter task")
		}
		return
	}

	err := handler(ctx, task)
	if err == nil {
		if err := d.store.MarkDelivered(ctx, task.ID); err != nil {
			d.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to mark task delivered")
		}
		return
	}

	attempts := task.Attempts + 1
	if attempts > len(d.retryDelays) {
		d.logger.Error().Err(err).
			Str("task_id", task.ID).
			Str("kind", task.Kind).
			Int("attempts", attempts).
			Msg("task exhausted retries, dead-lettering")
		if derr := d.store.MarkDead(ctx, task.ID, err.Error()); derr != nil {
			d.logger.Error().Err(derr).Str("task_id", task.ID).Msg("failed to dead-letter task")
		}
		return
	}

	delay := d.retryDelays[attempts-1]
	next := time.Now().UTC().Add(delay)
	d.logger.Warn().Err(err).
		Str("task_id", task.ID).
		Str("kind", task.Kind).
		Int("attempts", attempts).
		Dur("retry_in", delay).
		Msg("task failed, retry scheduled")
	if rerr := d.store.MarkRetry(ctx, task.ID, attempts, next, err.Error()); rerr != nil {
		d.logger.Error().Err(rerr).Str("task_id", task.ID).Msg("failed to schedule retry")
	}
}
