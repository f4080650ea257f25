// Package retry implements the durable redelivery queue for operations that
// failed to apply. A single scheduler per process drives it.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/observability"
)

//go:generate moq -out persister_mock.go . Persister

// Persister хранит содержимое очереди между рестартами процесса
type Persister interface {
	LoadPending(ctx context.Context) ([]*models.PendingOperation, error)
	SavePending(ctx context.Context, op *models.PendingOperation) error
	DeletePending(ctx context.Context, id string) error
}

// DeliverFunc повторно применяет операцию. Ошибка означает неудачную попытку.
type DeliverFunc func(ctx context.Context, op *models.PendingOperation) error

// Config параметры очереди
type Config struct {
	Interval     time.Duration // период планировщика
	InitialDelay time.Duration // задержка перед первым ретраем после неудачи
	MaxDelay     time.Duration
	Multiplier   float64
	BatchSize    int
	MaxRetries   int
}

// DefaultConfig returns the queue defaults: 30s passes, batches of 5, 10 retries
func DefaultConfig() Config {
	return Config{
		Interval:     30 * time.Second,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Minute,
		Multiplier:   2.0,
		BatchSize:    5,
		MaxRetries:   10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = d.Multiplier
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	return c
}

// Backoff returns the delay before the next attempt after `retries` failures
func (c Config) Backoff(retries int) time.Duration {
	delay := float64(c.InitialDelay)
	for i := 1; i < retries; i++ {
		delay *= c.Multiplier
		if delay >= float64(c.MaxDelay) {
			return c.MaxDelay
		}
	}
	if time.Duration(delay) > c.MaxDelay {
		return c.MaxDelay
	}
	return time.Duration(delay)
}

// Option настраивает Queue
type Option func(*Queue)

// WithClock подменяет часы (для тестов)
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// WithDropHook регистрирует обработчик, вызываемый для каждой выброшенной операции
func WithDropHook(hook func(op *models.PendingOperation)) Option {
	return func(q *Queue) {
		q.onDrop = hook
	}
}

// BatchResult итог одного прохода ProcessBatch
type BatchResult struct {
	Delivered int
	Failed    int
	Dropped   int
}

// Queue очередь повторной доставки
type Queue struct {
	persister Persister
	deliver   DeliverFunc
	logger    *slog.Logger
	now       func() time.Time
	onDrop    func(op *models.PendingOperation)
	ops       map[string]*models.PendingOperation
	wake      chan struct{}
	dropped   chan *models.PendingOperation
	config    Config
	mu        sync.Mutex
	pass      sync.Mutex // один проход обработки за раз
}

// NewQueue creates a queue. Call Load to restore persisted operations.
func NewQueue(cfg Config, persister Persister, deliver DeliverFunc, logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		persister: persister,
		deliver:   deliver,
		logger:    logger,
		now:       time.Now,
		ops:       make(map[string]*models.PendingOperation),
		wake:      make(chan struct{}, 1),
		dropped:   make(chan *models.PendingOperation, 64),
		config:    cfg.withDefaults(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Config returns the effective configuration
func (q *Queue) Config() Config {
	return q.config
}

// Dropped returns the channel on which dropped operations are published.
// Publication is best effort: when nobody reads, drops are still logged and
// passed to the drop hook.
func (q *Queue) Dropped() <-chan *models.PendingOperation {
	return q.dropped
}

// Len returns the number of queued operations
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Pending returns a snapshot of queued operations in retry order
func (q *Queue) Pending() []*models.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops := make([]*models.PendingOperation, 0, len(q.ops))
	for _, op := range q.ops {
		ops = append(ops, op.Clone())
	}
	sortOps(ops)
	return ops
}

// Load restores persisted operations into memory
func (q *Queue) Load(ctx context.Context) error {
	ops, err := q.persister.LoadPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending operations: %w", err)
	}

	q.mu.Lock()
	for _, op := range ops {
		q.ops[op.ID] = op
	}
	n := len(q.ops)
	q.mu.Unlock()

	observability.SetRetryDepth(n)
	if n > 0 {
		q.logger.Info("Restored pending operations", "count", n)
		q.arm()
	}
	return nil
}

// Enqueue регистрирует неудачную операцию и будит планировщик.
// Операция с тем же ID заменяет существующую.
func (q *Queue) Enqueue(ctx context.Context, op *models.PendingOperation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	op = op.Clone()
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.Timestamp == 0 {
		op.Timestamp = q.now().UnixMilli()
	}

	if err := q.persister.SavePending(ctx, op); err != nil {
		return fmt.Errorf("failed to persist pending operation: %w", err)
	}

	q.mu.Lock()
	q.ops[op.ID] = op
	n := len(q.ops)
	q.mu.Unlock()

	observability.SetRetryDepth(n)
	q.logger.Debug("Operation enqueued for retry",
		"op_id", op.ID,
		"collection", op.Collection,
		"doc_id", op.DocumentID,
		"direction", op.Direction,
	)
	q.arm()
	return nil
}

// RecordFailure registers an attempt that failed outside the queue for the
// operation with op.ID. Retries carry over from the queued entry; past
// MaxRetries the operation is dropped instead of requeued. Without an explicit
// NextAttempt a repeated failure is delayed by the backoff.
// Reports whether the operation stays queued.
func (q *Queue) RecordFailure(ctx context.Context, op *models.PendingOperation) (bool, error) {
	if err := op.Validate(); err != nil {
		return false, err
	}
	op = op.Clone()

	q.mu.Lock()
	if prev, ok := q.ops[op.ID]; ok {
		op.Retries = prev.Retries + 1
	}
	if op.Retries <= q.config.MaxRetries {
		q.mu.Unlock()
		if op.NextAttempt.IsZero() && op.Retries > 0 {
			op.NextAttempt = q.now().Add(q.config.Backoff(op.Retries))
		}
		return true, q.Enqueue(ctx, op)
	}
	delete(q.ops, op.ID)
	n := len(q.ops)
	q.mu.Unlock()

	observability.SetRetryDepth(n)
	q.drop(ctx, op)
	if err := q.persister.DeletePending(ctx, op.ID); err != nil {
		return false, fmt.Errorf("failed to delete pending operation: %w", err)
	}
	return false, nil
}

func (q *Queue) arm() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// ProcessBatch пытается доставить до BatchSize операций, срок которых наступил.
// Порядок: старейший Timestamp, затем наименьшее число Retries.
func (q *Queue) ProcessBatch(ctx context.Context) (BatchResult, error) {
	q.pass.Lock()
	defer q.pass.Unlock()

	var result BatchResult
	var errs []error

	for _, op := range q.due() {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		deliverErr := q.deliver(ctx, op.Clone())
		if deliverErr != nil && ctx.Err() != nil {
			// прерванная доставка не считается попыткой
			return result, ctx.Err()
		}

		q.mu.Lock()
		current, ok := q.ops[op.ID]
		if !ok || current != op {
			// операцию заменили или удалили во время доставки
			q.mu.Unlock()
			continue
		}

		if deliverErr == nil {
			delete(q.ops, op.ID)
			q.mu.Unlock()
			result.Delivered++
			observability.RecordRetry("delivered")
			if err := q.persister.DeletePending(ctx, op.ID); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		updated := op.Clone()
		updated.Retries++
		updated.LastError = deliverErr.Error()

		if updated.Retries > q.config.MaxRetries {
			delete(q.ops, op.ID)
			q.mu.Unlock()
			result.Dropped++
			q.drop(ctx, updated)
			if err := q.persister.DeletePending(ctx, op.ID); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		updated.NextAttempt = q.now().Add(q.config.Backoff(updated.Retries))
		q.ops[op.ID] = updated
		q.mu.Unlock()

		result.Failed++
		observability.RecordRetry("failed")
		q.logger.Warn("Retry attempt failed",
			"op_id", op.ID,
			"retries", updated.Retries,
			"next_attempt", updated.NextAttempt,
			"error", deliverErr,
		)
		if err := q.persister.SavePending(ctx, updated); err != nil {
			errs = append(errs, err)
		}
	}

	observability.SetRetryDepth(q.Len())
	return result, errors.Join(errs...)
}

func (q *Queue) due() []*models.PendingOperation {
	now := q.now()

	q.mu.Lock()
	defer q.mu.Unlock()

	var ready []*models.PendingOperation
	for _, op := range q.ops {
		if op.NextAttempt.IsZero() || !op.NextAttempt.After(now) {
			ready = append(ready, op)
		}
	}
	sortOps(ready)
	if len(ready) > q.config.BatchSize {
		ready = ready[:q.config.BatchSize]
	}
	return ready
}

func (q *Queue) drop(ctx context.Context, op *models.PendingOperation) {
	observability.RecordRetry("dropped")
	q.logger.Error("Operation dropped after exceeding retry limit",
		"op_id", op.ID,
		"collection", op.Collection,
		"doc_id", op.DocumentID,
		"retries", op.Retries,
		"error", op.LastError,
	)

	if q.onDrop != nil {
		q.onDrop(op)
	}

	select {
	case q.dropped <- op:
	case <-ctx.Done():
	default:
		q.logger.Warn("Dropped-operations channel is full", "op_id", op.ID)
	}
}

// Run drives the queue until ctx is cancelled. While the queue is empty the
// scheduler sleeps and re-arms on the next Enqueue.
func (q *Queue) Run(ctx context.Context) error {
	q.logger.Info("Retry scheduler started", "interval", q.config.Interval)
	defer q.logger.Info("Retry scheduler stopped")

	for {
		if q.Len() == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-q.wake:
			}
		}

		timer := time.NewTimer(q.config.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		result, err := q.ProcessBatch(ctx)
		if err != nil && ctx.Err() == nil {
			q.logger.Error("Retry pass failed", "error", err)
		}
		if result.Delivered+result.Failed+result.Dropped > 0 {
			q.logger.Info("Retry pass completed",
				"delivered", result.Delivered,
				"failed", result.Failed,
				"dropped", result.Dropped,
				"remaining", q.Len(),
			)
		}
	}
}

func sortOps(ops []*models.PendingOperation) {
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Timestamp != ops[j].Timestamp {
			return ops[i].Timestamp < ops[j].Timestamp
		}
		if ops[i].Retries != ops[j].Retries {
			return ops[i].Retries < ops[j].Retries
		}
		return ops[i].ID < ops[j].ID
	})
}
