package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/models"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func memoryPersister() *PersisterMock {
	return &PersisterMock{
		LoadPendingFunc: func(ctx context.Context) ([]*models.PendingOperation, error) {
			return nil, nil
		},
		SavePendingFunc: func(ctx context.Context, op *models.PendingOperation) error {
			return nil
		},
		DeletePendingFunc: func(ctx context.Context, id string) error {
			return nil
		},
	}
}

func pushOp(id string, ts int64, retries int) *models.PendingOperation {
	return &models.PendingOperation{
		ID:         id,
		Collection: "notes",
		DocumentID: id,
		Direction:  models.DirectionPush,
		Timestamp:  ts,
		Retries:    retries,
	}
}

func TestConfig_Backoff(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, time.Second, cfg.Backoff(1))
	assert.Equal(t, 2*time.Second, cfg.Backoff(2))
	assert.Equal(t, 8*time.Second, cfg.Backoff(4))
	assert.Equal(t, cfg.MaxDelay, cfg.Backoff(40))
}

func TestQueue_Enqueue(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.UnixMilli(1_000)}
	persister := memoryPersister()
	q := NewQueue(DefaultConfig(), persister, nil, discardLogger(), WithClock(clock.Now))

	require.NoError(t, q.Enqueue(ctx, &models.PendingOperation{Collection: "notes", Direction: models.DirectionPush}))
	assert.Equal(t, 1, q.Len())

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.NotEmpty(t, pending[0].ID)
	assert.Equal(t, int64(1_000), pending[0].Timestamp)
	assert.Len(t, persister.SavePendingCalls(), 1)

	err := q.Enqueue(ctx, &models.PendingOperation{Direction: models.DirectionPush})
	assert.Error(t, err)

	persister.SavePendingFunc = func(ctx context.Context, op *models.PendingOperation) error {
		return errors.New("disk full")
	}
	err = q.Enqueue(ctx, pushOp("x", 1, 0))
	assert.Error(t, err)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_ProcessBatch_OrderAndBatchSize(t *testing.T) {
	ctx := context.Background()
	var delivered []string
	deliver := func(ctx context.Context, op *models.PendingOperation) error {
		delivered = append(delivered, op.ID)
		return nil
	}
	persister := memoryPersister()
	q := NewQueue(DefaultConfig(), persister, deliver, discardLogger())

	ops := []*models.PendingOperation{
		pushOp("f", 300, 0),
		pushOp("c", 100, 2),
		pushOp("a", 50, 0),
		pushOp("b", 100, 1),
		pushOp("e", 200, 0),
		pushOp("d", 100, 5),
		pushOp("g", 400, 0),
	}
	for _, op := range ops {
		require.NoError(t, q.Enqueue(ctx, op))
	}

	result, err := q.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Delivered)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, delivered)
	assert.Equal(t, 2, q.Len())
	assert.Len(t, persister.DeletePendingCalls(), 5)
}

func TestQueue_ProcessBatch_FailureSchedulesBackoff(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.UnixMilli(10_000)}
	attempts := 0
	deliver := func(ctx context.Context, op *models.PendingOperation) error {
		attempts++
		return errors.New("store busy")
	}
	q := NewQueue(DefaultConfig(), memoryPersister(), deliver, discardLogger(), WithClock(clock.Now))
	require.NoError(t, q.Enqueue(ctx, pushOp("1", 1, 0)))

	result, err := q.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	op := q.Pending()[0]
	assert.Equal(t, 1, op.Retries)
	assert.Equal(t, "store busy", op.LastError)
	assert.Equal(t, clock.Now().Add(time.Second), op.NextAttempt)

	// до истечения backoff операция не выбирается
	result, err = q.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, result)
	assert.Equal(t, 1, attempts)

	clock.Advance(time.Second)
	_, err = q.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestQueue_RetryBound(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.UnixMilli(0)}
	attempts := 0
	deliver := func(ctx context.Context, op *models.PendingOperation) error {
		attempts++
		return errors.New("still failing")
	}

	var hooked []*models.PendingOperation
	q := NewQueue(DefaultConfig(), memoryPersister(), deliver, discardLogger(),
		WithClock(clock.Now),
		WithDropHook(func(op *models.PendingOperation) {
			hooked = append(hooked, op)
		}),
	)
	require.NoError(t, q.Enqueue(ctx, pushOp("1", 1, 0)))

	for i := 0; i < 20; i++ {
		_, err := q.ProcessBatch(ctx)
		require.NoError(t, err)
		clock.Advance(time.Hour)
	}

	assert.Equal(t, 11, attempts, "must not be retried a 12th time")
	assert.Equal(t, 0, q.Len())
	require.Len(t, hooked, 1)
	assert.Equal(t, 11, hooked[0].Retries)

	select {
	case op := <-q.Dropped():
		assert.Equal(t, "1", op.ID)
		assert.Equal(t, "still failing", op.LastError)
	default:
		t.Fatal("dropped operation was not published")
	}
}

func TestQueue_RecordFailure(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.UnixMilli(0)}
	cfg := DefaultConfig()
	cfg.MaxRetries = 2

	var hooked []*models.PendingOperation
	q := NewQueue(cfg, memoryPersister(), nil, discardLogger(),
		WithClock(clock.Now),
		WithDropHook(func(op *models.PendingOperation) {
			hooked = append(hooked, op)
		}),
	)

	failure := func() *models.PendingOperation {
		return &models.PendingOperation{ID: "push:notes", Collection: "notes", Direction: models.DirectionPush, LastError: "offline"}
	}

	tests := []struct {
		wantRetries int
		wantDelay   time.Duration
	}{
		{wantRetries: 0, wantDelay: 0},
		{wantRetries: 1, wantDelay: time.Second},
		{wantRetries: 2, wantDelay: 2 * time.Second},
	}
	for _, tt := range tests {
		queued, err := q.RecordFailure(ctx, failure())
		require.NoError(t, err)
		assert.True(t, queued)

		ops := q.Pending()
		require.Len(t, ops, 1)
		assert.Equal(t, tt.wantRetries, ops[0].Retries)
		if tt.wantDelay > 0 {
			assert.Equal(t, clock.Now().Add(tt.wantDelay), ops[0].NextAttempt)
		}
	}

	// третий повтор сверх MaxRetries: операция выброшена
	queued, err := q.RecordFailure(ctx, failure())
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Zero(t, q.Len())
	require.Len(t, hooked, 1)
	assert.Equal(t, 3, hooked[0].Retries)

	select {
	case op := <-q.Dropped():
		assert.Equal(t, "push:notes", op.ID)
	default:
		t.Fatal("dropped operation was not published")
	}

	// после сброса счет начинается заново
	queued, err = q.RecordFailure(ctx, failure())
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Zero(t, q.Pending()[0].Retries)
}

func TestQueue_Load(t *testing.T) {
	ctx := context.Background()
	persister := memoryPersister()
	persister.LoadPendingFunc = func(ctx context.Context) ([]*models.PendingOperation, error) {
		return []*models.PendingOperation{pushOp("1", 1, 0), pushOp("2", 2, 3)}, nil
	}
	q := NewQueue(DefaultConfig(), persister, nil, discardLogger())

	require.NoError(t, q.Load(ctx))
	assert.Equal(t, 2, q.Len())

	persister.LoadPendingFunc = func(ctx context.Context) ([]*models.PendingOperation, error) {
		return nil, errors.New("corrupt")
	}
	assert.Error(t, q.Load(ctx))
}

func TestQueue_ProcessBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	deliver := func(ctx context.Context, op *models.PendingOperation) error {
		cancel()
		return ctx.Err()
	}
	q := NewQueue(DefaultConfig(), memoryPersister(), deliver, discardLogger())
	require.NoError(t, q.Enqueue(context.Background(), pushOp("1", 1, 0)))
	require.NoError(t, q.Enqueue(context.Background(), pushOp("2", 2, 0)))

	_, err := q.ProcessBatch(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	pending := q.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, 0, pending[0].Retries)
}

func TestQueue_Run_ArmsOnEnqueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan string, 1)
	deliver := func(ctx context.Context, op *models.PendingOperation) error {
		delivered <- op.ID
		return nil
	}
	cfg := DefaultConfig()
	cfg.Interval = 10 * time.Millisecond
	q := NewQueue(cfg, memoryPersister(), deliver, discardLogger())

	done := make(chan error, 1)
	go func() {
		done <- q.Run(ctx)
	}()

	require.NoError(t, q.Enqueue(ctx, pushOp("1", 1, 0)))

	select {
	case id := <-delivered:
		assert.Equal(t, "1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not deliver the operation")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
