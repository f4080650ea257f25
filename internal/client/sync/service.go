// Package sync is the replica-side reconciliation coordinator: local writes,
// exchanges with the authoritative server, local merge of server changes,
// and the replica retry queue.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/clock"
	"github.com/iudanet/docsync/internal/delta"
	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/retry"
	"github.com/iudanet/docsync/pkg/api"
)

// DefaultDebounce окно бездействия перед синхронизацией после локальных изменений
const DefaultDebounce = 2 * time.Second

//go:generate moq -out transport_mock.go . Transport

// Transport sends one exchange to the authoritative server (implemented by the API client)
type Transport interface {
	Sync(ctx context.Context, collection string, req api.SyncRequest) (*api.SyncResponse, error)
}

// Store локальное хранилище реплики
type Store interface {
	storage.DocumentStorage
	storage.MetadataStorage
	storage.PendingStorage
}

// RetryClassifier reports whether a failed exchange should be retried later
type RetryClassifier func(err error) (retryable bool, after time.Duration)

// Config параметры реплики
type Config struct {
	Collections    []string
	Retry          retry.Config
	SyncInterval   time.Duration // 0: только синхронизация по изменениям
	Debounce       time.Duration
	DeltaThreshold float64
}

// Result итог одной синхронизации коллекции
type Result struct {
	Collection string
	Watermark  int64
	Pushed     int // документов отправлено целиком
	Deltas     int // документов отправлено дельтой
	Pulled     int
	Merged     int
	Conflicts  int
	Rejected   int
	Failed     int
	Resend     int
}

// Service replica-side coordinator
type Service struct {
	transport Transport
	store     Store
	codec     *delta.Codec
	clock     *clock.Clock
	queue     *retry.Queue
	logger    *slog.Logger
	now       func() time.Time
	classify  RetryClassifier
	changed   chan struct{}
	subs      map[int]chan State
	config    Config
	state     State
	nextSub   int
	mu        sync.Mutex // локальные записи и слияние
	syncMu    sync.Mutex // один обмен за раз
	stateMu   sync.Mutex
}

// Option настраивает Service
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRetryClassifier overrides which exchange failures are queued for retry.
// By default every failure is retried.
func WithRetryClassifier(fn RetryClassifier) Option {
	return func(s *Service) {
		s.classify = fn
	}
}

// NewService creates the replica coordinator. Call Load before use to
// restore the persisted retry queue.
func NewService(transport Transport, store Store, logger *slog.Logger, cfg Config, opts ...Option) *Service {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	s := &Service{
		transport: transport,
		store:     store,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
		classify:  func(error) (bool, time.Duration) { return true, 0 },
		changed:   make(chan struct{}, 1),
		subs:      make(map[int]chan State),
		codec:     delta.NewCodec(delta.WithThreshold(cfg.DeltaThreshold)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.clock = clock.New(s.now)

	s.queue = retry.NewQueue(cfg.Retry, store, s.deliver, logger,
		retry.WithClock(s.now),
		retry.WithDropHook(func(op *models.PendingOperation) {
			s.logger.Warn("Pending operation dropped after max retries",
				"op_id", op.ID,
				"collection", op.Collection,
				"direction", op.Direction,
				"error", op.LastError,
			)
		}),
	)
	return s
}

// Load restores the retry queue and publishes the initial state
func (s *Service) Load(ctx context.Context) error {
	if err := s.queue.Load(ctx); err != nil {
		return err
	}
	s.refreshPending(ctx)
	return nil
}

// Put сохраняет локальную версию документа и помечает ее для отправки.
// UpdatedAt проставляется часами реплики и всегда растет.
func (s *Service) Put(ctx context.Context, collection string, doc *models.Document) (*models.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", models.ErrInvalidDocument)
	}

	s.mu.Lock()
	saved := doc.Clone()
	if saved.ID == "" {
		saved.ID = uuid.New().String()
	}

	existing, err := s.store.GetDocument(ctx, collection, saved.ID)
	if err != nil && !errors.Is(err, storage.ErrDocumentNotFound) {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to read local document: %w", err)
	}

	stamp := s.clock.Tick()
	if existing != nil {
		stamp = max(stamp, existing.UpdatedAt+1)
		if saved.CreatedAt == 0 {
			saved.CreatedAt = existing.CreatedAt
		}
		if saved.OwnerID == "" {
			saved.OwnerID = existing.OwnerID
		}
	}
	saved.UpdatedAt = stamp
	s.clock.Update(stamp)
	if saved.CreatedAt == 0 {
		saved.CreatedAt = stamp
	}

	if err := saved.Validate(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.store.SaveDocument(ctx, collection, saved, true); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to save local document: %w", err)
	}
	s.mu.Unlock()

	s.logger.Debug("Local document saved", "collection", collection, "doc_id", saved.ID, "updated_at", saved.UpdatedAt)
	s.markChanged(ctx)
	return saved, nil
}

// Delete помечает документ удаленным (tombstone) и ставит его в отправку
func (s *Service) Delete(ctx context.Context, collection, id string) (*models.Document, error) {
	s.mu.Lock()
	existing, err := s.store.GetDocument(ctx, collection, id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if existing.Deleted {
		s.mu.Unlock()
		return existing, nil
	}

	tomb := existing.Tombstone(max(s.clock.Tick(), existing.UpdatedAt+1))
	s.clock.Update(tomb.UpdatedAt)
	if err := s.store.SaveDocument(ctx, collection, tomb, true); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to save tombstone: %w", err)
	}
	s.mu.Unlock()

	s.logger.Debug("Local document deleted", "collection", collection, "doc_id", id)
	s.markChanged(ctx)
	return tomb, nil
}

// Get returns a live local document
func (s *Service) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if doc.Deleted {
		return nil, storage.ErrDocumentNotFound
	}
	return doc, nil
}

// List returns live local documents of the collection
func (s *Service) List(ctx context.Context, collection string) ([]*models.Document, error) {
	docs, err := s.store.ListDocuments(ctx, collection)
	if err != nil {
		return nil, err
	}
	live := docs[:0]
	for _, d := range docs {
		if !d.Deleted {
			live = append(live, d)
		}
	}
	return live, nil
}

// Sync выполняет один обмен коллекции, затем обрабатывает очередь ретраев
// и только после этого фиксирует watermark.
func (s *Service) Sync(ctx context.Context, collection string) (*Result, error) {
	s.updateState(func(st *State) { st.Syncing = true })
	defer s.updateState(func(st *State) { st.Syncing = false })

	res, err := s.exchange(ctx, collection)
	if err != nil {
		s.recordFailure(ctx, collection, err)
		return nil, err
	}

	if _, err := s.queue.ProcessBatch(ctx); err != nil {
		s.logger.Warn("Retry queue pass failed", "error", err)
	}

	if err := s.store.AdvanceWatermark(ctx, collection, res.Watermark); err != nil {
		s.recordFailure(ctx, collection, err)
		return nil, fmt.Errorf("failed to commit watermark: %w", err)
	}

	s.recordSuccess(ctx)
	s.logger.Info("Synchronization completed",
		"collection", collection,
		"pushed", res.Pushed,
		"deltas", res.Deltas,
		"pulled", res.Pulled,
		"merged", res.Merged,
		"conflicts", res.Conflicts,
		"rejected", res.Rejected,
		"failed", res.Failed,
		"resend", res.Resend,
		"watermark", res.Watermark,
	)
	return res, nil
}

// SyncAll synchronizes every configured collection
func (s *Service) SyncAll(ctx context.Context) ([]*Result, error) {
	var (
		results []*Result
		errs    []error
	)
	for _, collection := range s.config.Collections {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.Sync(ctx, collection)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", collection, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// exchange отправляет dirty документы и сливает ответ сервера.
// Watermark не фиксируется.
func (s *Service) exchange(ctx context.Context, collection string) (*Result, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	watermark, err := s.store.GetWatermark(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to read watermark: %w", err)
	}
	dirty, err := s.store.DirtyDocuments(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to collect local changes: %w", err)
	}

	res := &Result{Collection: collection}
	req := api.SyncRequest{
		ChangedDocs:       make([]*models.Document, 0, len(dirty)),
		LastSyncTimestamp: watermark,
	}
	sent := make(map[string]*models.Document, len(dirty))
	for _, doc := range dirty {
		unit := s.encode(ctx, collection, doc)
		if unit.Kind == delta.KindDelta {
			req.ChangedDeltas = append(req.ChangedDeltas, unit.Delta)
			res.Deltas++
		} else {
			req.ChangedDocs = append(req.ChangedDocs, doc)
			res.Pushed++
		}
		sent[doc.ID] = doc
	}

	resp, err := s.transport.Sync(ctx, collection, req)
	if err != nil {
		return nil, err
	}

	results := resp.SyncResults
	res.Conflicts = results.Conflicts
	res.Rejected = results.Rejected
	res.Failed = results.Failed
	res.Resend = len(results.Resend)
	res.Pulled = len(resp.Docs)
	res.Watermark = max(resp.Timestamp, watermark)

	// без shadow следующая отправка пойдет целиком
	keepDirty := make(map[string]bool)
	for _, id := range results.Resend {
		keepDirty[id] = true
		if err := s.store.DeleteShadow(ctx, collection, id); err != nil {
			s.logger.Warn("Failed to drop shadow", "collection", collection, "doc_id", id, "error", err)
		}
	}

	permanent := make(map[string]bool)
	for _, e := range results.Errors {
		switch {
		case e.Permanent():
			permanent[e.ID] = true
			s.logger.Warn("Document rejected by server",
				"collection", collection,
				"doc_id", e.ID,
				"reason", e.Reason,
				"error", e.Error,
			)
		case e.Reason == api.ReasonTransient, e.Reason == api.ReasonDeltaApply:
			keepDirty[e.ID] = true
		}
	}

	received := make(map[string]bool, len(resp.Docs))
	for _, doc := range resp.Docs {
		if doc == nil || doc.ID == "" {
			continue
		}
		received[doc.ID] = true
		var acked *models.Document
		if !keepDirty[doc.ID] {
			acked = sent[doc.ID]
		}
		merged, err := s.applyRemote(ctx, collection, doc, acked)
		if err != nil {
			s.logger.Warn("Local merge failed, queued for retry", "collection", collection, "doc_id", doc.ID, "error", err)
			s.enqueuePull(ctx, collection, doc, err)
			continue
		}
		if merged {
			res.Merged++
		}
	}

	for id, doc := range sent {
		if keepDirty[id] {
			continue
		}
		if _, err := s.store.ClearDirty(ctx, collection, id, doc.UpdatedAt); err != nil {
			s.logger.Warn("Failed to clear dirty flag", "collection", collection, "doc_id", id, "error", err)
			continue
		}
		if !received[id] && !permanent[id] {
			// сервер принял версию, но не вернул ее (скрыта transform)
			if err := s.store.SaveShadow(ctx, collection, doc); err != nil {
				s.logger.Warn("Failed to save shadow", "collection", collection, "doc_id", id, "error", err)
			}
		}
	}

	return res, nil
}

// encode строит единицу передачи относительно shadow; при любой ошибке: целиком
func (s *Service) encode(ctx context.Context, collection string, doc *models.Document) delta.TransferUnit {
	shadow, err := s.store.GetShadow(ctx, collection, doc.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrDocumentNotFound) {
			s.logger.Debug("Shadow unavailable, sending full document", "doc_id", doc.ID, "error", err)
		}
		return delta.Full(doc)
	}
	unit, err := s.codec.ComputeTransferUnit(shadow, doc)
	if err != nil {
		return delta.Full(doc)
	}
	return unit
}

// applyRemote применяет серверную версию. Сервер авторитетен: чистая локальная
// копия и копия, отправленная в этом обмене (acked) и с тех пор не менявшаяся,
// заменяются целиком. Локальная правка, которую сервер еще не рассмотрел,
// остается dirty и уйдет в следующий обмен; конфликт решает политика коллекции
// на сервере. Shadow обновляется в любом случае.
func (s *Service) applyRemote(ctx context.Context, collection string, incoming, acked *models.Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	local, err := s.store.GetDocument(ctx, collection, incoming.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrDocumentNotFound) {
			return false, err
		}
		local = nil
	}

	if err := s.store.SaveShadow(ctx, collection, incoming); err != nil {
		return false, err
	}
	s.clock.Update(incoming.UpdatedAt)

	if local.Equal(incoming) {
		// эхо собственной записи
		return false, nil
	}

	adopt := local == nil || (acked != nil && local.UpdatedAt == acked.UpdatedAt)
	if !adopt {
		dirty, err := s.store.IsDirty(ctx, collection, incoming.ID)
		if err != nil {
			return false, err
		}
		adopt = !dirty
	}
	if !adopt {
		s.logger.Debug("Unsent local edit kept over server version",
			"collection", collection,
			"doc_id", incoming.ID,
			"local_updated_at", local.UpdatedAt,
			"server_updated_at", incoming.UpdatedAt,
		)
		return false, nil
	}
	return true, s.store.SaveDocument(ctx, collection, incoming, false)
}

func (s *Service) enqueuePull(ctx context.Context, collection string, doc *models.Document, cause error) {
	op := &models.PendingOperation{
		Collection: collection,
		DocumentID: doc.ID,
		Direction:  models.DirectionPull,
		Document:   doc,
		LastError:  cause.Error(),
	}
	if err := s.queue.Enqueue(ctx, op); err != nil {
		s.logger.Error("Failed to enqueue pull operation", "collection", collection, "doc_id", doc.ID, "error", err)
	}
}

// recordFailure ставит push операцию коллекции в очередь, если обмен можно
// повторить. Счетчик попыток не сбрасывается, пока операция в очереди.
func (s *Service) recordFailure(ctx context.Context, collection string, err error) {
	retryable, after := s.classify(err)
	s.updateState(func(st *State) {
		st.LastError = err.Error()
		if retryable {
			st.Online = false
		}
	})
	s.logger.Warn("Synchronization failed", "collection", collection, "retryable", retryable, "error", err)

	if !retryable || ctx.Err() != nil {
		return
	}
	op := &models.PendingOperation{
		ID:         "push:" + collection,
		Collection: collection,
		Direction:  models.DirectionPush,
		LastError:  err.Error(),
	}
	if after > 0 {
		op.NextAttempt = s.now().Add(after)
	}
	// повторная неудача считается попыткой той же операции
	if _, qerr := s.queue.RecordFailure(ctx, op); qerr != nil {
		s.logger.Error("Failed to enqueue push operation", "collection", collection, "error", qerr)
	}
	s.refreshPending(ctx)
}

func (s *Service) recordSuccess(ctx context.Context) {
	now := s.now()
	s.updateState(func(st *State) {
		st.Online = true
		st.LastError = ""
		st.LastSyncAt = now
	})
	s.refreshPending(ctx)
}

// deliver доставка операций очереди ретраев реплики
func (s *Service) deliver(ctx context.Context, op *models.PendingOperation) error {
	switch op.Direction {
	case models.DirectionPull:
		if op.Document == nil {
			return nil
		}
		_, err := s.applyRemote(ctx, op.Collection, op.Document, nil)
		return err
	case models.DirectionPush:
		res, err := s.exchange(ctx, op.Collection)
		if err != nil {
			return err
		}
		if err := s.store.AdvanceWatermark(ctx, op.Collection, res.Watermark); err != nil {
			return err
		}
		s.recordSuccess(ctx)
		return nil
	default:
		return nil
	}
}

// Run drives periodic auto-sync and debounced sync-on-mutation until ctx
// is cancelled. The retry queue scheduler runs alongside.
func (s *Service) Run(ctx context.Context) error {
	queueDone := make(chan error, 1)
	go func() {
		queueDone <- s.queue.Run(ctx)
	}()

	var tick <-chan time.Time
	if s.config.SyncInterval > 0 {
		ticker := time.NewTicker(s.config.SyncInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	debounce := time.NewTimer(s.config.Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	syncAll := func() {
		if _, err := s.SyncAll(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("Auto-sync failed", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			<-queueDone
			return nil
		case <-tick:
			syncAll()
		case <-s.changed:
			debounce.Reset(s.config.Debounce)
		case <-debounce.C:
			syncAll()
		}
	}
}

// markChanged сигнализирует о локальном изменении (без блокировки)
func (s *Service) markChanged(ctx context.Context) {
	select {
	case s.changed <- struct{}{}:
	default:
	}
	s.refreshPending(ctx)
}

func (s *Service) refreshPending(ctx context.Context) {
	dirty, err := s.store.DirtyCount(ctx)
	if err != nil {
		s.logger.Debug("Failed to count dirty documents", "error", err)
		return
	}
	queued := s.queue.Len()
	s.updateState(func(st *State) {
		st.Pending = dirty
		st.Queued = queued
	})
}
