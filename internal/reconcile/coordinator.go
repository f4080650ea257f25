// Package reconcile drives sync exchanges against the authoritative store:
// admission, per-document resolution with atomic check-and-set, and the
// outgoing change set since the actor's watermark.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/docsync/internal/admission"
	"github.com/iudanet/docsync/internal/delta"
	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/observability"
	"github.com/iudanet/docsync/internal/resolver"
	"github.com/iudanet/docsync/internal/server/storage"
)

// DefaultMaxAttempts число попыток check-and-set одного документа при гонке записей
const DefaultMaxAttempts = 5

//go:generate moq -out admitter_mock.go . Admitter

// Admitter gates exchanges per actor and origin
type Admitter interface {
	Admit(actorID, origin string) admission.Decision
	ObserveResponse(actorID string, d time.Duration)
}

// Enqueuer accepts failed operations for later redelivery
type Enqueuer interface {
	Enqueue(ctx context.Context, op *models.PendingOperation) error
}

// ExchangeRequest одна синхронизация коллекции
type ExchangeRequest struct {
	Changes    []*models.Document
	Deltas     []*delta.Delta
	Collection string
	ActorID    string
	Origin     string // сетевой источник (IP)
	Watermark  int64
}

// ExchangeResult итог обмена
type ExchangeResult struct {
	Documents []*models.Document // изменения сервера для реплики
	Errors    []DocumentError
	Resend    []string // документы, которые реплика должна прислать целиком
	Watermark int64
	Submitted int
	Added     int
	Updated   int
	Deleted   int
	Conflicts int
	Rejected  int
	Failed    int
}

// AllRejected reports that every submitted document was refused by
// ownership, shape or collection validation.
func (r *ExchangeResult) AllRejected() bool {
	return r.Submitted > 0 && r.Rejected == r.Submitted
}

// Coordinator authoritative-side reconciliation. Holds no lock across
// exchanges: per-document atomicity comes from the store.
type Coordinator struct {
	docs        storage.DocumentStore
	conflicts   storage.ConflictStore
	admitter    Admitter
	retries     Enqueuer
	registry    *Registry
	codec       *delta.Codec
	logger      *slog.Logger
	now         func() time.Time
	maxAttempts int
	mu          sync.RWMutex
}

// Option настраивает Coordinator
type Option func(*Coordinator)

func WithCodec(codec *delta.Codec) Option {
	return func(c *Coordinator) {
		c.codec = codec
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithRetryQueue(q Enqueuer) Option {
	return func(c *Coordinator) {
		c.retries = q
	}
}

// NewCoordinator creates a coordinator. admitter may be nil (admit everything).
func NewCoordinator(
	registry *Registry,
	docs storage.DocumentStore,
	conflicts storage.ConflictStore,
	admitter Admitter,
	logger *slog.Logger,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		registry:    registry,
		docs:        docs,
		conflicts:   conflicts,
		admitter:    admitter,
		logger:      logger,
		codec:       delta.NewCodec(),
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetRetryQueue attaches the retry queue. The queue delivers through
// Redeliver, so it is usually created after the coordinator.
func (c *Coordinator) SetRetryQueue(q Enqueuer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retries = q
}

func (c *Coordinator) retryQueue() Enqueuer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.retries
}

// Registry returns the collection registry
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// applied результат применения одного документа
type applied struct {
	echo   *models.Document // версия сервера, которую нужно вернуть реплике
	docErr *DocumentError
	doc    *models.Document
	action resolver.Action
}

func rejected(id, reason string, err error) applied {
	return applied{docErr: &DocumentError{DocumentID: id, Reason: reason, Message: err.Error()}}
}

// Exchange runs one sync exchange for the actor
func (c *Coordinator) Exchange(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	start := c.now()

	coll, ok := c.registry.Get(req.Collection)
	if !ok {
		return nil, c.abort(req, StageAdmit, fmt.Errorf("%w: %q", ErrUnknownCollection, req.Collection), 0, start)
	}

	if c.admitter != nil {
		decision := c.admitter.Admit(req.ActorID, req.Origin)
		switch decision.Verdict {
		case admission.Throttle:
			return nil, c.abort(req, StageAdmit, ErrThrottled, decision.RetryAfter, start)
		case admission.Block:
			return nil, c.abort(req, StageAdmit, ErrBlocked, decision.RetryAfter, start)
		}
		defer func() {
			c.admitter.ObserveResponse(req.ActorID, c.now().Sub(start))
		}()
	}

	result := &ExchangeResult{Submitted: len(req.Changes) + len(req.Deltas)}
	echoes := make(map[string]*models.Document)

	for _, doc := range req.Changes {
		if err := ctx.Err(); err != nil {
			return result, c.abort(req, StageIngest, err, 0, start)
		}
		if doc == nil {
			result.Rejected++
			result.Errors = append(result.Errors, DocumentError{Reason: ReasonInvalidDocument, Message: "empty document"})
			continue
		}

		candidate := doc.Clone()
		if candidate.ID == "" {
			candidate.ID = uuid.New().String()
		}
		if candidate.CreatedAt == 0 {
			candidate.CreatedAt = candidate.UpdatedAt
		}

		if err := c.ingestInto(ctx, coll, req.ActorID, candidate, result, echoes); err != nil {
			return result, c.abort(req, StageIngest, err, 0, start)
		}
	}

	for _, d := range req.Deltas {
		if err := ctx.Err(); err != nil {
			return result, c.abort(req, StageIngest, err, 0, start)
		}
		if d == nil {
			result.Rejected++
			result.Errors = append(result.Errors, DocumentError{Reason: ReasonInvalidDocument, Message: "empty delta"})
			continue
		}

		base, err := c.get(ctx, coll.name, d.DocumentID)
		if err != nil {
			if errors.Is(err, ErrTransientStore) {
				// без базы дельту не применить; реплика пришлет документ заново
				result.Failed++
				result.Resend = append(result.Resend, d.DocumentID)
				result.Errors = append(result.Errors, DocumentError{DocumentID: d.DocumentID, Reason: ReasonTransient, Message: err.Error()})
				continue
			}
			return result, c.abort(req, StageIngest, err, 0, start)
		}

		doc, err := c.codec.ApplyDelta(base, d)
		if err != nil {
			result.Failed++
			result.Resend = append(result.Resend, d.DocumentID)
			result.Errors = append(result.Errors, DocumentError{DocumentID: d.DocumentID, Reason: ReasonDeltaApply, Message: err.Error()})
			c.logger.Debug("Delta rejected, full document requested",
				"collection", coll.name,
				"doc_id", d.DocumentID,
				"error", err,
			)
			continue
		}

		if err := c.ingestInto(ctx, coll, req.ActorID, doc, result, echoes); err != nil {
			return result, c.abort(req, StageIngest, err, 0, start)
		}
	}

	if err := c.outgoing(ctx, coll, req, result, echoes); err != nil {
		return result, c.abort(req, StageOutgoing, err, 0, start)
	}

	duration := c.now().Sub(start)
	observability.RecordExchange(coll.name, "ok", duration)
	c.logger.Info("Exchange completed",
		"collection", coll.name,
		"actor_id", req.ActorID,
		"submitted", result.Submitted,
		"added", result.Added,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"conflicts", result.Conflicts,
		"rejected", result.Rejected,
		"failed", result.Failed,
		"outgoing", len(result.Documents),
		"watermark", result.Watermark,
		"duration", duration,
	)

	return result, nil
}

func (c *Coordinator) abort(req ExchangeRequest, stage Stage, err error, retryAfter time.Duration, start time.Time) error {
	observability.RecordExchange(req.Collection, string(stage), c.now().Sub(start))

	level := slog.LevelWarn
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrTransientStore) {
		level = slog.LevelError
	}
	c.logger.Log(context.Background(), level, "Exchange aborted",
		"collection", req.Collection,
		"actor_id", req.ActorID,
		"stage", string(stage),
		"error", err,
	)

	return &ExchangeError{Stage: stage, Err: err, RetryAfter: retryAfter}
}

// ingestInto применяет документ и учитывает результат. Возвращает ошибку
// только если обмен нужно прервать.
func (c *Coordinator) ingestInto(
	ctx context.Context,
	coll *Collection,
	actorID string,
	doc *models.Document,
	result *ExchangeResult,
	echoes map[string]*models.Document,
) error {
	res, err := c.ingest(ctx, coll, actorID, doc)
	if err != nil {
		if !errors.Is(err, ErrTransientStore) {
			return err
		}
		result.Failed++
		result.Errors = append(result.Errors, DocumentError{DocumentID: doc.ID, Reason: ReasonTransient, Message: err.Error()})
		c.enqueue(ctx, coll.name, actorID, doc, err)
		return nil
	}

	if res.docErr != nil {
		result.Errors = append(result.Errors, *res.docErr)
		if res.docErr.Reason != ReasonConflictUnresolved {
			result.Rejected++
			observability.RecordDocument(coll.name, res.docErr.Reason)
			return nil
		}
	}

	switch res.action {
	case resolver.ActionInsert:
		result.Added++
	case resolver.ActionAccept:
		if res.doc.Deleted {
			result.Deleted++
		} else {
			result.Updated++
		}
	case resolver.ActionReject, resolver.ActionMerge, resolver.ActionQueue:
		result.Conflicts++
	}
	if res.echo != nil {
		echoes[res.echo.ID] = res.echo
	}
	observability.RecordDocument(coll.name, res.action.String())
	return nil
}

func (c *Coordinator) enqueue(ctx context.Context, collection, actorID string, doc *models.Document, cause error) {
	q := c.retryQueue()
	if q == nil {
		c.logger.Error("Transient failure with no retry queue attached",
			"collection", collection,
			"doc_id", doc.ID,
			"error", cause,
		)
		return
	}

	op := &models.PendingOperation{
		Collection: collection,
		DocumentID: doc.ID,
		ActorID:    actorID,
		Direction:  models.DirectionPush,
		Document:   doc,
		LastError:  cause.Error(),
		Timestamp:  c.now().UnixMilli(),
	}
	if err := q.Enqueue(context.WithoutCancel(ctx), op); err != nil {
		c.logger.Error("Failed to enqueue operation for retry",
			"collection", collection,
			"doc_id", doc.ID,
			"error", err,
		)
	}
}

// ingest проверяет и применяет один документ через атомарный check-and-set.
// Ошибка возвращается только для отказов хранилища и отмены контекста.
func (c *Coordinator) ingest(ctx context.Context, coll *Collection, actorID string, doc *models.Document) (applied, error) {
	if err := doc.Validate(); err != nil {
		return rejected(doc.ID, ReasonInvalidDocument, err), nil
	}
	if coll.ownerScoped && doc.OwnerID == "" {
		doc.OwnerID = actorID
	}

	strategy := coll.Strategy(actorID)
	for attempt := 1; ; attempt++ {
		server, err := c.get(ctx, coll.name, doc.ID)
		if err != nil {
			return applied{}, err
		}
		// порядок проверок: форма, владелец, валидатор коллекции
		if err := resolver.Authorize(server, doc, actorID); err != nil {
			return rejected(doc.ID, ReasonOwnership, err), nil
		}
		if err := coll.validate(doc, actorID); err != nil {
			return rejected(doc.ID, ReasonValidation, err), nil
		}

		candidate := doc
		if candidate.OwnerID == "" && server != nil && server.OwnerID != "" {
			candidate = doc.Clone()
			candidate.OwnerID = server.OwnerID
		}

		outcome := resolver.Resolve(server, candidate, strategy)
		res, err := c.commit(ctx, coll, actorID, server, candidate, outcome)
		if errors.Is(err, storage.ErrVersionConflict) {
			if attempt < c.maxAttempts {
				c.logger.Debug("Concurrent write detected, resolving again",
					"collection", coll.name,
					"doc_id", doc.ID,
					"attempt", attempt,
				)
				continue
			}
			return applied{}, fmt.Errorf("%w: document %q still contended after %d attempts", ErrTransientStore, doc.ID, attempt)
		}
		return res, err
	}
}

func (c *Coordinator) commit(
	ctx context.Context,
	coll *Collection,
	actorID string,
	server, client *models.Document,
	outcome resolver.Outcome,
) (applied, error) {
	res := applied{action: outcome.Action, doc: client}

	switch outcome.Action {
	case resolver.ActionNoOp:
		return res, nil

	case resolver.ActionInsert:
		return res, c.put(ctx, coll.name, outcome.Document, 0)

	case resolver.ActionAccept:
		if server.UpdatedAt <= outcome.Document.UpdatedAt {
			return res, c.put(ctx, coll.name, outcome.Document, server.UpdatedAt)
		}
		// client-wins поверх более новой серверной версии: updatedAt не должен убывать
		accepted := outcome.Document.Clone()
		accepted.UpdatedAt = max(server.UpdatedAt+1, c.now().UnixMilli())
		if err := c.put(ctx, coll.name, accepted, server.UpdatedAt); err != nil {
			return res, err
		}
		res.doc = accepted
		res.echo = accepted
		return res, nil

	case resolver.ActionReject:
		res.echo = server
		return res, nil

	case resolver.ActionMerge:
		merged := outcome.Document.Clone()
		merged.ID = client.ID
		if merged.OwnerID == "" {
			merged.OwnerID = server.OwnerID
		}
		if merged.CreatedAt == 0 {
			merged.CreatedAt = server.CreatedAt
		}
		merged.UpdatedAt = max(server.UpdatedAt+1, c.now().UnixMilli())
		if err := merged.Validate(); err != nil {
			return rejected(client.ID, ReasonInvalidDocument, err), nil
		}
		if err := c.put(ctx, coll.name, merged, server.UpdatedAt); err != nil {
			return res, err
		}
		res.doc = merged
		res.echo = merged
		return res, nil

	case resolver.ActionQueue:
		record := &models.ConflictRecord{
			ID:         uuid.New().String(),
			Collection: coll.name,
			DocumentID: client.ID,
			ActorID:    actorID,
			Server:     outcome.Server,
			Client:     outcome.Client,
			CreatedAt:  c.now(),
		}
		if err := c.conflicts.SaveConflict(ctx, record); err != nil {
			return res, storeErr(err)
		}
		c.logger.Info("Conflict queued for manual resolution",
			"collection", coll.name,
			"doc_id", client.ID,
			"actor_id", actorID,
		)
		res.echo = server
		res.docErr = &DocumentError{
			DocumentID: client.ID,
			Reason:     ReasonConflictUnresolved,
			Message:    ErrConflictUnresolved.Error(),
		}
		return res, nil
	}

	return res, fmt.Errorf("unexpected resolver action %s", outcome.Action)
}

func (c *Coordinator) outgoing(
	ctx context.Context,
	coll *Collection,
	req ExchangeRequest,
	result *ExchangeResult,
	echoes map[string]*models.Document,
) error {
	owner := ""
	if coll.ownerScoped {
		owner = req.ActorID
	}

	docs, watermark, err := c.docs.QueryChangedSince(ctx, coll.name, req.Watermark, owner)
	if err != nil {
		return storeErr(err)
	}

	seen := make(map[string]bool, len(docs))
	out := make([]*models.Document, 0, len(docs)+len(echoes))
	for _, doc := range docs {
		seen[doc.ID] = true
		if t := coll.outgoing(doc, req.ActorID); t != nil {
			out = append(out, t)
		}
	}

	// серверные версии отклоненных документов возвращаются даже если они
	// старше watermark, иначе реплика не сойдется с сервером
	ids := make([]string, 0, len(echoes))
	for id := range echoes {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		if t := coll.outgoing(echoes[id], req.ActorID); t != nil {
			out = append(out, t)
		}
	}

	result.Documents = out
	result.Watermark = max(watermark, req.Watermark)
	return nil
}

// Redeliver is the retry queue delivery function. It takes the same atomic
// path as a live exchange. Permanently rejected operations are dropped.
func (c *Coordinator) Redeliver(ctx context.Context, op *models.PendingOperation) error {
	logger := c.logger.With("op_id", op.ID, "collection", op.Collection, "doc_id", op.DocumentID)

	if op.Direction != models.DirectionPush || op.Document == nil {
		logger.Warn("Discarding operation that cannot be redelivered", "direction", op.Direction)
		return nil
	}
	coll, ok := c.registry.Get(op.Collection)
	if !ok {
		logger.Warn("Discarding operation for unknown collection")
		return nil
	}

	res, err := c.ingest(ctx, coll, op.ActorID, op.Document.Clone())
	if err != nil {
		return err
	}
	if res.docErr != nil && res.docErr.Reason != ReasonConflictUnresolved {
		logger.Warn("Redelivered operation rejected", "reason", res.docErr.Reason, "error", res.docErr.Message)
		return nil
	}

	observability.RecordDocument(coll.name, res.action.String())
	logger.Info("Operation redelivered", "action", res.action.String(), "retries", op.Retries)
	return nil
}

// ListConflicts returns pending manual conflicts raised by the actor
// (all actors when actorID is empty).
func (c *Coordinator) ListConflicts(ctx context.Context, collection, actorID string) ([]*models.ConflictRecord, error) {
	if _, ok := c.registry.Get(collection); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	records, err := c.conflicts.ListConflicts(ctx, collection, actorID)
	if err != nil {
		return nil, storeErr(err)
	}
	return records, nil
}

// ResolveConflict writes the chosen version (the client version of the
// record when chosen is nil) stamped past the current server copy and
// removes the conflict record.
func (c *Coordinator) ResolveConflict(ctx context.Context, collection, documentID, actorID string, chosen *models.Document) (*models.Document, error) {
	coll, ok := c.registry.Get(collection)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	record, err := c.conflicts.GetConflict(ctx, collection, documentID)
	if err != nil {
		if errors.Is(err, storage.ErrConflictNotFound) {
			return nil, err
		}
		return nil, storeErr(err)
	}
	if record.ActorID != actorID {
		return nil, fmt.Errorf("%w: conflict on %q belongs to another actor", resolver.ErrOwnershipViolation, documentID)
	}

	if chosen == nil {
		chosen = record.Client
	}
	candidate := chosen.Clone()
	candidate.ID = documentID
	if candidate.CreatedAt == 0 && record.Server != nil {
		candidate.CreatedAt = record.Server.CreatedAt
	}
	if coll.ownerScoped && candidate.OwnerID == "" {
		candidate.OwnerID = actorID
	}

	for attempt := 1; ; attempt++ {
		server, err := c.get(ctx, collection, documentID)
		if err != nil {
			return nil, err
		}
		if err := resolver.Authorize(server, candidate, actorID); err != nil {
			return nil, err
		}

		stamped := candidate.Clone()
		expected := int64(0)
		floor := c.now().UnixMilli()
		if server != nil {
			expected = server.UpdatedAt
			floor = max(floor, server.UpdatedAt+1)
			if stamped.OwnerID == "" {
				stamped.OwnerID = server.OwnerID
			}
		}
		stamped.UpdatedAt = max(stamped.UpdatedAt, floor)
		if stamped.CreatedAt == 0 {
			stamped.CreatedAt = stamped.UpdatedAt
		}
		if err := stamped.Validate(); err != nil {
			return nil, err
		}
		if err := coll.validate(stamped, actorID); err != nil {
			return nil, err
		}

		err = c.put(ctx, collection, stamped, expected)
		if errors.Is(err, storage.ErrVersionConflict) && attempt < c.maxAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}

		if err := c.conflicts.DeleteConflict(ctx, collection, documentID); err != nil && !errors.Is(err, storage.ErrConflictNotFound) {
			c.logger.Warn("Resolved conflict record was not removed",
				"collection", collection,
				"doc_id", documentID,
				"error", err,
			)
		}

		c.logger.Info("Conflict resolved",
			"collection", collection,
			"doc_id", documentID,
			"actor_id", actorID,
			"updated_at", stamped.UpdatedAt,
		)
		return stamped, nil
	}
}

func (c *Coordinator) get(ctx context.Context, collection, id string) (*models.Document, error) {
	doc, err := c.docs.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, storeErr(err)
	}
	return doc, nil
}

func (c *Coordinator) put(ctx context.Context, collection string, doc *models.Document, expected int64) error {
	if err := c.docs.AtomicPut(ctx, collection, doc, expected); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			return err
		}
		return storeErr(err)
	}
	return nil
}

// storeErr приводит ошибки хранилища к таксономии обмена
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, storage.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransientStore, err)
	}
}
