package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/docsync/pkg/api"
)

var (
	// ErrUnknownCollection коллекция не зарегистрирована
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrValidationFailed документ отклонен политикой коллекции
	ErrValidationFailed = errors.New("validation failed")

	// ErrConflictUnresolved конфликт поставлен в очередь ручного разрешения
	ErrConflictUnresolved = errors.New("conflict awaits manual resolution")

	// ErrTransientStore временная ошибка хранилища, операция уйдет в очередь ретраев
	ErrTransientStore = errors.New("transient store error")

	// ErrStoreUnavailable хранилище недоступно, обмен прерван
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrThrottled актор превысил лимит запросов
	ErrThrottled = errors.New("throttled")

	// ErrBlocked актор временно заблокирован
	ErrBlocked = errors.New("blocked")
)

// Stage этап обмена, на котором он был прерван
type Stage string

const (
	StageAdmit    Stage = "admit"
	StageIngest   Stage = "ingest"
	StageOutgoing Stage = "outgoing"
)

// ExchangeError aborts a whole exchange. Stage tells the caller how far the
// exchange got; documents committed before the failure stay committed.
type ExchangeError struct {
	Err        error
	Stage      Stage
	RetryAfter time.Duration
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange aborted at %s: %v", e.Stage, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// Reasons reported per document in ExchangeResult.Errors
const (
	ReasonInvalidDocument    = api.ReasonInvalidDocument
	ReasonOwnership          = api.ReasonOwnership
	ReasonValidation         = api.ReasonValidation
	ReasonTransient          = api.ReasonTransient
	ReasonDeltaApply         = api.ReasonDeltaApply
	ReasonConflictUnresolved = api.ReasonConflictUnresolved
)

// DocumentError per-document failure; never aborts the batch
type DocumentError struct {
	DocumentID string
	Reason     string
	Message    string
}
