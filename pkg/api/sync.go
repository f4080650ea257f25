package api

import (
	"github.com/iudanet/docsync/internal/delta"
	"github.com/iudanet/docsync/internal/models"
)

// SyncRequest запрос синхронизации коллекции от реплики
type SyncRequest struct {
	ChangedDocs       []*models.Document `json:"changedDocs"`
	ChangedDeltas     []*delta.Delta     `json:"changedDeltas,omitempty"`
	LastSyncTimestamp int64              `json:"lastSyncTimestamp"`
}

// SyncResponse ответ сервера: изменения с момента watermark и итог обработки
type SyncResponse struct {
	Docs        []*models.Document `json:"docs"`
	SyncResults SyncResults        `json:"syncResults"`
	Timestamp   int64              `json:"timestamp"` // новый watermark
}

// SyncResults счетчики обработки отправленных документов
type SyncResults struct {
	Resend    []string        `json:"resend,omitempty"` // id документов, которые нужно прислать целиком
	Errors    []DocumentError `json:"errors,omitempty"`
	Added     int             `json:"added"`
	Updated   int             `json:"updated"`
	Conflicts int             `json:"conflicts"`
	Deleted   int             `json:"deleted"`
	Rejected  int             `json:"rejected"`
	Failed    int             `json:"failed"`
}

// Reasons reported in DocumentError
const (
	ReasonInvalidDocument    = "invalid_document"
	ReasonOwnership          = "ownership_violation"
	ReasonValidation         = "validation_failed"
	ReasonTransient          = "transient_store_error"
	ReasonDeltaApply         = "delta_apply_error"
	ReasonConflictUnresolved = "conflict_unresolved"
)

// Permanent reports that resubmitting the same document cannot succeed
func (e DocumentError) Permanent() bool {
	switch e.Reason {
	case ReasonInvalidDocument, ReasonOwnership, ReasonValidation:
		return true
	default:
		return false
	}
}

// DocumentError ошибка обработки одного документа
type DocumentError struct {
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// ErrorResponse ответ при прерывании всего обмена
type ErrorResponse struct {
	Error      string `json:"error"`
	Stage      string `json:"stage,omitempty"`
	RetryAfter int64  `json:"retryAfter,omitempty"` // секунды
}

// ConflictResponse конфликт, ожидающий ручного разрешения
type ConflictResponse struct {
	Server     *models.Document `json:"server"`
	Client     *models.Document `json:"client"`
	ID         string           `json:"id"`
	DocumentID string           `json:"documentId"`
	ActorID    string           `json:"actorId"`
	CreatedAt  int64            `json:"createdAt"` // unix ms
}

// ResolveConflictRequest выбранная версия документа.
// Пустой Document означает клиентскую версию из записи конфликта.
type ResolveConflictRequest struct {
	Document *models.Document `json:"document,omitempty"`
}

// ResolveConflictResponse записанная версия
type ResolveConflictResponse struct {
	Document *models.Document `json:"document"`
}

// HealthResponse ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Store   string `json:"store,omitempty"`
}
