package models

import (
	"errors"
	"fmt"
	"time"
)

// SyncWatermark хранит момент, до которого актор получил изменения
// авторитетного хранилища для конкретной коллекции.
type SyncWatermark struct {
	Collection string `json:"collection"`
	ActorID    string `json:"actor_id"`
	Timestamp  int64  `json:"timestamp"`
}

// Advance сдвигает watermark вперед. Значения меньше текущего игнорируются.
// Возвращает true, если watermark изменился.
func (w *SyncWatermark) Advance(ts int64) bool {
	if ts <= w.Timestamp {
		return false
	}
	w.Timestamp = ts
	return true
}

// ConflictRecord хранит обе конкурирующие версии документа.
// Создается только при политике manual и удаляется после разрешения.
type ConflictRecord struct {
	CreatedAt  time.Time `json:"created_at"`
	Server     *Document `json:"server"`
	Client     *Document `json:"client"`
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	DocumentID string    `json:"document_id"`
	ActorID    string    `json:"actor_id"`
	Resolved   bool      `json:"resolved"`
}

// Direction направление операции синхронизации
type Direction string

const (
	// DirectionPush операция отправки изменений в авторитетное хранилище
	DirectionPush Direction = "push"
	// DirectionPull операция применения изменений сервера к локальной реплике
	DirectionPull Direction = "pull"
)

// PendingOperation операция, ожидающая повторной доставки в очереди ретраев
type PendingOperation struct {
	NextAttempt time.Time `json:"next_attempt"`
	Document    *Document `json:"document,omitempty"`
	ID          string    `json:"id"`
	Collection  string    `json:"collection"`
	DocumentID  string    `json:"document_id"`
	ActorID     string    `json:"actor_id"`
	Direction   Direction `json:"direction"`
	LastError   string    `json:"last_error,omitempty"`
	Timestamp   int64     `json:"timestamp"` // Timestamp время постановки в очередь (unix ms)
	Retries     int       `json:"retries"`
}

// Validate проверяет, что операцию можно поставить в очередь
func (op *PendingOperation) Validate() error {
	if op.Collection == "" {
		return errors.New("pending operation: empty collection")
	}
	switch op.Direction {
	case DirectionPush, DirectionPull:
	default:
		return fmt.Errorf("pending operation: unknown direction %q", op.Direction)
	}
	return nil
}

// Clone создает глубокую копию операции
func (op *PendingOperation) Clone() *PendingOperation {
	clone := *op
	clone.Document = op.Document.Clone()
	return &clone
}
