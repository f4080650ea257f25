package storage

import (
	"context"

	"github.com/iudanet/docsync/internal/models"
)

// PendingStorage хранит очередь ретраев реплики (реализует retry.Persister)
type PendingStorage interface {
	LoadPending(ctx context.Context) ([]*models.PendingOperation, error)
	SavePending(ctx context.Context, op *models.PendingOperation) error
	DeletePending(ctx context.Context, id string) error
}
