package storage

import (
	"context"

	"github.com/iudanet/docsync/internal/models"
)

//go:generate moq -out documents_mock.go . DocumentStorage

// DocumentStorage локальные копии документов реплики.
//
// Кроме самих документов хранит:
//   - dirty set: документы, измененные локально и еще не подтвержденные сервером
//     (маркер хранит updatedAt версии, которая была помечена);
//   - shadow: последняя версия документа, подтвержденная сервером, база для дельт.
type DocumentStorage interface {
	// SaveDocument stores the document. dirty=true marks it as changed
	// locally; dirty=false clears the marker in the same transaction.
	SaveDocument(ctx context.Context, collection string, doc *models.Document, dirty bool) error

	// GetDocument returns ErrDocumentNotFound if the document doesn't exist
	GetDocument(ctx context.Context, collection, id string) (*models.Document, error)

	// ListDocuments returns every document of the collection, tombstones included
	ListDocuments(ctx context.Context, collection string) ([]*models.Document, error)

	// DirtyDocuments returns documents changed locally since the last acknowledged exchange
	DirtyDocuments(ctx context.Context, collection string) ([]*models.Document, error)

	// ClearDirty removes the marker only if it still points at updatedAt,
	// so edits made during an exchange stay dirty. Reports whether it was removed.
	ClearDirty(ctx context.Context, collection, id string, updatedAt int64) (bool, error)

	// IsDirty reports whether the document carries a dirty marker
	IsDirty(ctx context.Context, collection, id string) (bool, error)

	// DirtyCount counts dirty documents across all collections
	DirtyCount(ctx context.Context) (int, error)

	// GetShadow returns ErrDocumentNotFound if there is no acknowledged version
	GetShadow(ctx context.Context, collection, id string) (*models.Document, error)
	SaveShadow(ctx context.Context, collection string, doc *models.Document) error
	DeleteShadow(ctx context.Context, collection, id string) error
}
