package storage

import (
	"context"

	"github.com/iudanet/docsync/internal/models"
)

//go:generate moq -out documents_mock.go . DocumentStore

// DocumentStore defines the authoritative document store used by the reconciliation coordinator
type DocumentStore interface {
	// Get retrieves a document (tombstones included) by collection and ID
	// Returns ErrDocumentNotFound if document doesn't exist
	Get(ctx context.Context, collection, id string) (*models.Document, error)

	// AtomicPut writes the document only if the stored version still has
	// UpdatedAt == expectedPriorVersion. expectedPriorVersion == 0 means
	// the document must not exist yet.
	// Returns ErrVersionConflict if another write raced in between
	AtomicPut(ctx context.Context, collection string, doc *models.Document, expectedPriorVersion int64) error

	// QueryChangedSince returns documents (tombstones included) committed after
	// the watermark, optionally restricted to ownerFilter, together with
	// the new watermark. Every later commit gets a commit stamp greater than
	// the returned watermark.
	QueryChangedSince(ctx context.Context, collection string, watermark int64, ownerFilter string) ([]*models.Document, int64, error)
}
