package storage

import (
	"context"

	"github.com/iudanet/docsync/internal/models"
)

//go:generate moq -out conflicts_mock.go . ConflictStore

// ConflictStore defines persistence of manual-resolution conflict records
type ConflictStore interface {
	// SaveConflict creates or replaces the conflict record for the document
	SaveConflict(ctx context.Context, record *models.ConflictRecord) error

	// GetConflict retrieves the conflict record for a document
	// Returns ErrConflictNotFound if there is none
	GetConflict(ctx context.Context, collection, documentID string) (*models.ConflictRecord, error)

	// ListConflicts returns unresolved conflicts of the collection raised by actorID.
	// Empty actorID lists conflicts of all actors
	ListConflicts(ctx context.Context, collection, actorID string) ([]*models.ConflictRecord, error)

	// DeleteConflict removes the conflict record
	// Returns ErrConflictNotFound if there is none
	DeleteConflict(ctx context.Context, collection, documentID string) error
}
