package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/server/storage"
)

const documentColumns = `id, owner_id, created_at, updated_at, deleted, schema_version, payload`

// Get retrieves a document (tombstones included) by collection and ID
// Returns ErrDocumentNotFound if document doesn't exist
func (s *Storage) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE collection = ? AND id = ?`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, collection, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", classify(err))
	}

	return doc, nil
}

// AtomicPut writes the document only if the stored version still matches
// expectedPriorVersion (0 = document must not exist).
// Check and write happen in a single statement, so a concurrent write
// with a different version makes this call fail with ErrVersionConflict.
func (s *Storage) AtomicPut(ctx context.Context, collection string, doc *models.Document, expectedPriorVersion int64) error {
	payload, err := encodePayload(doc.Payload)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stamp := s.nextStamp()

	var result sql.Result
	if expectedPriorVersion == 0 {
		query := `
			INSERT INTO documents (
				collection, id, owner_id, created_at, updated_at,
				deleted, schema_version, payload, committed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (collection, id) DO NOTHING
		`
		result, err = tx.ExecContext(ctx, query,
			collection,
			doc.ID,
			doc.OwnerID,
			doc.CreatedAt,
			doc.UpdatedAt,
			boolToInt(doc.Deleted),
			doc.SchemaVersion,
			payload,
			stamp,
		)
	} else {
		query := `
			UPDATE documents
			SET owner_id = ?, created_at = ?, updated_at = ?, deleted = ?,
			    schema_version = ?, payload = ?, committed_at = ?
			WHERE collection = ? AND id = ? AND updated_at = ?
		`
		result, err = tx.ExecContext(ctx, query,
			doc.OwnerID,
			doc.CreatedAt,
			doc.UpdatedAt,
			boolToInt(doc.Deleted),
			doc.SchemaVersion,
			payload,
			stamp,
			collection,
			doc.ID,
			expectedPriorVersion,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to write document: %w", classify(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", classify(err))
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s/%s expected version %d", storage.ErrVersionConflict, collection, doc.ID, expectedPriorVersion)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", classify(err))
	}

	return nil
}

// QueryChangedSince returns documents committed after watermark together
// with a new watermark. The watermark is reserved inside the read
// transaction, so any write committed later gets a greater stamp.
func (s *Storage) QueryChangedSince(ctx context.Context, collection string, watermark int64, ownerFilter string) ([]*models.Document, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	next := s.nextStamp()

	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE collection = ? AND committed_at > ?`
	args := []any{collection, watermark}
	if ownerFilter != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerFilter)
	}
	query += ` ORDER BY committed_at ASC`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query changed documents: %w", classify(err))
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan document: %w", classify(err))
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", classify(err))
	}

	return docs, next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	doc := &models.Document{}
	var deleted int
	var payload []byte

	if err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&deleted,
		&doc.SchemaVersion,
		&payload,
	); err != nil {
		return nil, err
	}

	doc.Deleted = intToBool(deleted)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &doc.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload: %w", err)
		}
	}

	return doc, nil
}

func encodePayload(payload models.Fields) ([]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}
