package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/server/storage"
)

// SaveConflict creates or replaces the conflict record for the document.
// Only one unresolved record per document is kept: the latest client wins the slot.
func (s *Storage) SaveConflict(ctx context.Context, record *models.ConflictRecord) error {
	if record.Client == nil {
		return errors.New("conflict record without client version")
	}

	serverDoc, err := encodeDocument(record.Server)
	if err != nil {
		return err
	}
	clientDoc, err := encodeDocument(record.Client)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO conflicts (id, collection, document_id, actor_id, server_doc, client_doc, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, document_id) DO UPDATE SET
			id = excluded.id,
			actor_id = excluded.actor_id,
			server_doc = excluded.server_doc,
			client_doc = excluded.client_doc,
			created_at = excluded.created_at
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.Collection,
		record.DocumentID,
		record.ActorID,
		serverDoc,
		clientDoc,
		record.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save conflict: %w", classify(err))
	}

	return nil
}

// GetConflict retrieves the conflict record for a document
func (s *Storage) GetConflict(ctx context.Context, collection, documentID string) (*models.ConflictRecord, error) {
	query := `
		SELECT id, collection, document_id, actor_id, server_doc, client_doc, created_at
		FROM conflicts
		WHERE collection = ? AND document_id = ?
	`

	record, err := scanConflict(s.db.QueryRowContext(ctx, query, collection, documentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrConflictNotFound
		}
		return nil, fmt.Errorf("failed to get conflict: %w", classify(err))
	}

	return record, nil
}

// ListConflicts returns conflicts of the collection, oldest first
func (s *Storage) ListConflicts(ctx context.Context, collection, actorID string) ([]*models.ConflictRecord, error) {
	query := `
		SELECT id, collection, document_id, actor_id, server_doc, client_doc, created_at
		FROM conflicts
		WHERE collection = ?`
	args := []any{collection}
	if actorID != "" {
		query += ` AND actor_id = ?`
		args = append(args, actorID)
	}
	query += ` ORDER BY created_at ASC, document_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", classify(err))
	}
	defer rows.Close()

	var records []*models.ConflictRecord
	for rows.Next() {
		record, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conflict: %w", classify(err))
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", classify(err))
	}

	return records, nil
}

// DeleteConflict removes the conflict record
func (s *Storage) DeleteConflict(ctx context.Context, collection, documentID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM conflicts WHERE collection = ? AND document_id = ?`,
		collection, documentID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete conflict: %w", classify(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", classify(err))
	}
	if rows == 0 {
		return storage.ErrConflictNotFound
	}

	return nil
}

func scanConflict(row rowScanner) (*models.ConflictRecord, error) {
	record := &models.ConflictRecord{}
	var serverDoc, clientDoc []byte
	var createdAt int64

	if err := row.Scan(
		&record.ID,
		&record.Collection,
		&record.DocumentID,
		&record.ActorID,
		&serverDoc,
		&clientDoc,
		&createdAt,
	); err != nil {
		return nil, err
	}

	var err error
	if record.Server, err = decodeDocument(serverDoc); err != nil {
		return nil, err
	}
	if record.Client, err = decodeDocument(clientDoc); err != nil {
		return nil, err
	}
	record.CreatedAt = time.UnixMilli(createdAt)

	return record, nil
}

func encodeDocument(doc *models.Document) ([]byte, error) {
	if doc == nil {
		return nil, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

func decodeDocument(data []byte) (*models.Document, error) {
	if len(data) == 0 {
		return nil, nil
	}
	doc := &models.Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
