package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/docsync/internal/models"
)

// SavePending создает или обновляет операцию очереди ретраев
func (s *Storage) SavePending(ctx context.Context, op *models.PendingOperation) error {
	document, err := encodeDocument(op.Document)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pending_operations (
			id, collection, document_id, actor_id, direction,
			document, retries, last_error, timestamp, next_attempt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			document = excluded.document,
			retries = excluded.retries,
			last_error = excluded.last_error,
			next_attempt = excluded.next_attempt
	`

	var nextAttempt int64
	if !op.NextAttempt.IsZero() {
		nextAttempt = op.NextAttempt.UnixMilli()
	}

	_, err = s.db.ExecContext(ctx, query,
		op.ID,
		op.Collection,
		op.DocumentID,
		op.ActorID,
		string(op.Direction),
		document,
		op.Retries,
		op.LastError,
		op.Timestamp,
		nextAttempt,
	)
	if err != nil {
		return fmt.Errorf("failed to save pending operation: %w", classify(err))
	}

	return nil
}

// LoadPending возвращает все сохраненные операции в порядке постановки
func (s *Storage) LoadPending(ctx context.Context) ([]*models.PendingOperation, error) {
	query := `
		SELECT id, collection, document_id, actor_id, direction,
		       document, retries, last_error, timestamp, next_attempt
		FROM pending_operations
		ORDER BY timestamp ASC, retries ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending operations: %w", classify(err))
	}
	defer rows.Close()

	var ops []*models.PendingOperation
	for rows.Next() {
		op := &models.PendingOperation{}
		var direction string
		var document []byte
		var nextAttempt int64

		if err := rows.Scan(
			&op.ID,
			&op.Collection,
			&op.DocumentID,
			&op.ActorID,
			&direction,
			&document,
			&op.Retries,
			&op.LastError,
			&op.Timestamp,
			&nextAttempt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending operation: %w", classify(err))
		}

		op.Direction = models.Direction(direction)
		if nextAttempt > 0 {
			op.NextAttempt = time.UnixMilli(nextAttempt)
		}
		if op.Document, err = decodeDocument(document); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", classify(err))
	}

	return ops, nil
}

// DeletePending удаляет операцию. Отсутствие записи не является ошибкой.
func (s *Storage) DeletePending(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_operations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete pending operation: %w", classify(err))
	}
	return nil
}
