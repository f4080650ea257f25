package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/models"
)

// SaveDocument stores the document and updates its dirty marker in one transaction
func (s *Storage) SaveDocument(ctx context.Context, collection string, doc *models.Document, dirty bool) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		docs, err := ensureCollectionBucket(tx, bucketDocs, collection)
		if err != nil {
			return err
		}
		if err := docs.Put([]byte(doc.ID), data); err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}

		marks, err := ensureCollectionBucket(tx, bucketDirty, collection)
		if err != nil {
			return err
		}
		if dirty {
			return marks.Put([]byte(doc.ID), encodeInt64(doc.UpdatedAt))
		}
		return marks.Delete([]byte(doc.ID))
	})
	if err != nil {
		return fmt.Errorf("save document transaction failed: %w", err)
	}

	return nil
}

// GetDocument retrieves a document by ID
func (s *Storage) GetDocument(ctx context.Context, collection, id string) (*models.Document, error) {
	return s.getFrom(bucketDocs, collection, id)
}

// ListDocuments returns all documents of the collection (including deleted ones)
func (s *Storage) ListDocuments(ctx context.Context, collection string) ([]*models.Document, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var docs []*models.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := collectionBucket(tx, bucketDocs, collection)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			doc, err := decodeDocument(v)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return docs, nil
}

// DirtyDocuments returns documents with a dirty marker
func (s *Storage) DirtyDocuments(ctx context.Context, collection string) ([]*models.Document, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var docs []*models.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		marks := collectionBucket(tx, bucketDirty, collection)
		if marks == nil {
			return nil
		}
		bucket := collectionBucket(tx, bucketDocs, collection)
		return marks.ForEach(func(k, _ []byte) error {
			var data []byte
			if bucket != nil {
				data = bucket.Get(k)
			}
			if data == nil {
				// маркер без документа пропускаем
				return nil
			}
			doc, err := decodeDocument(data)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get dirty documents: %w", err)
	}

	return docs, nil
}

// ClearDirty removes the dirty marker if it still refers to updatedAt
func (s *Storage) ClearDirty(ctx context.Context, collection, id string, updatedAt int64) (bool, error) {
	if s.db == nil {
		return false, storage.ErrStorageClosed
	}

	cleared := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		marks := collectionBucket(tx, bucketDirty, collection)
		if marks == nil {
			return nil
		}
		v := marks.Get([]byte(id))
		if v == nil || decodeInt64(v) != updatedAt {
			return nil
		}
		cleared = true
		return marks.Delete([]byte(id))
	})
	if err != nil {
		return false, fmt.Errorf("clear dirty transaction failed: %w", err)
	}

	return cleared, nil
}

// IsDirty reports whether the document has a dirty marker
func (s *Storage) IsDirty(ctx context.Context, collection, id string) (bool, error) {
	if s.db == nil {
		return false, storage.ErrStorageClosed
	}

	dirty := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		if marks := collectionBucket(tx, bucketDirty, collection); marks != nil {
			dirty = marks.Get([]byte(id)) != nil
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to read dirty marker: %w", err)
	}

	return dirty, nil
}

// DirtyCount counts dirty markers across all collections
func (s *Storage) DirtyCount(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		parent := tx.Bucket(bucketDirty)
		if parent == nil {
			return nil
		}
		return parent.ForEachBucket(func(name []byte) error {
			count += parent.Bucket(name).Stats().KeyN
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count dirty documents: %w", err)
	}

	return count, nil
}

// GetShadow returns the last version acknowledged by the server
func (s *Storage) GetShadow(ctx context.Context, collection, id string) (*models.Document, error) {
	return s.getFrom(bucketShadows, collection, id)
}

// SaveShadow stores the acknowledged version of the document
func (s *Storage) SaveShadow(ctx context.Context, collection string, doc *models.Document) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal shadow: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := ensureCollectionBucket(tx, bucketShadows, collection)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(doc.ID), data); err != nil {
			return fmt.Errorf("failed to save shadow: %w", err)
		}
		return nil
	})
}

// DeleteShadow forgets the acknowledged version; the next push sends the full document
func (s *Storage) DeleteShadow(ctx context.Context, collection, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := collectionBucket(tx, bucketShadows, collection)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(id))
	})
}

func (s *Storage) getFrom(top []byte, collection, id string) (*models.Document, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var doc *models.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := collectionBucket(tx, top, collection)
		if bucket == nil {
			return storage.ErrDocumentNotFound
		}
		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrDocumentNotFound
		}
		var err error
		doc, err = decodeDocument(data)
		return err
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func decodeDocument(data []byte) (*models.Document, error) {
	doc := &models.Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return doc, nil
}

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
