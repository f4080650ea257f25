package boltdb

import (
	"context"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/iudanet/docsync/internal/client/storage"
)

const watermarkPrefix = "watermark/"

// AdvanceWatermark saves the collection watermark if it moves forward
func (s *Storage) AdvanceWatermark(ctx context.Context, collection string, timestamp int64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		key := []byte(watermarkPrefix + collection)
		if current := bucket.Get(key); current != nil && decodeInt64(current) >= timestamp {
			return nil
		}

		if err := bucket.Put(key, encodeInt64(timestamp)); err != nil {
			return fmt.Errorf("failed to save watermark: %w", err)
		}
		return nil
	})
}

// GetWatermark retrieves the collection watermark.
// Returns 0 if no sync has been performed yet
func (s *Storage) GetWatermark(ctx context.Context, collection string) (int64, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var timestamp int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}
		if v := bucket.Get([]byte(watermarkPrefix + collection)); v != nil {
			timestamp = decodeInt64(v)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get watermark: %w", err)
	}

	return timestamp, nil
}

// Watermarks returns all stored watermarks keyed by collection
func (s *Storage) Watermarks(ctx context.Context) (map[string]int64, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	out := make(map[string]int64)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}
		c := bucket.Cursor()
		prefix := []byte(watermarkPrefix)
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), watermarkPrefix); k, v = c.Next() {
			out[strings.TrimPrefix(string(k), watermarkPrefix)] = decodeInt64(v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list watermarks: %w", err)
	}

	return out, nil
}
