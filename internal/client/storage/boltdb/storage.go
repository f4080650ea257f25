// Package boltdb implements replica storage on top of BoltDB.
package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names. docs, dirty и shadows содержат вложенный
	// bucket на каждую коллекцию.
	bucketAuth     = []byte("auth")
	bucketMetadata = []byte("metadata")
	bucketDocs     = []byte("docs")
	bucketDirty    = []byte("dirty")
	bucketShadows  = []byte("shadows")
	bucketPending  = []byte("pending")

	topLevelBuckets = [][]byte{bucketAuth, bucketMetadata, bucketDocs, bucketDirty, bucketShadows, bucketPending}
)

// Storage represents BoltDB storage implementation for the replica
type Storage struct {
	db *bbolt.DB
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range topLevelBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// collectionBucket возвращает вложенный bucket коллекции (nil, если его еще нет)
func collectionBucket(tx *bbolt.Tx, top []byte, collection string) *bbolt.Bucket {
	parent := tx.Bucket(top)
	if parent == nil {
		return nil
	}
	return parent.Bucket([]byte(collection))
}

func ensureCollectionBucket(tx *bbolt.Tx, top []byte, collection string) (*bbolt.Bucket, error) {
	parent := tx.Bucket(top)
	if parent == nil {
		return nil, fmt.Errorf("%s bucket not found", top)
	}
	b, err := parent.CreateBucketIfNotExists([]byte(collection))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s/%s bucket: %w", top, collection, err)
	}
	return b, nil
}
