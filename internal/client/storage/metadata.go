package storage

import "context"

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// AdvanceWatermark stores the collection watermark. It never moves
	// backwards: a smaller timestamp is ignored.
	AdvanceWatermark(ctx context.Context, collection string, timestamp int64) error

	// GetWatermark returns 0 if the collection has never been synced
	GetWatermark(ctx context.Context, collection string) (int64, error)

	// Watermarks returns the watermark of every synced collection
	Watermarks(ctx context.Context) (map[string]int64, error)
}
