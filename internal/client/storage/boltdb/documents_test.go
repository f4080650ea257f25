package boltdb

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/models"
)

func doc(id string, updatedAt int64, title string) *models.Document {
	return &models.Document{
		ID:        id,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
		Payload:   models.Fields{"title": json.RawMessage(`"` + title + `"`)},
	}
}

func TestStorage_SaveAndGetDocument(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.GetDocument(ctx, "notes", "1")
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)

	d := doc("1", 100, "hello")
	require.NoError(t, store.SaveDocument(ctx, "notes", d, false))

	got, err := store.GetDocument(ctx, "notes", "1")
	require.NoError(t, err)
	assert.True(t, d.Equal(got))

	// коллекции изолированы
	_, err = store.GetDocument(ctx, "tasks", "1")
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)

	require.NoError(t, store.SaveDocument(ctx, "notes", doc("2", 100, "x").Tombstone(150), false))
	all, err := store.ListDocuments(ctx, "notes")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	empty, err := store.ListDocuments(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStorage_DirtyTracking(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	require.NoError(t, store.SaveDocument(ctx, "notes", doc("1", 100, "a"), true))
	require.NoError(t, store.SaveDocument(ctx, "notes", doc("2", 100, "b"), false))
	require.NoError(t, store.SaveDocument(ctx, "tasks", doc("3", 100, "c"), true))

	dirty, err := store.DirtyDocuments(ctx, "notes")
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, "1", dirty[0].ID)

	count, err := store.DirtyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, tt := range []struct {
		collection, id string
		want           bool
	}{
		{"notes", "1", true},
		{"notes", "2", false},
		{"tasks", "3", true},
		{"missing", "1", false},
	} {
		got, err := store.IsDirty(ctx, tt.collection, tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s/%s", tt.collection, tt.id)
	}

	// документ изменили во время обмена: маркер указывает на новую версию
	require.NoError(t, store.SaveDocument(ctx, "notes", doc("1", 120, "a2"), true))
	cleared, err := store.ClearDirty(ctx, "notes", "1", 100)
	require.NoError(t, err)
	assert.False(t, cleared)

	cleared, err = store.ClearDirty(ctx, "notes", "1", 120)
	require.NoError(t, err)
	assert.True(t, cleared)

	dirty, err = store.DirtyDocuments(ctx, "notes")
	require.NoError(t, err)
	assert.Empty(t, dirty)

	// сохранение без dirty снимает маркер
	require.NoError(t, store.SaveDocument(ctx, "tasks", doc("3", 200, "server"), false))
	count, err = store.DirtyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	cleared, err = store.ClearDirty(ctx, "missing", "1", 1)
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestStorage_Shadows(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.GetShadow(ctx, "notes", "1")
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)

	require.NoError(t, store.SaveShadow(ctx, "notes", doc("1", 100, "acked")))
	got, err := store.GetShadow(ctx, "notes", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.UpdatedAt)

	// shadow не является документом реплики
	_, err = store.GetDocument(ctx, "notes", "1")
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)

	require.NoError(t, store.DeleteShadow(ctx, "notes", "1"))
	_, err = store.GetShadow(ctx, "notes", "1")
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)

	require.NoError(t, store.DeleteShadow(ctx, "missing", "1"))
}
