package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/models"
)

func TestStorage_PendingOperations(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	ops, err := store.LoadPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, ops)

	push := &models.PendingOperation{
		ID:          "push:notes",
		Collection:  "notes",
		Direction:   models.DirectionPush,
		Timestamp:   1000,
		NextAttempt: time.UnixMilli(5000).UTC(),
	}
	pull := &models.PendingOperation{
		ID:         "op-2",
		Collection: "notes",
		DocumentID: "1",
		Direction:  models.DirectionPull,
		Document:   doc("1", 100, "server"),
		Timestamp:  2000,
		Retries:    3,
		LastError:  "disk full",
	}
	require.NoError(t, store.SavePending(ctx, push))
	require.NoError(t, store.SavePending(ctx, pull))

	// замена по id
	push.Retries = 1
	require.NoError(t, store.SavePending(ctx, push))

	ops, err = store.LoadPending(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	byID := map[string]*models.PendingOperation{}
	for _, op := range ops {
		byID[op.ID] = op
	}
	assert.Equal(t, 1, byID["push:notes"].Retries)
	assert.True(t, byID["push:notes"].NextAttempt.Equal(push.NextAttempt))
	require.NotNil(t, byID["op-2"].Document)
	assert.True(t, pull.Document.Equal(byID["op-2"].Document))
	assert.Equal(t, "disk full", byID["op-2"].LastError)

	require.NoError(t, store.DeletePending(ctx, "op-2"))
	require.NoError(t, store.DeletePending(ctx, "op-2"))

	ops, err = store.LoadPending(ctx)
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}
