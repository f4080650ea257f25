package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument_Validation(t *testing.T) {
	tests := []struct {
		payload   Fields
		name      string
		id        string
		updatedAt int64
		wantErr   bool
	}{
		{name: "valid", id: "1", updatedAt: 100, payload: Fields{"title": json.RawMessage(`"a"`)}},
		{name: "empty id", id: "", updatedAt: 100, wantErr: true},
		{name: "zero updatedAt", id: "1", updatedAt: 0, wantErr: true},
		{name: "negative updatedAt", id: "1", updatedAt: -5, wantErr: true},
		{name: "reserved payload key", id: "1", updatedAt: 1, payload: Fields{"updatedAt": json.RawMessage(`1`)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewDocument(tt.id, "", tt.updatedAt, tt.payload)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDocument)
				assert.Nil(t, doc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.updatedAt, doc.CreatedAt)
		})
	}
}

func TestDocument_NegativeSchemaVersion(t *testing.T) {
	doc := &Document{ID: "1", UpdatedAt: 1, SchemaVersion: -1}
	assert.ErrorIs(t, doc.Validate(), ErrInvalidDocument)
}

func TestDocument_JSONFlatEncoding(t *testing.T) {
	input := `{"id":"1","title":"a","updatedAt":100,"tags":[1, 2]}`

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(input), &doc))

	assert.Equal(t, "1", doc.ID)
	assert.Equal(t, int64(100), doc.UpdatedAt)
	assert.False(t, doc.Deleted)
	assert.Equal(t, json.RawMessage(`"a"`), doc.Payload["title"])
	// значения payload хранятся в компактной форме
	assert.Equal(t, json.RawMessage(`[1,2]`), doc.Payload["tags"])

	encoded, err := json.Marshal(doc)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(encoded, &flat))
	assert.Equal(t, "a", flat["title"])
	assert.Equal(t, float64(100), flat["updatedAt"])
	assert.NotContains(t, flat, "ownerId")

	var decoded Document
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.True(t, doc.Equal(&decoded))
}

func TestDocument_UnmarshalRejectsBadReservedType(t *testing.T) {
	var doc Document
	err := json.Unmarshal([]byte(`{"id":"1","updatedAt":"soon"}`), &doc)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestDocument_CloneIsDeep(t *testing.T) {
	original := &Document{
		ID:        "1",
		UpdatedAt: 10,
		Payload:   Fields{"title": json.RawMessage(`"a"`)},
	}

	clone := original.Clone()
	require.True(t, original.Equal(clone))

	// Модификация оригинала не должна влиять на клон
	original.Payload["title"][1] = 'b'
	assert.Equal(t, json.RawMessage(`"a"`), clone.Payload["title"])
}

func TestDocument_Tombstone(t *testing.T) {
	doc := &Document{ID: "1", UpdatedAt: 10, Payload: Fields{"x": json.RawMessage(`1`)}}
	tomb := doc.Tombstone(20)

	assert.True(t, tomb.Deleted)
	assert.Equal(t, "1", tomb.ID)
	assert.Equal(t, int64(20), tomb.UpdatedAt)
	assert.False(t, doc.Deleted)
}

func TestSyncWatermark_Advance(t *testing.T) {
	w := SyncWatermark{Collection: "notes", ActorID: "a", Timestamp: 100}

	assert.False(t, w.Advance(50))
	assert.Equal(t, int64(100), w.Timestamp)
	assert.False(t, w.Advance(100))
	assert.True(t, w.Advance(150))
	assert.Equal(t, int64(150), w.Timestamp)
}

func TestPendingOperation_Validate(t *testing.T) {
	assert.NoError(t, (&PendingOperation{Collection: "c", Direction: DirectionPush}).Validate())
	assert.Error(t, (&PendingOperation{Direction: DirectionPush}).Validate())
	assert.Error(t, (&PendingOperation{Collection: "c", Direction: "sideways"}).Validate())
}

func TestActorMetrics_Bounded(t *testing.T) {
	var m ActorMetrics
	start := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		m.RecordArrival(start.Add(time.Duration(i)*time.Second), 4)
		m.RecordResponse(time.Duration(i)*time.Millisecond, 3)
	}

	assert.Equal(t, int64(10), m.RequestCount)
	assert.Len(t, m.Intervals, 4)
	assert.Len(t, m.ResponseTimes, 3)
	assert.Equal(t, 9*time.Millisecond, m.ResponseTimes[2])
	assert.True(t, m.Idle(start.Add(time.Hour), time.Minute))
	assert.False(t, m.Idle(start.Add(10*time.Second), time.Minute))
}
