package delta

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/models"
)

func testDocument(id string, updatedAt int64, fields map[string]string) *models.Document {
	payload := make(models.Fields, len(fields))
	for k, v := range fields {
		payload[k] = json.RawMessage(v)
	}
	return &models.Document{ID: id, CreatedAt: 1, UpdatedAt: updatedAt, Payload: payload}
}

func longText(prefix string) string {
	return prefix + strings.Repeat("lorem ipsum dolor sit amet ", 40)
}

func TestCodec_ComputeTransferUnit_NoPrevious(t *testing.T) {
	codec := NewCodec()
	current := testDocument("1", 100, map[string]string{"title": `"a"`})

	unit, err := codec.ComputeTransferUnit(nil, current)
	require.NoError(t, err)

	assert.Equal(t, KindFull, unit.Kind)
	assert.Same(t, current, unit.Document)
}

func TestCodec_ComputeTransferUnit_UnrelatedDocuments(t *testing.T) {
	codec := NewCodec()

	_, err := codec.ComputeTransferUnit(testDocument("1", 1, nil), testDocument("2", 2, nil))
	assert.ErrorIs(t, err, ErrUnrelatedDocuments)
}

func TestCodec_SmallChangeProducesDelta(t *testing.T) {
	codec := NewCodec()
	body, _ := json.Marshal(longText("v1 "))
	previous := testDocument("1", 100, map[string]string{"title": `"a"`, "body": string(body), "stale": `true`})
	current := previous.Clone()
	current.UpdatedAt = 200
	current.Payload["title"] = json.RawMessage(`"b"`)
	delete(current.Payload, "stale")

	unit, err := codec.ComputeTransferUnit(previous, current)
	require.NoError(t, err)
	require.Equal(t, KindDelta, unit.Kind)

	assert.Equal(t, int64(100), unit.Delta.BaseVersion)
	assert.Equal(t, json.RawMessage(`"b"`), unit.Delta.Set["title"])
	assert.NotContains(t, unit.Delta.Set, "body")
	assert.Equal(t, []string{"stale"}, unit.Delta.Unset)
}

func TestCodec_TextFieldUsesPatch(t *testing.T) {
	codec := NewCodec()
	oldBody, _ := json.Marshal(longText("first draft "))
	newBody, _ := json.Marshal(longText("second draft "))
	previous := testDocument("1", 100, map[string]string{"body": string(oldBody)})
	current := testDocument("1", 200, map[string]string{"body": string(newBody)})

	unit, err := codec.ComputeTransferUnit(previous, current)
	require.NoError(t, err)
	require.Equal(t, KindDelta, unit.Kind)
	assert.Contains(t, unit.Delta.TextPatches, "body")

	restored, err := codec.Apply(previous, unit)
	require.NoError(t, err)
	assert.True(t, current.Equal(restored))
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec()
	body, _ := json.Marshal(longText("base "))

	tests := []struct {
		previous *models.Document
		current  *models.Document
		name     string
	}{
		{
			name:     "field changed",
			previous: testDocument("1", 10, map[string]string{"a": `1`, "body": string(body)}),
			current:  testDocument("1", 20, map[string]string{"a": `2`, "body": string(body)}),
		},
		{
			name:     "field added and removed",
			previous: testDocument("1", 10, map[string]string{"a": `1`, "body": string(body)}),
			current:  testDocument("1", 20, map[string]string{"b": `{"x":1}`, "body": string(body)}),
		},
		{
			name:     "everything replaced",
			previous: testDocument("1", 10, map[string]string{"a": `1`}),
			current:  testDocument("1", 20, map[string]string{"z": `"completely different"`}),
		},
		{
			name:     "tombstone",
			previous: testDocument("1", 10, map[string]string{"a": `1`, "body": string(body)}),
			current: func() *models.Document {
				d := testDocument("1", 10, map[string]string{"a": `1`, "body": string(body)})
				return d.Tombstone(30)
			}(),
		},
		{
			name:     "no previous",
			previous: nil,
			current:  testDocument("1", 20, map[string]string{"a": `1`}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := codec.ComputeTransferUnit(tt.previous, tt.current)
			require.NoError(t, err)

			restored, err := codec.Apply(tt.previous, unit)
			require.NoError(t, err)
			assert.True(t, tt.current.Equal(restored), "unit kind %s", unit.Kind)
		})
	}
}

func TestCodec_ApplyRejectsWrongBase(t *testing.T) {
	codec := NewCodec()
	body, _ := json.Marshal(longText("base "))
	previous := testDocument("1", 10, map[string]string{"a": `1`, "body": string(body)})
	current := testDocument("1", 20, map[string]string{"a": `2`, "body": string(body)})

	unit, err := codec.ComputeTransferUnit(previous, current)
	require.NoError(t, err)
	require.Equal(t, KindDelta, unit.Kind)

	t.Run("different version", func(t *testing.T) {
		other := previous.Clone()
		other.UpdatedAt = 15
		_, err := codec.Apply(other, unit)
		assert.ErrorIs(t, err, ErrDeltaApply)
	})

	t.Run("same version different content", func(t *testing.T) {
		other := previous.Clone()
		other.Payload["a"] = json.RawMessage(`99`)
		_, err := codec.Apply(other, unit)
		assert.ErrorIs(t, err, ErrDeltaApply)
	})

	t.Run("missing base", func(t *testing.T) {
		_, err := codec.Apply(nil, unit)
		assert.ErrorIs(t, err, ErrDeltaApply)
	})
}

func TestCodec_ShouldSendFull(t *testing.T) {
	codec := NewCodec()

	assert.Equal(t, DefaultThreshold, codec.Threshold())
	assert.True(t, codec.ShouldSendFull(70, 100), "70%% diff must fall back to full")
	assert.False(t, codec.ShouldSendFull(50, 100))
	assert.False(t, codec.ShouldSendFull(60, 100))

	custom := NewCodec(WithThreshold(0.8))
	assert.False(t, custom.ShouldSendFull(70, 100))
}

func TestCodec_LargeDiffFallsBackToFull(t *testing.T) {
	codec := NewCodec()
	previous := testDocument("1", 10, map[string]string{"a": `1`})
	current := testDocument("1", 20, map[string]string{"b": fmt.Sprintf("%q", strings.Repeat("x", 200))})

	unit, err := codec.ComputeTransferUnit(previous, current)
	require.NoError(t, err)
	assert.Equal(t, KindFull, unit.Kind)
}
