package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/resolver"
	"github.com/iudanet/docsync/internal/server/storage"
	"github.com/iudanet/docsync/pkg/api"
)

func conflictRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/conflicts/notes/1", bytes.NewBufferString(body))
	req.SetPathValue("collection", "notes")
	req.SetPathValue("id", "1")
	return req.WithContext(WithActorID(req.Context(), "alice"))
}

func TestConflictHandler_List(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	service := &ConflictServiceMock{
		ListConflictsFunc: func(ctx context.Context, collection, actorID string) ([]*models.ConflictRecord, error) {
			return []*models.ConflictRecord{{
				ID:         "c1",
				Collection: collection,
				DocumentID: "1",
				ActorID:    actorID,
				Server:     &models.Document{ID: "1", UpdatedAt: 200},
				Client:     &models.Document{ID: "1", UpdatedAt: 150},
				CreatedAt:  created,
			}}, nil
		},
	}
	handler := NewConflictHandler(setupTestLogger(), service)

	w := httptest.NewRecorder()
	handler.List(w, conflictRequest(http.MethodGet, ""))

	require.Equal(t, http.StatusOK, w.Code)
	call := service.ListConflictsCalls()[0]
	assert.Equal(t, "notes", call.Collection)
	assert.Equal(t, "alice", call.ActorID)

	var resp []api.ConflictResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "c1", resp[0].ID)
	assert.Equal(t, int64(200), resp[0].Server.UpdatedAt)
	assert.Equal(t, int64(150), resp[0].Client.UpdatedAt)
	assert.Equal(t, created.UnixMilli(), resp[0].CreatedAt)
}

func TestConflictHandler_Resolve(t *testing.T) {
	tests := []struct {
		serviceErr   error
		name         string
		body         string
		expectChosen bool
		expectedCode int
	}{
		{name: "client version", body: "", expectedCode: http.StatusOK},
		{name: "chosen version", body: `{"document":{"id":"1","title":"mine","updatedAt":300}}`, expectChosen: true, expectedCode: http.StatusOK},
		{name: "invalid body", body: "{", expectedCode: http.StatusBadRequest},
		{name: "foreign conflict", body: "", serviceErr: fmt.Errorf("%w: not yours", resolver.ErrOwnershipViolation), expectedCode: http.StatusForbidden},
		{name: "no conflict", body: "", serviceErr: storage.ErrConflictNotFound, expectedCode: http.StatusNotFound},
		{name: "chosen version invalid", body: `{"document":{"id":"1"}}`, serviceErr: models.ErrInvalidDocument, expectChosen: true, expectedCode: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &ConflictServiceMock{
				ResolveConflictFunc: func(ctx context.Context, collection, documentID, actorID string, chosen *models.Document) (*models.Document, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &models.Document{ID: documentID, UpdatedAt: 1000}, nil
				},
			}
			handler := NewConflictHandler(setupTestLogger(), service)

			w := httptest.NewRecorder()
			handler.Resolve(w, conflictRequest(http.MethodPost, tt.body))

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusBadRequest {
				assert.Empty(t, service.ResolveConflictCalls())
				return
			}

			call := service.ResolveConflictCalls()[0]
			assert.Equal(t, "1", call.DocumentID)
			assert.Equal(t, "alice", call.ActorID)
			assert.Equal(t, tt.expectChosen, call.Chosen != nil)

			if tt.expectedCode == http.StatusOK {
				var resp api.ResolveConflictResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, int64(1000), resp.Document.UpdatedAt)
			}
		})
	}
}

func TestConflictHandler_Unauthorized(t *testing.T) {
	handler := NewConflictHandler(setupTestLogger(), &ConflictServiceMock{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conflicts/notes", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	handler.Resolve(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
