package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/reconcile"
	"github.com/iudanet/docsync/pkg/api"
)

//go:generate moq -out exchanger_mock.go . Exchanger

// Exchanger runs one sync exchange (implemented by reconcile.Coordinator)
type Exchanger interface {
	Exchange(ctx context.Context, req reconcile.ExchangeRequest) (*reconcile.ExchangeResult, error)
}

// SyncHandler handles synchronization requests
type SyncHandler struct {
	logger    *slog.Logger
	exchanger Exchanger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, exchanger Exchanger) *SyncHandler {
	return &SyncHandler{
		logger:    logger,
		exchanger: exchanger,
	}
}

// HandleSync обрабатывает GET и POST /api/v1/sync/{collection}.
// GET только забирает изменения с ?since=watermark, POST еще и отправляет свои.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		h.logger.Error("Actor ID not found in context")
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	req := reconcile.ExchangeRequest{
		Collection: r.PathValue("collection"),
		ActorID:    actorID,
		Origin:     ClientIP(r),
	}
	if req.Collection == "" {
		writeError(w, h.logger, http.StatusBadRequest, "collection is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if since := r.URL.Query().Get("since"); since != "" {
			watermark, err := strconv.ParseInt(since, 10, 64)
			if err != nil || watermark < 0 {
				h.logger.Warn("Invalid since parameter", "since", since)
				writeError(w, h.logger, http.StatusBadRequest, "invalid since parameter")
				return
			}
			req.Watermark = watermark
		}
	case http.MethodPost:
		var body api.SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.logger.Warn("Failed to decode sync request", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.LastSyncTimestamp < 0 {
			writeError(w, h.logger, http.StatusBadRequest, "invalid lastSyncTimestamp")
			return
		}
		req.Watermark = body.LastSyncTimestamp
		req.Changes = body.ChangedDocs
		req.Deltas = body.ChangedDeltas
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, h.logger, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, err := h.exchanger.Exchange(r.Context(), req)
	if err != nil {
		writeExchangeError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if result.AllRejected() {
		status = http.StatusForbidden
	}
	writeJSON(w, h.logger, status, toSyncResponse(result))
}

func toSyncResponse(result *reconcile.ExchangeResult) api.SyncResponse {
	resp := api.SyncResponse{
		Docs:      result.Documents,
		Timestamp: result.Watermark,
		SyncResults: api.SyncResults{
			Added:     result.Added,
			Updated:   result.Updated,
			Conflicts: result.Conflicts,
			Deleted:   result.Deleted,
			Rejected:  result.Rejected,
			Failed:    result.Failed,
			Resend:    result.Resend,
		},
	}
	if resp.Docs == nil {
		resp.Docs = []*models.Document{}
	}
	for _, e := range result.Errors {
		resp.SyncResults.Errors = append(resp.SyncResults.Errors, api.DocumentError{
			ID:     e.DocumentID,
			Reason: e.Reason,
			Error:  e.Message,
		})
	}
	return resp
}
