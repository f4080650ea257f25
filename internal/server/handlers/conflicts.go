package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/pkg/api"
)

//go:generate moq -out conflicts_mock.go . ConflictService

// ConflictService manual conflict resolution (implemented by reconcile.Coordinator)
type ConflictService interface {
	ListConflicts(ctx context.Context, collection, actorID string) ([]*models.ConflictRecord, error)
	ResolveConflict(ctx context.Context, collection, documentID, actorID string, chosen *models.Document) (*models.Document, error)
}

// ConflictHandler обрабатывает запросы ручного разрешения конфликтов
type ConflictHandler struct {
	logger  *slog.Logger
	service ConflictService
}

// NewConflictHandler creates a new conflict handler
func NewConflictHandler(logger *slog.Logger, service ConflictService) *ConflictHandler {
	return &ConflictHandler{
		logger:  logger,
		service: service,
	}
}

// List обрабатывает GET /api/v1/conflicts/{collection}.
// Возвращает только конфликты текущего актора.
func (h *ConflictHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	records, err := h.service.ListConflicts(r.Context(), r.PathValue("collection"), actorID)
	if err != nil {
		h.logger.Warn("Failed to list conflicts", "actor_id", actorID, "error", err)
		writeExchangeError(w, h.logger, err)
		return
	}

	resp := make([]api.ConflictResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, api.ConflictResponse{
			ID:         rec.ID,
			DocumentID: rec.DocumentID,
			ActorID:    rec.ActorID,
			Server:     rec.Server,
			Client:     rec.Client,
			CreatedAt:  rec.CreatedAt.UnixMilli(),
		})
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// Resolve обрабатывает POST /api/v1/conflicts/{collection}/{id}.
// Пустое тело выбирает клиентскую версию.
func (h *ConflictHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req api.ResolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	collection, documentID := r.PathValue("collection"), r.PathValue("id")
	doc, err := h.service.ResolveConflict(r.Context(), collection, documentID, actorID, req.Document)
	if err != nil {
		h.logger.Warn("Failed to resolve conflict",
			"collection", collection,
			"doc_id", documentID,
			"actor_id", actorID,
			"error", err,
		)
		writeExchangeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, api.ResolveConflictResponse{Document: doc})
}
