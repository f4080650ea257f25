// Package server assembles the HTTP surface of the authoritative replica.
package server

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/docsync/internal/observability"
	"github.com/iudanet/docsync/internal/server/handlers"
	"github.com/iudanet/docsync/internal/server/middleware"
)

// Coordinator то, что роутер требует от reconcile.Coordinator
type Coordinator interface {
	handlers.Exchanger
	handlers.ConflictService
}

// Deps зависимости роутера
type Deps struct {
	Logger         *slog.Logger
	Tokens         middleware.TokenValidator
	Coordinator    Coordinator
	Store          handlers.Pinger
	Version        string
	MaxRequestSize int64
	MaxDecodedSize int64
}

// NewRouter builds the handler tree:
//
//	GET  /api/v1/health                         (no auth)
//	GET  /metrics                               (no auth)
//	GET  /api/v1/sync/{collection}              pull since ?since=
//	POST /api/v1/sync/{collection}              push + pull
//	GET  /api/v1/conflicts/{collection}         manual conflicts of the actor
//	POST /api/v1/conflicts/{collection}/{id}    submit a resolution
func NewRouter(d Deps) http.Handler {
	maxRequest := d.MaxRequestSize
	if maxRequest <= 0 {
		maxRequest = middleware.DefaultMaxRequestSize
	}
	maxDecoded := d.MaxDecodedSize
	if maxDecoded <= 0 {
		maxDecoded = middleware.DefaultMaxDecodedSize
	}

	syncHandler := handlers.NewSyncHandler(d.Logger, d.Coordinator)
	conflictHandler := handlers.NewConflictHandler(d.Logger, d.Coordinator)
	healthHandler := handlers.NewHealthHandler(d.Logger, d.Store, d.Version)

	auth := middleware.AuthMiddleware(d.Logger, d.Tokens)
	decompress := middleware.DecompressMiddleware(d.Logger, maxRequest, maxDecoded)
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(decompress(h))
	}

	mux := http.NewServeMux()

	// Public endpoints
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.Handle("GET /metrics", observability.Handler())

	// Protected endpoints
	mux.Handle("GET /api/v1/sync/{collection}", protected(syncHandler.HandleSync))
	mux.Handle("POST /api/v1/sync/{collection}", protected(syncHandler.HandleSync))
	mux.Handle("GET /api/v1/conflicts/{collection}", protected(conflictHandler.List))
	mux.Handle("POST /api/v1/conflicts/{collection}/{id}", protected(conflictHandler.Resolve))

	var h http.Handler = mux
	h = middleware.LoggingWithSkip(d.Logger, []string{"/api/v1/health", "/metrics"})(h)
	h = middleware.RecoveryMiddleware(d.Logger)(h)
	return h
}
