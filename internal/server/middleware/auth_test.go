package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/server/handlers"
	"github.com/iudanet/docsync/internal/server/jwt"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func mustNotBeCalled(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler should not be called")
	})
}

func TestAuthMiddleware_Success(t *testing.T) {
	tokens := jwt.NewService("test-secret-key", 15*time.Minute)
	token, _, err := tokens.GenerateToken("alice")
	require.NoError(t, err)

	handler := AuthMiddleware(setupTestLogger(), tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := handlers.GetActorID(r.Context())
		require.True(t, ok, "actor_id should be in context")
		assert.Equal(t, "alice", actorID)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tokens := jwt.NewService("test-secret-key", 15*time.Minute)
	foreign, _, err := jwt.NewService("secret-key-2", 15*time.Minute).GenerateToken("alice")
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedReason string
	}{
		{name: "missing header", header: "", expectedReason: "missing token"},
		{name: "no Bearer prefix", header: "token123", expectedReason: "invalid token format"},
		{name: "wrong prefix", header: "Basic token123", expectedReason: "invalid token format"},
		{name: "only Bearer", header: "Bearer", expectedReason: "invalid token format"},
		{name: "malformed token", header: "Bearer invalid.token.here", expectedReason: "invalid token"},
		{name: "wrong secret", header: "Bearer " + foreign, expectedReason: "invalid token"},
	}

	handler := AuthMiddleware(setupTestLogger(), tokens)(mustNotBeCalled(t))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedReason)
			assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
		})
	}
}
