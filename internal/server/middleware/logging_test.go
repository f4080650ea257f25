package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/docsync/internal/observability"
)

// docsyncMux повторяет маршруты сервера с заданными статусами ответов
func docsyncMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sync/{collection}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("collection") {
		case "photos":
			http.Error(w, "unknown collection", http.StatusNotFound)
		case "broken":
			http.Error(w, "store unavailable", http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(`{"docs":[],"timestamp":1}`))
		}
	})
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantLevel string
		wantCode  int
	}{
		{name: "exchange", path: "/api/v1/sync/notes", wantCode: http.StatusOK, wantLevel: "INFO"},
		{name: "unknown collection", path: "/api/v1/sync/photos", wantCode: http.StatusNotFound, wantLevel: "WARN"},
		{name: "store failure", path: "/api/v1/sync/broken", wantCode: http.StatusInternalServerError, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf strings.Builder
			logger := slog.New(slog.NewTextHandler(&logBuf, nil))
			handler := LoggingMiddleware(logger)(docsyncMux())

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(`{}`))
			req.RemoteAddr = "192.168.1.1:12345"
			req.Header.Set("User-Agent", "docsync/1.0")
			req.Header.Set("Authorization", "Bearer secret-token")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)

			logOutput := logBuf.String()
			assert.Contains(t, logOutput, "level="+tt.wantLevel)
			assert.Contains(t, logOutput, `msg="HTTP request"`)
			assert.Contains(t, logOutput, "path="+tt.path)
			assert.Contains(t, logOutput, "remote_addr=192.168.1.1:12345")
			assert.Contains(t, logOutput, "user_agent=docsync/1.0")
			assert.Contains(t, logOutput, "bytes_written=")
			assert.Contains(t, logOutput, "duration_ms=")
			assert.NotContains(t, logOutput, "secret-token")
		})
	}
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected string
	}{
		{name: "method and path", pattern: "POST /api/v1/conflicts/{collection}/{id}", expected: "/api/v1/conflicts/{collection}/{id}"},
		{name: "path only", pattern: "/metrics", expected: "/metrics"},
		{name: "no route matched", pattern: "", expected: "unmatched"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Pattern = tt.pattern
			assert.Equal(t, tt.expected, routeLabel(req))
		})
	}
}

func TestLoggingMiddleware_RecordsRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/sync/{collection}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := LoggingMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/notes", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTeapot, w.Code)

	scrape := httptest.NewRecorder()
	observability.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	assert.Contains(t, body, `docsync_http_requests_total{method="GET",path="/api/v1/sync/{collection}",status="418"} 1`)
	assert.NotContains(t, body, `path="/api/v1/sync/notes"`)
}

func TestLoggingWithSkip(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	handler := LoggingWithSkip(logger, []string{"/api/v1/health", "/metrics"})(docsyncMux())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, logBuf.String())

	req = httptest.NewRequest(http.MethodPost, "/api/v1/sync/notes", strings.NewReader(`{}`))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, logBuf.String(), "path=/api/v1/sync/notes")
}

func TestResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	// без WriteHeader статус остается 200
	_, _ = rw.Write([]byte(`{"docs":[],`))
	_, _ = rw.Write([]byte(`"timestamp":1}`))
	assert.Equal(t, http.StatusOK, rw.statusCode)
	assert.Equal(t, int64(len(`{"docs":[],"timestamp":1}`)), rw.written)

	rw = &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusTooManyRequests)
	assert.Equal(t, http.StatusTooManyRequests, rw.statusCode)
}
