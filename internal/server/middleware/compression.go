package middleware

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang/snappy"
)

// Ограничения размера тела запроса
const (
	DefaultMaxRequestSize = 10 << 20 // 10MB до распаковки
	DefaultMaxDecodedSize = 20 << 20 // 20MB после распаковки
)

// DecompressMiddleware распаковывает тела с Content-Encoding: snappy
// (блочный формат) и ограничивает размер тела любого запроса.
// Другие кодировки отклоняются с 415.
func DecompressMiddleware(logger *slog.Logger, maxRequestSize, maxDecodedSize int64) func(http.Handler) http.Handler {
	if maxRequestSize <= 0 {
		maxRequestSize = DefaultMaxRequestSize
	}
	if maxDecodedSize <= 0 {
		maxDecodedSize = DefaultMaxDecodedSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
			switch encoding {
			case "", "identity":
				r.Body = http.MaxBytesReader(w, r.Body, min(maxRequestSize, maxDecodedSize))
				next.ServeHTTP(w, r)
				return
			case "snappy":
			default:
				writeJSONError(w, http.StatusUnsupportedMediaType, "unsupported content encoding: "+encoding)
				return
			}

			compressed, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
			if err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
					return
				}
				writeJSONError(w, http.StatusBadRequest, "failed to read request body")
				return
			}

			decodedLen, err := snappy.DecodedLen(compressed)
			if err != nil {
				logger.Warn("Invalid snappy body", "error", err, "path", r.URL.Path)
				writeJSONError(w, http.StatusBadRequest, "invalid snappy data")
				return
			}
			if int64(decodedLen) > maxDecodedSize {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "decoded request body too large")
				return
			}

			decoded, err := snappy.Decode(nil, compressed)
			if err != nil {
				logger.Warn("Invalid snappy body", "error", err, "path", r.URL.Path)
				writeJSONError(w, http.StatusBadRequest, "invalid snappy data")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(decoded))
			r.ContentLength = int64(len(decoded))
			r.Header.Del("Content-Encoding")
			next.ServeHTTP(w, r)
		})
	}
}
