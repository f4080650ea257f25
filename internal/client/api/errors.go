package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrThrottled    = errors.New("throttled")
	ErrBadRequest   = errors.New("bad request")
	ErrServer       = errors.New("server error")
)

// StatusError неуспешный ответ сервера
type StatusError struct {
	Message    string
	Stage      string
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("server error (%d) at %s: %s", e.StatusCode, e.Stage, e.Message)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code onto a sentinel error
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrThrottled
	case e.StatusCode >= 500:
		return ErrServer
	default:
		return ErrBadRequest
	}
}

// IsRetryable reports whether the request may succeed later unchanged:
// transport failures, throttling and server errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	// ошибки транспорта (нет сети, таймаут)
	return true
}

// RetryAfter returns the server-requested delay, or 0
func RetryAfter(err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}
