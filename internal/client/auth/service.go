// Package auth manages the replica's stored session: the bearer token issued
// by the server operator and the actor it identifies.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/docsync/internal/client/storage"
)

var (
	// ErrNotAuthenticated сессия не сохранена
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrTokenExpired срок действия токена истек
	ErrTokenExpired = errors.New("token has expired")

	// ErrMalformedToken токен не удалось разобрать
	ErrMalformedToken = errors.New("malformed token")
)

//go:generate moq -out service_mock.go . Service

// Service управление сессией реплики
type Service interface {
	// Login сохраняет токен и сервер, к которому он относится
	Login(ctx context.Context, serverURL, token string) (*storage.AuthData, error)

	// Logout удаляет локальную сессию
	Logout(ctx context.Context) error

	// Session возвращает действующую сессию или ErrNotAuthenticated / ErrTokenExpired
	Session(ctx context.Context) (*storage.AuthData, error)

	// Stored возвращает сохраненную сессию без проверки срока действия
	Stored(ctx context.Context) (*storage.AuthData, error)
}

// claims совпадают с тем, что выпускает сервер
type claims struct {
	ActorID string `json:"actor_id"`
	gojwt.RegisteredClaims
}

// SessionService implements Service on top of AuthStorage
type SessionService struct {
	storage storage.AuthStorage
	now     func() time.Time
}

var _ Service = (*SessionService)(nil)

func NewSessionService(s storage.AuthStorage) *SessionService {
	return &SessionService{
		storage: s,
		now:     time.Now,
	}
}

// Login разбирает токен без проверки подписи (секрет есть только у сервера),
// извлекает актора и срок действия и сохраняет сессию.
func (s *SessionService) Login(ctx context.Context, serverURL, token string) (*storage.AuthData, error) {
	if serverURL == "" {
		return nil, errors.New("server url is empty")
	}

	var c claims
	if _, _, err := gojwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	actorID := c.ActorID
	if actorID == "" {
		actorID = c.Subject
	}
	if actorID == "" {
		return nil, fmt.Errorf("%w: no actor in claims", ErrMalformedToken)
	}

	data := &storage.AuthData{
		ServerURL: serverURL,
		ActorID:   actorID,
		Token:     token,
	}
	if c.ExpiresAt != nil {
		data.ExpiresAt = c.ExpiresAt.Unix()
		if !s.now().Before(c.ExpiresAt.Time) {
			return nil, ErrTokenExpired
		}
	}

	if err := s.storage.SaveAuth(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return data, nil
}

func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.storage.DeleteAuth(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SessionService) Stored(ctx context.Context) (*storage.AuthData, error) {
	data, err := s.storage.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return data, nil
}

func (s *SessionService) Session(ctx context.Context) (*storage.AuthData, error) {
	data, err := s.Stored(ctx)
	if err != nil {
		return nil, err
	}
	if data.ExpiresAt > 0 && !s.now().Before(time.Unix(data.ExpiresAt, 0)) {
		return nil, ErrTokenExpired
	}
	return data, nil
}
