package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_GenerateAndValidate(t *testing.T) {
	s := NewService("test-secret-key", 15*time.Minute)

	token, expiresIn, err := s.GenerateToken("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(900), expiresIn)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.ActorID)
	assert.Equal(t, "alice", claims.Subject)
}

func TestService_GenerateToken_EmptyActor(t *testing.T) {
	s := NewService("test-secret-key", time.Minute)

	_, _, err := s.GenerateToken("")
	assert.Error(t, err)
}

func TestService_ValidateToken_Rejects(t *testing.T) {
	s := NewService("test-secret-key", 15*time.Minute)
	valid, _, err := s.GenerateToken("alice")
	require.NoError(t, err)

	expired := NewService("test-secret-key", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.GenerateToken("alice")
	require.NoError(t, err)

	tests := []struct {
		name  string
		svc   *Service
		token string
	}{
		{name: "malformed", svc: s, token: "invalid.token.here"},
		{name: "empty", svc: s, token: ""},
		{name: "wrong secret", svc: NewService("other-secret", time.Minute), token: valid},
		{name: "expired", svc: s, token: old},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
