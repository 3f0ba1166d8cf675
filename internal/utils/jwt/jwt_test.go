package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestGenerateAndVerify(t *testing.T) {
	subject := Subject{ID: uuid.New(), Role: "admin", Email: "ana@example.com"}

	token, err := GenerateAccessToken(subject, secret, time.Hour)
	require.NoError(t, err)

	claims, err := VerifyToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, subject.ID, claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "ana@example.com", claims.Email)
}

func TestVerifyToken_Failures(t *testing.T) {
	subject := Subject{ID: uuid.New(), Role: "user", Email: "u@example.com"}

	expired, err := GenerateAccessToken(subject, secret, -time.Minute)
	require.NoError(t, err)
	valid, err := GenerateAccessToken(subject, secret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{name: "expired", token: expired, secret: secret, wantErr: ErrExpiredToken},
		{name: "wrong secret", token: valid, secret: "other", wantErr: ErrInvalidToken},
		{name: "garbage", token: "not.a.token", secret: secret, wantErr: ErrInvalidToken},
		{name: "empty", token: "", secret: secret, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
