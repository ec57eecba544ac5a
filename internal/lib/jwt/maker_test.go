package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaker_GenerateAndParseToken(t *testing.T) {
	maker := NewMaker("test_secret_key_1234567890", 15*time.Minute)

	tests := []struct {
		name   string
		userID string
		email  string
	}{
		{name: "regular user", userID: uuid.NewString(), email: "a@b.com"},
		{name: "user with plus address", userID: uuid.NewString(), email: "lifter+glift@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.userID, tt.email)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			assert.Equal(t, tt.userID, claims.UserID())
			assert.Equal(t, tt.email, claims.Email)
			assert.Equal(t, "authenticated", claims.Role)
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestMaker_ParseToken_InvalidTokens(t *testing.T) {
	secret := "test_secret_key_1234567890"
	maker := NewMaker(secret, 15*time.Minute)

	validToken, err := maker.GenerateToken(uuid.NewString(), "a@b.com")
	require.NoError(t, err)

	expired, err := NewMaker(secret, -time.Hour).GenerateToken(uuid.NewString(), "a@b.com")
	require.NoError(t, err)

	wrongSecret, err := NewMaker("wrong_secret_key", 15*time.Minute).GenerateToken(uuid.NewString(), "a@b.com")
	require.NoError(t, err)

	notUUID, err := maker.GenerateToken("u1", "a@b.com")
	require.NoError(t, err)

	noExpiry, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, SessionClaims{
		Email:            "a@b.com",
		RegisteredClaims: jwtlib.RegisteredClaims{Subject: uuid.NewString()},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "expired token", token: expired},
		{name: "wrong secret key", token: wrongSecret},
		{name: "tampered token", token: validToken + "tampered"},
		{name: "subject is not a uuid", token: notUUID},
		{name: "token without expiry", token: noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestMaker_ParseToken_RejectsOtherAlgorithms(t *testing.T) {
	maker := NewMaker("secret", time.Minute)

	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS512, SessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing method")
}
