package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-go/internal/config"
)

type memoryBlacklist map[string]time.Time

func (m memoryBlacklist) Add(_ context.Context, jti string, exp time.Time) error {
	m[jti] = exp
	return nil
}

func (m memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m[jti]
	return ok, nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecretKey: "test-secret", JWTExpiry: time.Hour, Issuer: "social-go-test"}
}

func TestGenerateAndValidateToken(t *testing.T) {
	cfg := testAuthConfig()
	token, err := GenerateToken(42, "alice", cfg)
	require.NoError(t, err)

	claims, err := ValidateToken(context.Background(), token, cfg.JWTSecretKey, memoryBlacklist{})
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "social-go-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	token, err := GenerateToken(1, "alice", testAuthConfig())
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, "other-secret", nil)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTExpiry = -time.Minute
	token, err := GenerateToken(1, "alice", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, cfg.JWTSecretKey, nil)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRevokedTokenIsRejected(t *testing.T) {
	cfg := testAuthConfig()
	bl := memoryBlacklist{}
	token, err := GenerateToken(7, "bob", cfg)
	require.NoError(t, err)

	claims, err := ValidateToken(context.Background(), token, cfg.JWTSecretKey, bl)
	require.NoError(t, err)
	require.NoError(t, Revoke(context.Background(), bl, claims))

	_, err = ValidateToken(context.Background(), token, cfg.JWTSecretKey, bl)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("secret123", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.False(t, CheckPasswordHash("secret123", ""))
}

func TestGoogleIdentityFromAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"123","email":"Alice@Example.com","verified_email":true,"name":"Alice A","picture":"http://img/a.png"}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider(config.GoogleConfig{ClientID: "id", UserInfoURL: srv.URL})

	identity, err := p.IdentityFromAccessToken(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.Equal(t, "Alice A", identity.Name)
	assert.Equal(t, "123", identity.Subject)

	_, err = p.IdentityFromAccessToken(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrExternalIdentity)

	_, err = p.IdentityFromAccessToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrExternalIdentity)
}
