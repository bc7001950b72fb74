package auth

import (
	"context"
	"errors"
	"time"
)

// TokenBlacklist stores revoked token IDs (jti) until the token would have
// expired anyway.
type TokenBlacklist interface {
	Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Revoke blacklists the token described by claims.
func Revoke(ctx context.Context, blacklist TokenBlacklist, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return errors.New("token has no jti")
	}
	if claims.ExpiresAt == nil {
		return errors.New("token has no expiry")
	}
	return blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time)
}
