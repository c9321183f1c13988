package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoUser = errors.New("token carries no user id")

// Claims is what the client needs from the service token. The token is
// issued and verified by the server; the client only reads it.
type Claims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

// ParseClaims decodes token without checking its signature.
func ParseClaims(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, ErrNoUser
	}
	return &claims, nil
}

// Expired reports whether the token's expiry is before now. Tokens without
// an expiry never expire.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return now.After(c.ExpiresAt.Time)
}
