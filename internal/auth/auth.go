// Package auth gates the admin surface. Access is modeled as an injected
// Authenticator so deployments can swap the shared secret for real
// credential verification without touching the lifecycle logic.
package auth

import (
	"crypto/hmac"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator verifies an admin credential.
type Authenticator interface {
	Authenticate(credential string) bool
}

// SharedSecret authenticates against one fixed secret using a constant-time
// compare.
type SharedSecret struct {
	secret []byte
}

// NewSharedSecret constructs a SharedSecret authenticator.
func NewSharedSecret(secret string) *SharedSecret {
	return &SharedSecret{secret: []byte(secret)}
}

// Authenticate reports whether credential matches the configured secret.
func (s *SharedSecret) Authenticate(credential string) bool {
	return len(s.secret) > 0 && hmac.Equal(s.secret, []byte(credential))
}

// Sessions mints and verifies the short-lived admin tokens handed out after
// a successful login.
type Sessions struct {
	secret []byte
	ttl    time.Duration
}

// NewSessions constructs a Sessions helper.
func NewSessions(secret []byte, ttl time.Duration) *Sessions {
	return &Sessions{secret: secret, ttl: ttl}
}

// Issue returns a signed HS256 token for the admin role.
func (s *Sessions) Issue() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify reports whether raw is a valid, unexpired admin token.
func (s *Sessions) Verify(raw string) bool {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return false
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	return ok && claims.Subject == "admin"
}
