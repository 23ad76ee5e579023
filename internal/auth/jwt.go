package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultJWTLifetime = 24 * time.Hour
	// renewBefore re-signs a cached token this long before it expires.
	renewBefore = 5 * time.Minute
)

// JWTSource signs HS256 service tokens with a shared secret and caches them
// until shortly before expiry.
type JWTSource struct {
	secret   []byte
	subject  string
	lifetime time.Duration
	now      func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewJWTSource returns a signing source. An empty secret makes every call
// return ErrNoToken so the chain falls through to the static token.
func NewJWTSource(secret, subject string) *JWTSource {
	return &JWTSource{
		secret:   []byte(secret),
		subject:  subject,
		lifetime: defaultJWTLifetime,
		now:      time.Now,
	}
}

// Token returns a cached or freshly signed token.
func (s *JWTSource) Token(context.Context) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(renewBefore).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.lifetime)
	claims := &jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Subject:   s.subject,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}

	s.token = signed
	s.expires = expires
	return signed, nil
}

// ParseSubject verifies token against secret and returns its subject, the
// same check the dashboard API applies to service tokens.
func ParseSubject(token, secret string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}
	return claims.Subject, nil
}
