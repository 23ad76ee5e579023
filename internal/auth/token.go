// Package auth supplies bearer tokens for outbound dashboard API requests.
// Token acquisition (login, refresh) happens elsewhere; this package only reads
// whatever the session layer published and falls back to a configured token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoToken means a source has nothing to offer right now. Chain moves on.
var ErrNoToken = errors.New("no token available")

// TokenSource returns the bearer token to attach to a request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Static always returns the same token. An empty token yields ErrNoToken.
type Static string

// Token returns the configured token.
func (s Static) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// Chain tries each source in order and returns the first token found.
// Sources reporting ErrNoToken are skipped; other errors are collected and
// only returned when no source produced a token.
type Chain []TokenSource

// Token walks the chain.
func (c Chain) Token(ctx context.Context) (string, error) {
	var errs []error
	for _, src := range c {
		if src == nil {
			continue
		}
		tok, err := src.Token(ctx)
		if err == nil && tok != "" {
			return tok, nil
		}
		if err != nil && !errors.Is(err, ErrNoToken) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("%w: %w", ErrNoToken, errors.Join(errs...))
	}
	return "", ErrNoToken
}

// WithFallback prefers dynamic and falls back to the static configured token.
func WithFallback(dynamic TokenSource, static string) TokenSource {
	if dynamic == nil {
		return Static(static)
	}
	return Chain{dynamic, Static(static)}
}
