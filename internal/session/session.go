// Package session validates and invalidates browser sessions. Session
// issuance (sign-in) belongs to the auth server; this service only consumes
// the "current session" and "invalidate session" capabilities.
package session

import (
	"context"
	"errors"
	"time"
)

var ErrNoSession = errors.New("no valid session")

type Session struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

type Provider interface {
	// Current resolves token to a live session or returns ErrNoSession.
	Current(ctx context.Context, token string) (*Session, error)
	// Invalidate ends the session. Unknown or malformed tokens are not an error.
	Invalidate(ctx context.Context, token string) error
}
