// Package sessions defines the server-side session record that backs every
// issued token pair, and the Store contract its backends implement.
package sessions

import (
	"context"
	"time"
)

// Session binds one user and client to a revocable validity flag. Valid starts
// true and only ever moves to false.
type Session struct {
	ID        string    `json:"id"`        // Unique session identifier (UUID), never reused
	UserID    string    `json:"user"`      // Owning user
	UserAgent string    `json:"userAgent"` // User-Agent recorded at creation
	Valid     bool      `json:"valid"`     // False once invalidated
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists sessions. Sessions are never physically deleted.
//
// Get and Invalidate return an error wrapping errors.ErrSessionNotFound for an
// unknown id. Any backend failure wraps errors.ErrStorageUnavailable.
type Store interface {
	// Create stores a new valid session with a freshly generated id
	Create(ctx context.Context, userID, userAgent string) (*Session, error)

	// Get returns a snapshot of the session
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Invalidate marks the session invalid. Invalidating an invalid session is not an error.
	Invalidate(ctx context.Context, sessionID string) error

	// ListByUser returns the user's valid sessions, oldest first
	ListByUser(ctx context.Context, userID string) ([]*Session, error)
}
