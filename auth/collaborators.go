package auth

import (
	"context"

	"github.com/jrsteele09/go-session-auth/users"
)

// UserVerifier is the user-record capability the session service depends on.
//
// VerifyCredentials fails with errors.ErrInvalidCredentials for a bad login and
// wraps errors.ErrStorageUnavailable when the user store itself failed.
// GetUserByID fails with errors.ErrUserNotFound for unknown or blocked users.
type UserVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*users.Identity, error)
	GetUserByID(ctx context.Context, id string) (*users.Identity, error)
}

var _ UserVerifier = (*users.Verifier)(nil)
