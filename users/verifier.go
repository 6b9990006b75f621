package users

import (
	"context"
	"fmt"
	"time"

	errs "github.com/jrsteele09/go-session-auth/internal/errors"
)

// Verifier checks credentials against a UserRepo and hands out identity
// snapshots. It is the user collaborator consumed by the session service.
type Verifier struct {
	repo UserRepo
}

func NewVerifier(repo UserRepo) *Verifier {
	return &Verifier{repo: repo}
}

// VerifyCredentials returns the identity for email when password matches.
// Unknown, blocked and mismatched users all yield ErrInvalidCredentials;
// repository failures yield ErrStorageUnavailable.
func (v *Verifier) VerifyCredentials(ctx context.Context, email, password string) (*Identity, error) {
	user, err := v.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errs.Is(err, errs.ErrUserNotFound) {
			return nil, errs.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: user lookup: %v", errs.ErrStorageUnavailable, err)
	}

	if user.Blocked || !CheckPasswordHash(password, user.PasswordHash) {
		return nil, errs.ErrInvalidCredentials
	}

	identity := user.Identity()
	return &identity, nil
}

// GetUserByID returns the current identity snapshot for id.
func (v *Verifier) GetUserByID(ctx context.Context, id string) (*Identity, error) {
	user, err := v.repo.GetByID(ctx, id)
	if err != nil {
		if errs.Is(err, errs.ErrUserNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: user lookup: %v", errs.ErrStorageUnavailable, err)
	}
	if user.Blocked {
		return nil, errs.ErrUserNotFound
	}

	identity := user.Identity()
	return &identity, nil
}

// Seed creates or replaces the account for email. It is used to provision a
// first user at startup.
func Seed(ctx context.Context, repo UserRepo, email, password, name string, cost int) (*User, error) {
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, fmt.Errorf("seed user: %w", err)
	}
	hash, err := HashPassword(password, cost)
	if err != nil {
		return nil, fmt.Errorf("seed user: %w", err)
	}

	user := &User{Email: NormalizeEmail(email), Name: name, PasswordHash: hash}
	if existing, err := repo.GetByEmail(ctx, user.Email); err == nil {
		user.ID = existing.ID
		user.DateJoined = existing.DateJoined
	} else {
		user.DateJoined = time.Now().UTC()
	}

	if err := repo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("seed user: %w", err)
	}
	return user, nil
}
