package users_test

import (
	"context"
	"errors"
	"testing"

	errs "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/jrsteele09/go-session-auth/users/memrepo"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "timdoe@mail.com"
	testPassword = "Password123"
	testName     = "Tim Doe"
)

type failingRepo struct{ users.UserRepo }

func (failingRepo) GetByEmail(context.Context, string) (*users.User, error) {
	return nil, errors.New("connection reset")
}

func (failingRepo) GetByID(context.Context, string) (*users.User, error) {
	return nil, errors.New("connection reset")
}

func seededVerifier(t *testing.T) (*users.Verifier, *users.User, users.UserRepo) {
	t.Helper()

	repo := memrepo.New()
	u, err := users.Seed(context.Background(), repo, testEmail, testPassword, testName, 4)
	require.NoError(t, err)
	return users.NewVerifier(repo), u, repo
}

func TestVerifyCredentials(t *testing.T) {
	v, seeded, _ := seededVerifier(t)
	ctx := context.Background()

	identity, err := v.VerifyCredentials(ctx, "  TimDoe@Mail.com ", testPassword)
	require.NoError(t, err)
	require.Equal(t, users.Identity{ID: seeded.ID, Email: testEmail, Name: testName}, *identity)

	_, err = v.VerifyCredentials(ctx, testEmail, "wrong-password")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, err = v.VerifyCredentials(ctx, "nobody@mail.com", testPassword)
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)
}

func TestVerifyCredentials_BlockedUser(t *testing.T) {
	v, seeded, repo := seededVerifier(t)
	ctx := context.Background()

	seeded.Blocked = true
	require.NoError(t, repo.Upsert(ctx, seeded))

	_, err := v.VerifyCredentials(ctx, testEmail, testPassword)
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, err = v.GetUserByID(ctx, seeded.ID)
	require.ErrorIs(t, err, errs.ErrUserNotFound)
}

func TestVerifier_StorageFailure(t *testing.T) {
	v := users.NewVerifier(failingRepo{})
	ctx := context.Background()

	_, err := v.VerifyCredentials(ctx, testEmail, testPassword)
	require.ErrorIs(t, err, errs.ErrStorageUnavailable)
	require.NotErrorIs(t, err, errs.ErrInvalidCredentials)

	_, err = v.GetUserByID(ctx, "user-1")
	require.ErrorIs(t, err, errs.ErrStorageUnavailable)
}

func TestGetUserByID(t *testing.T) {
	v, seeded, _ := seededVerifier(t)
	ctx := context.Background()

	identity, err := v.GetUserByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.Equal(t, seeded.Identity(), *identity)

	_, err = v.GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, errs.ErrUserNotFound)
}

func TestSeed_KeepsIDOnReseed(t *testing.T) {
	_, first, repo := seededVerifier(t)

	second, err := users.Seed(context.Background(), repo, testEmail, "NewPassword456", "Tim", 4)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	_, err = users.Seed(context.Background(), repo, testEmail, "weak", "Tim", 4)
	require.Error(t, err)
}

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength(testPassword))
	require.Error(t, users.ValidatePasswordStrength("short1A"))
	require.Error(t, users.ValidatePasswordStrength("alllowercase1"))
	require.Error(t, users.ValidatePasswordStrength("ALLUPPERCASE1"))
	require.Error(t, users.ValidatePasswordStrength("NoNumbersHere"))
}
