// Package auth orchestrates the session lifecycle: it turns verified
// credentials into a stored session plus a signed token pair, and reissues
// access tokens for sessions that are still valid.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Deps holds the collaborators of the Service
type Deps struct {
	Users    UserVerifier   // Credential checks and user lookups
	Sessions sessions.Store // Source of truth for revocation
	Codec    *token.Codec   // Signs and verifies both token kinds
}

// Config holds token lifetimes.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenPair is returned on a successful login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Reissued is a freshly signed access token together with its payload.
type Reissued struct {
	AccessToken string
	Payload     token.AccessPayload
}

// Service creates sessions and reissues access tokens. It is safe for
// concurrent use.
type Service struct {
	deps     Deps
	cfg      Config
	renewals singleflight.Group
}

// NewService initializes a Service with required dependencies.
func NewService(deps Deps, cfg Config) (*Service, error) {
	if deps.Users == nil {
		return nil, errors.New("[NewService] user verifier is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	if deps.Codec == nil {
		return nil, errors.New("[NewService] token codec is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("[NewService] token lifetimes must be positive")
	}
	return &Service{deps: deps, cfg: cfg}, nil
}

// CreateSession verifies the credentials, stores a new session for the user
// and returns an access/refresh token pair bound to it.
//
// Verification failures of any kind surface as ErrInvalidCredentials, except a
// failing user store, which surfaces as ErrStorageUnavailable like a failing
// session store.
func (s *Service) CreateSession(ctx context.Context, creds Credentials, userAgent string) (*TokenPair, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	identity, err := s.deps.Users.VerifyCredentials(ctx, creds.Email, creds.Password)
	if err != nil {
		if errs.Is(err, errs.ErrStorageUnavailable) {
			return nil, err
		}
		if !errs.Is(err, errs.ErrInvalidCredentials) {
			log.Warn().Err(err).Msg("credential verification failed unexpectedly")
		}
		return nil, errs.ErrInvalidCredentials
	}

	sess, err := s.deps.Sessions.Create(ctx, identity.ID, userAgent)
	if err != nil {
		return nil, asUnavailable("create session", err)
	}

	accessToken, err := s.deps.Codec.Sign(token.AccessPayload{User: *identity, SessionID: sess.ID}, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.deps.Codec.Sign(token.RefreshPayload{SessionID: sess.ID}, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("sessionID", sess.ID).Str("userID", identity.ID).Msg("session created")
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// ReissueAccessToken mints a new access token from a refresh token whose
// session is still valid. An expired refresh token is terminal.
//
// Concurrent calls presenting the same refresh token share one reissue. The
// shared work is detached from any single caller's cancellation and bounded
// by the store's own timeout; a cancelled caller stops waiting on its own.
func (s *Service) ReissueAccessToken(ctx context.Context, refreshToken string) (*Reissued, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.renewals.DoChan(refreshToken, func() (any, error) {
		return s.reissue(shared, refreshToken)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", errs.ErrStorageUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		r := *res.Val.(*Reissued)
		return &r, nil
	}
}

func (s *Service) reissue(ctx context.Context, refreshToken string) (*Reissued, error) {
	refresh, err := s.deps.Codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	sess, err := s.deps.Sessions.Get(ctx, refresh.SessionID)
	if err != nil {
		if errs.Is(err, errs.ErrSessionNotFound) {
			return nil, err
		}
		return nil, asUnavailable("get session", err)
	}
	if !sess.Valid {
		return nil, fmt.Errorf("%w: %s", errs.ErrSessionInvalidated, sess.ID)
	}

	identity, err := s.deps.Users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	payload := token.AccessPayload{User: *identity, SessionID: sess.ID}
	accessToken, err := s.deps.Codec.Sign(payload, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	return &Reissued{AccessToken: accessToken, Payload: payload}, nil
}

// InvalidateSession marks the session invalid. Repeating it is not an error.
func (s *Service) InvalidateSession(ctx context.Context, sessionID string) error {
	err := s.deps.Sessions.Invalidate(ctx, sessionID)
	if err != nil && !errs.Is(err, errs.ErrSessionNotFound) {
		return asUnavailable("invalidate session", err)
	}
	return err
}

// ListSessions returns the user's valid sessions.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]*sessions.Session, error) {
	list, err := s.deps.Sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, asUnavailable("list sessions", err)
	}
	return list, nil
}

func asUnavailable(op string, err error) error {
	if errs.Is(err, errs.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", errs.ErrStorageUnavailable, op, err)
}
