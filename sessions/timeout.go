package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "github.com/jrsteele09/go-session-auth/internal/errors"
)

type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout bounds every call to next by d. A call that runs out of time, or
// whose caller goes away, fails with ErrStorageUnavailable.
func WithTimeout(next Store, d time.Duration) Store {
	if d <= 0 {
		return next
	}
	return &timeoutStore{next: next, timeout: d}
}

func (s *timeoutStore) Create(ctx context.Context, userID, userAgent string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	sess, err := s.next.Create(ctx, userID, userAgent)
	return sess, s.mapErr(ctx, "create", err)
}

func (s *timeoutStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	sess, err := s.next.Get(ctx, sessionID)
	return sess, s.mapErr(ctx, "get", err)
}

func (s *timeoutStore) Invalidate(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.mapErr(ctx, "invalidate", s.next.Invalidate(ctx, sessionID))
}

func (s *timeoutStore) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	list, err := s.next.ListByUser(ctx, userID)
	return list, s.mapErr(ctx, "list", err)
}

func (s *timeoutStore) mapErr(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errs.Is(err, errs.ErrStorageUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return fmt.Errorf("%w: session %s: %v", errs.ErrStorageUnavailable, op, err)
	}
	return err
}
