package sessions

import (
	"context"
	"time"

	errs "github.com/jrsteele09/go-session-auth/internal/errors"
)

// OpRecorder receives one observation per store call.
type OpRecorder interface {
	RecordStoreOp(op, result string, duration time.Duration)
}

type instrumentedStore struct {
	next     Store
	recorder OpRecorder
}

// WithRecorder reports the outcome and latency of every call on next.
func WithRecorder(next Store, recorder OpRecorder) Store {
	if recorder == nil {
		return next
	}
	return &instrumentedStore{next: next, recorder: recorder}
}

func (s *instrumentedStore) Create(ctx context.Context, userID, userAgent string) (*Session, error) {
	start := time.Now()
	sess, err := s.next.Create(ctx, userID, userAgent)
	s.recorder.RecordStoreOp("create", Result(err), time.Since(start))
	return sess, err
}

func (s *instrumentedStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	start := time.Now()
	sess, err := s.next.Get(ctx, sessionID)
	s.recorder.RecordStoreOp("get", Result(err), time.Since(start))
	return sess, err
}

func (s *instrumentedStore) Invalidate(ctx context.Context, sessionID string) error {
	start := time.Now()
	err := s.next.Invalidate(ctx, sessionID)
	s.recorder.RecordStoreOp("invalidate", Result(err), time.Since(start))
	return err
}

func (s *instrumentedStore) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	start := time.Now()
	list, err := s.next.ListByUser(ctx, userID)
	s.recorder.RecordStoreOp("list", Result(err), time.Since(start))
	return list, err
}

// Result names the outcome of a store call for metrics labels.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errs.Is(err, errs.ErrSessionNotFound):
		return "not_found"
	case errs.Is(err, errs.ErrStorageUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
