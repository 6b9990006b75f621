package sessions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/sessions/memstore"
	"github.com/stretchr/testify/require"
)

// blockingStore waits for the context on every call, like a hung backend.
type blockingStore struct {
	sessions.Store
}

func (blockingStore) Get(ctx context.Context, _ string) (*sessions.Session, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingStore) Invalidate(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

type failingStore struct {
	sessions.Store
	err error
}

func (f failingStore) Get(context.Context, string) (*sessions.Session, error) {
	return nil, f.err
}

func TestWithTimeout_HungStore(t *testing.T) {
	store := sessions.WithTimeout(blockingStore{}, 20*time.Millisecond)

	start := time.Now()
	_, err := store.Get(context.Background(), "s")
	require.ErrorIs(t, err, errs.ErrStorageUnavailable)
	require.Less(t, time.Since(start), time.Second)

	err = store.Invalidate(context.Background(), "s")
	require.ErrorIs(t, err, errs.ErrStorageUnavailable)
}

func TestWithTimeout_CallerCancels(t *testing.T) {
	store := sessions.WithTimeout(blockingStore{}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := store.Get(ctx, "s")
	require.ErrorIs(t, err, errs.ErrStorageUnavailable)
}

func TestWithTimeout_PassesThrough(t *testing.T) {
	inner := memstore.New()
	store := sessions.WithTimeout(inner, time.Second)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", "agent")
	require.NoError(t, err)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, errs.ErrSessionNotFound)
	require.NotErrorIs(t, err, errs.ErrStorageUnavailable)

	require.NoError(t, store.Invalidate(ctx, sess.ID))
	list, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, list)

	boom := errors.New("boom")
	_, err = sessions.WithTimeout(failingStore{err: boom}, time.Second).Get(ctx, "s")
	require.ErrorIs(t, err, boom)
}

func TestWithTimeout_Disabled(t *testing.T) {
	inner := memstore.New()
	require.Same(t, inner, sessions.WithTimeout(inner, 0))
}

type recordedOp struct {
	op, result string
}

type fakeRecorder struct {
	ops []recordedOp
}

func (r *fakeRecorder) RecordStoreOp(op, result string, _ time.Duration) {
	r.ops = append(r.ops, recordedOp{op, result})
}

func TestWithRecorder(t *testing.T) {
	rec := &fakeRecorder{}
	store := sessions.WithRecorder(memstore.New(), rec)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", "agent")
	require.NoError(t, err)
	_, err = store.Get(ctx, "missing")
	require.Error(t, err)
	require.NoError(t, store.Invalidate(ctx, sess.ID))
	_, err = store.ListByUser(ctx, "user-1")
	require.NoError(t, err)

	require.Equal(t, []recordedOp{
		{"create", "ok"},
		{"get", "not_found"},
		{"invalidate", "ok"},
		{"list", "ok"},
	}, rec.ops)
}

func TestResult(t *testing.T) {
	require.Equal(t, "ok", sessions.Result(nil))
	require.Equal(t, "not_found", sessions.Result(errs.ErrSessionNotFound))
	require.Equal(t, "unavailable", sessions.Result(errs.ErrStorageUnavailable))
	require.Equal(t, "error", sessions.Result(errors.New("x")))
}
