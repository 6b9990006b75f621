// Package storetest holds the behaviour every sessions.Store backend must
// share. Backend packages call RunStoreTests from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	errs "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/stretchr/testify/require"
)

// StoreFactory returns an empty store for one subtest.
type StoreFactory func(t *testing.T) sessions.Store

// RunStoreTests runs the complete store suite against the provided factory.
func RunStoreTests(t *testing.T, factory StoreFactory) {
	t.Run("CreateAndGet", func(t *testing.T) {
		testCreateAndGet(t, factory(t))
	})
	t.Run("UniqueIDs", func(t *testing.T) {
		testUniqueIDs(t, factory(t))
	})
	t.Run("GetUnknown", func(t *testing.T) {
		testGetUnknown(t, factory(t))
	})
	t.Run("InvalidateIsIdempotent", func(t *testing.T) {
		testInvalidateIsIdempotent(t, factory(t))
	})
	t.Run("InvalidateUnknown", func(t *testing.T) {
		testInvalidateUnknown(t, factory(t))
	})
	t.Run("ListByUser", func(t *testing.T) {
		testListByUser(t, factory(t))
	})
	t.Run("ConcurrentInvalidateAndGet", func(t *testing.T) {
		testConcurrentInvalidateAndGet(t, factory(t))
	})
	t.Run("CancelledContext", func(t *testing.T) {
		testCancelledContext(t, factory(t))
	})
}

func testCreateAndGet(t *testing.T, store sessions.Store) {
	ctx := context.Background()
	before := time.Now().Add(-time.Second)

	created, err := store.Create(ctx, "user-1", "Mozilla/5.0")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.True(t, created.Valid)
	require.Equal(t, "user-1", created.UserID)
	require.Equal(t, "Mozilla/5.0", created.UserAgent)
	require.True(t, created.CreatedAt.After(before))

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, created.UserID, got.UserID)
	require.Equal(t, created.UserAgent, got.UserAgent)
	require.True(t, got.Valid)
	require.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
}

func testUniqueIDs(t *testing.T, store sessions.Store) {
	ctx := context.Background()
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		sess, err := store.Create(ctx, "user-1", "agent")
		require.NoError(t, err)
		_, dup := seen[sess.ID]
		require.False(t, dup, "session id reused: %s", sess.ID)
		seen[sess.ID] = struct{}{}
	}
}

func testGetUnknown(t *testing.T, store sessions.Store) {
	_, err := store.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, errs.ErrSessionNotFound)
}

func testInvalidateIsIdempotent(t *testing.T, store sessions.Store) {
	ctx := context.Background()
	sess, err := store.Create(ctx, "user-1", "agent")
	require.NoError(t, err)

	require.NoError(t, store.Invalidate(ctx, sess.ID))
	first, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.False(t, first.Valid)
	require.False(t, first.UpdatedAt.Before(first.CreatedAt))

	require.NoError(t, store.Invalidate(ctx, sess.ID))
	second, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.False(t, second.Valid)
	require.WithinDuration(t, first.UpdatedAt, second.UpdatedAt, time.Millisecond)
}

func testInvalidateUnknown(t *testing.T, store sessions.Store) {
	err := store.Invalidate(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, errs.ErrSessionNotFound)
}

func testListByUser(t *testing.T, store sessions.Store) {
	ctx := context.Background()
	a, err := store.Create(ctx, "user-1", "phone")
	require.NoError(t, err)
	b, err := store.Create(ctx, "user-1", "laptop")
	require.NoError(t, err)
	_, err = store.Create(ctx, "user-2", "tablet")
	require.NoError(t, err)

	require.NoError(t, store.Invalidate(ctx, a.ID))

	list, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, b.ID, list[0].ID)

	list, err = store.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, list)
}

func testConcurrentInvalidateAndGet(t *testing.T, store sessions.Store) {
	ctx := context.Background()
	sess, err := store.Create(ctx, "user-1", "agent")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errCh := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errCh <- store.Invalidate(ctx, sess.ID)
		}()
		go func() {
			defer wg.Done()
			got, err := store.Get(ctx, sess.ID)
			if err == nil && got.ID != sess.ID {
				err = errs.ErrSessionNotFound
			}
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.False(t, got.Valid)
	require.Equal(t, "user-1", got.UserID)
}

func testCancelledContext(t *testing.T, store sessions.Store) {
	sess, err := store.Create(context.Background(), "user-1", "agent")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Get(ctx, sess.ID)
	require.ErrorIs(t, err, errs.ErrStorageUnavailable)

	// Abandoned calls leave no trace.
	err = store.Invalidate(ctx, sess.ID)
	require.ErrorIs(t, err, errs.ErrStorageUnavailable)
	got, err := store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	require.True(t, got.Valid)
}
