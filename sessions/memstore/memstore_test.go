package memstore_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/sessions/memstore"
	"github.com/jrsteele09/go-session-auth/sessions/storetest"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.RunStoreTests(t, func(t *testing.T) sessions.Store {
		return memstore.New()
	})
}

func TestGet_ReturnsCopy(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", "agent")
	require.NoError(t, err)
	sess.Valid = false

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, got.Valid)
}
