package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Hour), mr
}

func TestStoreResolve(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	actor := Actor{ID: 2, Name: "Finn", Role: "FINANCE_MANAGER", BranchID: 1}
	require.NoError(t, store.Put(ctx, "token-1", actor))

	got, err := store.Resolve(ctx, "token-1")
	require.NoError(t, err)
	require.Equal(t, actor, got)
}

func TestStoreUnknownToken(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Resolve(ctx, "nope")
	require.ErrorIs(t, err, ErrTokenUnknown)

	_, err = store.Resolve(ctx, "")
	require.ErrorIs(t, err, ErrTokenUnknown)
}

func TestStoreTokenExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	require.NoError(t, store.Put(ctx, "token-1", Actor{ID: 1}))
	mr.FastForward(2 * time.Hour)

	_, err := store.Resolve(ctx, "token-1")
	require.ErrorIs(t, err, ErrTokenUnknown)
}
