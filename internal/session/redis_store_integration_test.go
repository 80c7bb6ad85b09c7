package session

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := NewRedisStoreFromURL(ctx, connStr, "it")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	st, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{}, st)

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save(ctx, State{AccessToken: "a", RefreshToken: "r", Locale: "ja"}))
	token, err = store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", token)

	require.NoError(t, store.ClearTokens(ctx))
	st, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{Locale: "ja"}, st)

	// Другой профиль не видит чужую сессию
	other := NewRedisStore(redis.NewClient(&redis.Options{Addr: mustAddr(t, connStr)}), "other")
	assert.Empty(t, other.Locale(ctx))
}

func mustAddr(t *testing.T, connStr string) string {
	t.Helper()
	opts, err := redis.ParseURL(connStr)
	require.NoError(t, err)
	return opts.Addr
}
