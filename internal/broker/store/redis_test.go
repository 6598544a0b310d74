package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisListStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisListStore(client)
}

func TestRedisListStorePushPop(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	require.NoError(t, s.RPush(ctx, "k", []byte("a")))
	require.NoError(t, s.RPush(ctx, "k", []byte("b")))

	n, err := s.LLen(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	value, ok, err := s.LPop(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", string(value))

	value, ok, err = s.RPop(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", string(value))

	_, ok, err = s.LPop(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisListStoreKeysAndLIndex(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	require.NoError(t, s.RPush(ctx, "kl3m:samples:mlm:ds1", []byte("x")))
	require.NoError(t, s.RPush(ctx, "kl3m:samples:mlm:ds2", []byte("y")))
	require.NoError(t, s.RPush(ctx, "kl3m:samples:clm:ds1", []byte("z")))

	keys, err := s.Keys(ctx, "kl3m:samples:mlm:*")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"kl3m:samples:mlm:ds1", "kl3m:samples:mlm:ds2"}, keys)

	value, ok, err := s.LIndex(ctx, "kl3m:samples:mlm:ds1", 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", string(value))

	_, ok, err = s.LIndex(ctx, "kl3m:samples:mlm:ds1", 5)
	require.NoError(t, err)
	require.False(t, ok)
}
