package objectstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemStoreGetPutHead(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	ok, err := store.Head(ctx, "bucket", "documents/demo/a.json")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = store.Get(ctx, "bucket", "documents/demo/a.json")
	require.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.Put(ctx, "bucket", "documents/demo/a.json", []byte("hello")))

	ok, err = store.Head(ctx, "bucket", "documents/demo/a.json")
	require.NoError(t, err)
	require.True(t, ok)

	data, err := store.Get(ctx, "bucket", "documents/demo/a.json")
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestMemStoreListIsLazyAndSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	keys := []string{
		"documents/demo/b.json",
		"documents/demo/a.json",
		"documents/other/c.json",
		"representations/demo/a.json",
	}
	for _, k := range keys {
		require.NoError(t, store.Put(ctx, "bucket", k, []byte("x")))
	}

	got, err := CollectPrefix(ctx, store, "bucket", "documents/demo/")
	require.NoError(t, err)
	require.Equal(t, []string{"documents/demo/a.json", "documents/demo/b.json"}, got)

	count, err := CountPrefix(ctx, store, "bucket", "documents/")
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestMemStoreListEarlyStop(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	for _, k := range []string{"documents/demo/a.json", "documents/demo/b.json", "documents/demo/c.json"} {
		require.NoError(t, store.Put(ctx, "bucket", k, []byte("x")))
	}

	var seen []string
	for key, err := range store.List(ctx, "bucket", "documents/demo/") {
		require.NoError(t, err)
		seen = append(seen, key)
		if len(seen) == 2 {
			break
		}
	}
	require.Len(t, seen, 2)
}

func TestMemStoreListCommonPrefixes(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	keys := []string{
		"documents/demo/jurisdiction-a/x.json",
		"documents/demo/jurisdiction-a/y.json",
		"documents/demo/jurisdiction-b/z.json",
		"documents/demo/top.json",
	}
	for _, k := range keys {
		require.NoError(t, store.Put(ctx, "bucket", k, []byte("x")))
	}

	var prefixes []string
	for p, err := range store.ListCommonPrefixes(ctx, "bucket", "documents/demo/", "/") {
		require.NoError(t, err)
		prefixes = append(prefixes, p)
	}
	require.ElementsMatch(t, []string{
		"documents/demo/jurisdiction-a/",
		"documents/demo/jurisdiction-b/",
	}, prefixes)
}
