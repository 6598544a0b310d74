// Package objectstore implements the thin capability over a flat key->bytes
// store required by spec.md §4.2: get, put, head, list, and
// list_common_prefixes. All other components depend only on the Store
// interface, never on a concrete backend.
package objectstore

import (
	"context"
	"errors"
	"iter"
)

// ErrNotFound is returned by Get when a key does not exist. Head reports a
// missing key as (false, nil) instead.
var ErrNotFound = errors.New("object not found")

// Store is the capability every pipeline component depends on. List and
// ListCommonPrefixes are lazy: implementations must not materialize the full
// enumeration, since result sets may run into the tens of millions of keys
// (spec.md §4.2).
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte) error
	Head(ctx context.Context, bucket, key string) (bool, error)

	// List returns a lazy sequence of keys under prefix. Iteration may
	// fail partway through; implementations surface errors via the
	// *error out-parameter pattern is avoided here in favor of a
	// sequence of (string, error) pairs so callers can detect a failed
	// page without losing keys already yielded.
	List(ctx context.Context, bucket, prefix string) iter.Seq2[string, error]

	// ListCommonPrefixes returns the "directories" immediately under
	// prefix, as produced by a "/"-delimited LIST.
	ListCommonPrefixes(ctx context.Context, bucket, prefix, delimiter string) iter.Seq2[string, error]
}

// CountPrefix drains List and returns the number of keys under prefix. It
// streams rather than buffering, so it is safe for very large prefixes.
func CountPrefix(ctx context.Context, s Store, bucket, prefix string) (int, error) {
	count := 0
	for _, err := range s.List(ctx, bucket, prefix) {
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// CollectPrefix drains List into a slice. Callers should prefer streaming
// consumption (iterating List directly) for very large datasets; this helper
// exists for the common case of small/medium prefixes such as a single
// dataset's stage-2 listing for index building.
func CollectPrefix(ctx context.Context, s Store, bucket, prefix string) ([]string, error) {
	var keys []string
	for key, err := range s.List(ctx, bucket, prefix) {
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
