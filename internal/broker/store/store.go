// Package store implements the ordered-list backing contract of
// spec.md §4.7/§6: a Redis-style LIST keyed by
// "kl3m:samples:<task>:<dataset>" or "kl3m:sources:<dataset>".
package store

import "context"

// ListStore is the remote ordered-list collaborator the Sample Broker and
// Training-sample Producer depend on. Every method is a single atomic
// remote operation; callers serialize pops against the store themselves.
type ListStore interface {
	// LPush pushes value onto the head of key.
	LPush(ctx context.Context, key string, value []byte) error

	// RPush pushes value onto the tail of key.
	RPush(ctx context.Context, key string, value []byte) error

	// LPop pops one value from the head of key. Returns (nil, false, nil)
	// when the list is empty or missing.
	LPop(ctx context.Context, key string) ([]byte, bool, error)

	// RPop pops one value from the tail of key. Returns (nil, false, nil)
	// when the list is empty or missing.
	RPop(ctx context.Context, key string) ([]byte, bool, error)

	// LLen returns the current length of key (0 if missing).
	LLen(ctx context.Context, key string) (int64, error)

	// Keys returns every key matching the glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// LIndex returns the element at index (supports negative indices,
	// matching Redis LINDEX semantics). Returns (nil, false, nil) when the
	// index is out of range or the key is missing.
	LIndex(ctx context.Context, key string, index int64) ([]byte, bool, error)
}
