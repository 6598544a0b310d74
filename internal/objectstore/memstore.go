package objectstore

import (
	"context"
	"iter"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store fake for tests. It implements the exact
// same contract as S3Store (including ErrNotFound semantics and delimiter
// behavior for ListCommonPrefixes) without any network dependency.
type MemStore struct {
	mu   sync.RWMutex
	objs map[string][]byte // "bucket/key" -> data
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{objs: make(map[string][]byte)}
}

func memKey(bucket, key string) string {
	return bucket + "/" + key
}

func (m *MemStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objs[memKey(bucket, key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemStore) Put(_ context.Context, bucket, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objs[memKey(bucket, key)] = stored
	return nil
}

func (m *MemStore) Head(_ context.Context, bucket, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objs[memKey(bucket, key)]
	return ok, nil
}

func (m *MemStore) List(_ context.Context, bucket, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		full := bucket + "/" + prefix
		for _, key := range m.sortedKeys(bucket) {
			if !strings.HasPrefix(memKey(bucket, key), full) {
				continue
			}
			if !yield(key, nil) {
				return
			}
		}
	}
}

func (m *MemStore) ListCommonPrefixes(_ context.Context, bucket, prefix, delimiter string) iter.Seq2[string, error] {
	if delimiter == "" {
		delimiter = "/"
	}
	return func(yield func(string, error) bool) {
		seen := make(map[string]struct{})
		for _, key := range m.sortedKeys(bucket) {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			rest := key[len(prefix):]
			idx := strings.Index(rest, delimiter)
			if idx < 0 {
				continue
			}
			cp := prefix + rest[:idx+len(delimiter)]
			if _, ok := seen[cp]; ok {
				continue
			}
			seen[cp] = struct{}{}
			if !yield(cp, nil) {
				return
			}
		}
	}
}

func (m *MemStore) sortedKeys(bucket string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := bucket + "/"
	keys := make([]string, 0, len(m.objs))
	for k := range m.objs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(keys)
	return keys
}
