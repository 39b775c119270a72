// Package memkv provides an in-memory implementation of kv.Store.
// Suitable for dev/testing; nothing survives a restart.
package memkv

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/linnemanlabs/guardian/internal/kv"
)

// Store holds records in a mutex-guarded map. Values are copied on the way
// in and out.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New initializes an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns a copy of the value for key.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

// Set stores a copy of value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	s.mu.Lock()
	s.data[key] = cp
	s.mu.Unlock()
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// List returns all pairs with the given prefix in ascending key order.
func (s *Store) List(_ context.Context, prefix string) ([]kv.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []kv.Pair
	for k, v := range s.data {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		cp := make([]byte, len(v))
		copy(cp, v)
		out = append(out, kv.Pair{Key: k, Value: cp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
