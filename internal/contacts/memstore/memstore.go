// Package memstore provides an in-memory implementation of contacts.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/guardian/internal/contacts"
)

// Store holds contacts in memory. Suitable for dev/testing and for
// deployments that load contacts from config at startup.
type Store struct {
	mu   sync.RWMutex
	list []contacts.Contact
}

// New initializes a Store with the given contacts.
func New(list []contacts.Contact) *Store {
	s := &Store{}
	s.Replace(list)
	return s
}

// List returns a copy of the current contact list.
func (s *Store) List(_ context.Context) ([]contacts.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contacts.Contact, len(s.list))
	copy(out, s.list)
	return out, nil
}

// Replace swaps the full contact list.
func (s *Store) Replace(list []contacts.Contact) {
	cp := make([]contacts.Contact, len(list))
	copy(cp, list)
	s.mu.Lock()
	s.list = cp
	s.mu.Unlock()
}
