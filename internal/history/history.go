// Package history records incidents to durable storage. Every terminal
// status is recorded, including cancellations; history is append-mostly
// and never blocks the dispatch path.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/linnemanlabs/guardian/internal/incident"
	"github.com/linnemanlabs/guardian/internal/kv"
)

const keyPrefix = "incident/"

// Store reads and writes incident records under the incident/ key space.
type Store struct {
	kv kv.Store
}

// New returns a Store over the given kv backend.
func New(store kv.Store) *Store {
	return &Store{kv: store}
}

// Record upserts the incident's current state.
func (s *Store) Record(ctx context.Context, inc *incident.Incident) error {
	b, err := json.Marshal(inc)
	if err != nil {
		return fmt.Errorf("marshal incident %s: %w", inc.ID, err)
	}
	if err := s.kv.Set(ctx, keyPrefix+inc.ID, b); err != nil {
		return fmt.Errorf("record incident %s: %w", inc.ID, err)
	}
	return nil
}

// Get retrieves one incident by id.
func (s *Store) Get(ctx context.Context, id string) (*incident.Incident, bool, error) {
	b, ok, err := s.kv.Get(ctx, keyPrefix+id)
	if err != nil {
		return nil, false, fmt.Errorf("get incident %s: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}
	var inc incident.Incident
	if err := json.Unmarshal(b, &inc); err != nil {
		return nil, false, fmt.Errorf("unmarshal incident %s: %w", id, err)
	}
	return &inc, true, nil
}

// List returns all recorded incidents, newest first.
func (s *Store) List(ctx context.Context) ([]incident.Incident, error) {
	pairs, err := s.kv.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	out := make([]incident.Incident, 0, len(pairs))
	for _, p := range pairs {
		var inc incident.Incident
		if err := json.Unmarshal(p.Value, &inc); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", p.Key, err)
		}
		out = append(out, inc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
