// Package kv defines the narrow durable key-value interface behind the
// offline queue and incident history. Backends are swappable without
// touching dispatch logic.
package kv

import "context"

// Pair is one stored key/value record.
type Pair struct {
	Key   string
	Value []byte
}

// Store is a durable string-keyed byte store. List returns pairs in
// ascending key order.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Pair, error)
}
