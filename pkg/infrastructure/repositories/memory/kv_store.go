package memory

import (
	"context"
	"sync"

	"github.com/vsinha/requisition/pkg/domain/repositories"
)

// KeyValueStore provides in-memory durable-store semantics for tests and
// throwaway sessions
type KeyValueStore struct {
	mu     sync.RWMutex
	values map[string][]byte

	// Fail, when set, is consulted before every operation and may inject an error
	Fail func(op, key string) error
}

// NewKeyValueStore creates an empty store
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{values: make(map[string][]byte)}
}

// Verify interface compliance
var _ repositories.KeyValueStore = (*KeyValueStore)(nil)

// Get returns a copy of the value stored under key
func (s *KeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.check("get", key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.values[key]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set replaces the value stored under key
func (s *KeyValueStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.check("set", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key; deleting an absent key is not an error
func (s *KeyValueStore) Delete(ctx context.Context, key string) error {
	if err := s.check("delete", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Has reports whether key currently holds a value
func (s *KeyValueStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.values[key]
	return exists
}

// Keys returns the number of stored keys
func (s *KeyValueStore) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func (s *KeyValueStore) check(op, key string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op, key)
}
