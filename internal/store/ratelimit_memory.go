package store

import (
	"context"
	"sync"

	"github.com/serroba/ollo/internal/ratelimit"
)

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store.
type RateLimitMemoryStore struct {
	mu      sync.Mutex
	records map[string]ratelimit.Record
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		records: make(map[string]ratelimit.Record),
	}
}

// Update holds the store lock for the whole read-decide-write.
func (s *RateLimitMemoryStore) Update(_ context.Context, key string, fn ratelimit.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *ratelimit.Record

	if rec, ok := s.records[key]; ok {
		current = &rec
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if next != nil {
		s.records[key] = *next
	}

	return nil
}

// Get returns the record stored under key.
func (s *RateLimitMemoryStore) Get(key string) (ratelimit.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]

	return rec, ok
}

// Put overwrites the record stored under key.
func (s *RateLimitMemoryStore) Put(key string, rec ratelimit.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = rec
}
