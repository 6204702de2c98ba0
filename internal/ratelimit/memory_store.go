package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. It is only suitable for a
// single process and for tests.
type MemoryStore struct {
	mu        sync.Mutex
	doc       document
	retention time.Duration
}

// NewMemoryStore creates an empty store. Keys idle for longer than
// retention are dropped on write; zero keeps them.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{doc: document{}, retention: retention}
}

func (s *MemoryStore) Update(ctx context.Context, fn func(Records) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := make(document, len(s.doc))
	for k, v := range s.doc {
		working[k] = v
	}

	records := &documentRecords{doc: working}
	if err := fn(records); err != nil {
		return err
	}

	if records.dirty {
		working.sweep(s.retention)
		s.doc = working
	}
	return nil
}

// Snapshot returns a copy of the stored records.
func (s *MemoryStore) Snapshot() map[string][]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]int64, len(s.doc))
	for k, v := range s.doc {
		out[k] = append([]int64(nil), v...)
	}
	return out
}

func (s *MemoryStore) Close() error { return nil }
