package store

import (
	"context"
	"sync"
)

// MemStore is an in-memory implementation of Store[S].
//
// It keeps each thread's checkpoint history in a slice guarded by a mutex.
// Designed for tests and short-lived processes; data does not survive a
// restart. For durable persistence use SQLiteStore, MySQLStore, or RedisStore.
//
// Type parameter S is the state type to persist.
type MemStore[S any] struct {
	mu      sync.RWMutex
	threads map[string][]Checkpoint[S]
}

// NewMemStore creates a new in-memory store.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		threads: make(map[string][]Checkpoint[S]),
	}
}

// Latest returns the thread's highest-sequence checkpoint.
func (m *MemStore[S]) Latest(_ context.Context, threadID string) (Checkpoint[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cps := m.threads[threadID]
	if len(cps) == 0 {
		var zero Checkpoint[S]
		return zero, ErrNotFound
	}
	return cps[len(cps)-1], nil
}

// Append adds a checkpoint, enforcing strictly increasing sequence numbers.
func (m *MemStore[S]) Append(_ context.Context, cp Checkpoint[S]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cps := m.threads[cp.ThreadID]
	if len(cps) > 0 && cp.Seq <= cps[len(cps)-1].Seq {
		return ErrSequenceConflict
	}

	m.threads[cp.ThreadID] = append(cps, cp)
	return nil
}

// History returns the thread's checkpoints oldest first.
func (m *MemStore[S]) History(_ context.Context, threadID string) ([]Checkpoint[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cps := m.threads[threadID]

	// Copy so callers cannot mutate internal history.
	out := make([]Checkpoint[S], len(cps))
	copy(out, cps)
	return out, nil
}
