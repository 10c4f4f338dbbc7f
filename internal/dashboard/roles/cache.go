// Package roles answers "what can this principal do" with caching and
// explicit invalidation.
package roles

import (
	"context"
	"sync"
	"time"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
)

// Entry is a cached role resolution keyed by principal identifier.
type Entry struct {
	Identifier string      `json:"identifier"`
	Value      domain.Role `json:"value"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// Stale reports whether the entry has outlived ttl at the given instant.
func (e Entry) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) >= ttl
}

// Cache stores role entries by identifier.
type Cache interface {
	Get(ctx context.Context, identifier string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	Invalidate(ctx context.Context, identifier string) error
}

// Memory is the default in-process cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(ctx context.Context, identifier string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[identifier]
	return e, ok, nil
}

func (m *Memory) Put(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Identifier] = e
	return nil
}

func (m *Memory) Invalidate(ctx context.Context, identifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, identifier)
	return nil
}
