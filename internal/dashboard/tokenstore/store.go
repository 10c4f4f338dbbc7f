// Package tokenstore persists the backend-issued session token. The token is
// the one piece of mutable shared state touched by multiple flows (login,
// passive refresh, interceptor-triggered logout), so every writer overwrites
// whole values and treats "absent" as a valid terminal state.
package tokenstore

import (
	"context"
	"sync"
)

// Store is the durable key-value persistence for the session token, scoped
// per profile. Get returns "" when no token is stored. Delete of an absent
// token is a no-op.
type Store interface {
	Get(ctx context.Context) (string, error)
	Put(ctx context.Context, token string) error
	Delete(ctx context.Context) error
	Close() error
}

// Memory is an in-process Store used by tests and ephemeral profiles.
type Memory struct {
	mu    sync.RWMutex
	token string
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Get(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *Memory) Put(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *Memory) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func (m *Memory) Close() error { return nil }
