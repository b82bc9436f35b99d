package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCorruptEntry is returned when a stored entry cannot be decoded.
var ErrCorruptEntry = errors.New("corrupt cache entry")

// Store persists serialized responses with a time-to-live.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the value stored under key, or false if absent or expired.
	Load(ctx context.Context, key string) ([]byte, bool, error)
	// Save stores value under key for ttl.
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Remove deletes the value stored under key, if any.
	Remove(ctx context.Context, key string) error
	// RemoveAll deletes every value held by the store.
	RemoveAll(ctx context.Context) error
}

// entry represents a cached value with expiration time.
type entry struct {
	value      []byte
	expiration time.Time
}

func (e entry) expired(now time.Time) bool {
	return !now.Before(e.expiration)
}

// sweepInterval bounds how often Save scans a Memory store for expired entries.
const sweepInterval = time.Minute

// Memory is an in-process [Store]. Expired entries are dropped on Load and
// by a sweep that Save runs at most once per minute.
type Memory struct {
	mu        sync.RWMutex
	entries   map[string]entry
	now       func() time.Time
	lastSweep time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

var shared = sync.OnceValue(NewMemory)

// Shared returns the process-wide memory store used by default sessions.
func Shared() *Memory {
	return shared()
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, found := m.entries[key]
	m.mu.RUnlock()

	if !found {
		return nil, false, nil
	}

	if e.expired(m.now()) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expired(m.now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}

	return e.value, true, nil
}

func (m *Memory) Save(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweep(now)
	}

	m.entries[key] = entry{
		value:      value,
		expiration: now.Add(ttl),
	}

	return nil
}

// sweep drops expired entries. m.mu must be held.
func (m *Memory) sweep(now time.Time) {
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
		}
	}
	m.lastSweep = now
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) RemoveAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
	return nil
}

// Len reports the number of entries currently held, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
