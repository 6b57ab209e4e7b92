package cache

import (
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// memoryStore is the in-process fallback. Entries honor TTLs: reads check
// expiry lazily, and PurgeExpired sweeps the rest. Never shared across
// processes.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]memoryEntry)}
}

func (m *memoryStore) get(key string) ([]byte, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.delete(key)
		return nil, false
	}
	return entry.value, true
}

func (m *memoryStore) set(key string, value []byte, ttl time.Duration) {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
}

func (m *memoryStore) delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *memoryStore) deletePattern(pattern string) {
	m.mu.Lock()
	for key := range m.entries {
		if matchesPattern(pattern, key) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
}

func (m *memoryStore) purgeExpired() int {
	now := time.Now()
	purged := 0
	m.mu.Lock()
	for key, entry := range m.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(m.entries, key)
			purged++
		}
	}
	m.mu.Unlock()
	return purged
}
