package cart

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-process storage backend used by tests and local
// development. TTLs are honored lazily on read.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: map[string]memoryEntry{}}
}

func (s *MemoryStorage) Read(_ context.Context, deviceID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && entry.expiresAt.Before(time.Now()) {
		delete(s.entries, deviceID)
		return nil, ErrNotFound
	}
	payload := make([]byte, len(entry.payload))
	copy(payload, entry.payload)
	return payload, nil
}

func (s *MemoryStorage) Write(_ context.Context, deviceID string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := memoryEntry{payload: append([]byte(nil), payload...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries[deviceID] = entry
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, deviceID)
	return nil
}
