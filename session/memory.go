package session

import (
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store, used in tests and single-node
// deployments that can tolerate losing in-flight logins on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(sessionID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sessionID+"\x00"+key]
	if !ok {
		return "", false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, sessionID+"\x00"+key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Set(sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sessionID+"\x00"+key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(InactivityLifetime),
	}
	return nil
}

func (s *MemoryStore) Delete(sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sessionID+"\x00"+key)
	return nil
}
