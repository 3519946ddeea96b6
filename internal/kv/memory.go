package kv

import "sync"

// MemoryStore lives only as long as the process. It backs the session store
// and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
	quota   int64
}

func NewMemory(quota int64) *MemoryStore {
	return &MemoryStore{entries: make(map[string]string), quota: quota}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quota > 0 {
		var used int64
		for k, v := range s.entries {
			if k != key {
				used += int64(len(k) + len(v))
			}
		}
		if overQuota(s.quota, used, key, value) {
			return ErrQuotaExceeded
		}
	}
	s.entries[key] = value
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
