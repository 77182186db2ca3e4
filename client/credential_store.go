package client

import "sync"

// Credential keys are namespaced with the session.DefaultKeyMarker prefix
// so the session layer can purge them by marker match on logout without
// knowing the exact key names.
const (
	keyAccessToken = "ig-auth.access-token"
	keyIdentity    = "ig-auth.identity"
)

// CredentialStore is the client's local persistence for auth material.
// It is a superset of session.CredentialStore: the client also reads and
// writes values, the session layer only enumerates and deletes.
type CredentialStore interface {
	Keys() []string
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryCredentialStore is a thread-safe in-memory CredentialStore.
type MemoryCredentialStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryCredentialStore creates an empty credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{data: make(map[string]string)}
}

// Keys returns all stored key names.
func (s *MemoryCredentialStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Get returns the value stored under key.
func (s *MemoryCredentialStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *MemoryCredentialStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Delete removes key from the store.
func (s *MemoryCredentialStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}
