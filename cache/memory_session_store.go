package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemorySessionStore implements SessionStore using ttlcache. Expired
// entries are evicted automatically; there is nothing to sweep manually.
type MemorySessionStore struct {
	cache *ttlcache.Cache[string, SessionEntry]
}

// NewMemorySessionStore creates an in-memory session store with automatic
// expiry cleanup.
//
//nolint:ireturn
func NewMemorySessionStore() *MemorySessionStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, SessionEntry](),
	)

	go cache.Start()

	return &MemorySessionStore{cache: cache}
}

// Set implements SessionStore.Set.
func (s *MemorySessionStore) Set(_ context.Context, entry SessionEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(entry.TokenHash, entry, ttl)
	return nil
}

// Get implements SessionStore.Get.
func (s *MemorySessionStore) Get(_ context.Context, tokenHash string) (*SessionEntry, bool) {
	item := s.cache.Get(tokenHash)
	if item == nil {
		return nil, false
	}
	entry := item.Value()
	entry.LastUsedAt = time.Now().UTC()
	return &entry, true
}

// Delete implements SessionStore.Delete.
func (s *MemorySessionStore) Delete(_ context.Context, tokenHash string) bool {
	if s.cache.Get(tokenHash) == nil {
		return false
	}
	s.cache.Delete(tokenHash)
	return true
}

// DeleteByUser implements SessionStore.DeleteByUser.
func (s *MemorySessionStore) DeleteByUser(_ context.Context, userID string) int {
	var hashes []string
	s.cache.Range(func(item *ttlcache.Item[string, SessionEntry]) bool {
		if item.Value().UserID == userID {
			hashes = append(hashes, item.Key())
		}
		return true
	})
	for _, h := range hashes {
		s.cache.Delete(h)
	}
	return len(hashes)
}

// Count implements SessionStore.Count.
func (s *MemorySessionStore) Count(_ context.Context) int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine.
func (s *MemorySessionStore) Close() error {
	s.cache.Stop()
	return nil
}

var _ SessionStore = (*MemorySessionStore)(nil)
