package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/impactgrid/platform/cache"
)

// SessionStore implements cache.SessionStore on Redis so multiple API
// instances share one session view.
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore creates a Redis-backed session store. Keys are namespaced
// under prefix.
func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: prefix,
	}
}

func (r *SessionStore) sessionKey(tokenHash string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, tokenHash)
}

func (r *SessionStore) userKey(userID string) string {
	return fmt.Sprintf("%s:user-sessions:%s", r.prefix, userID)
}

// Set stores a session entry under its token hash and indexes it by user
// for global sign-out.
func (r *SessionStore) Set(ctx context.Context, entry cache.SessionEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal session entry: %w", err)
	}

	key := r.sessionKey(entry.TokenHash)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, raw, ttl)
	pipe.SAdd(ctx, r.userKey(entry.UserID), entry.TokenHash)
	pipe.Expire(ctx, r.userKey(entry.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}
	return nil
}

// Get retrieves a session entry by token hash.
func (r *SessionStore) Get(ctx context.Context, tokenHash string) (*cache.SessionEntry, bool) {
	raw, err := r.client.Get(ctx, r.sessionKey(tokenHash)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Error().Err(err).Msg("redis session lookup failed")
		}
		return nil, false
	}

	var entry cache.SessionEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal cached session entry")
		return nil, false
	}

	entry.LastUsedAt = time.Now().UTC()
	return &entry, true
}

// Delete removes a session entry.
func (r *SessionStore) Delete(ctx context.Context, tokenHash string) bool {
	deleted, err := r.client.Del(ctx, r.sessionKey(tokenHash)).Result()
	if err != nil {
		log.Error().Err(err).Msg("redis session delete failed")
		return false
	}
	return deleted > 0
}

// DeleteByUser removes every cached session of a user via the per-user
// index set.
func (r *SessionStore) DeleteByUser(ctx context.Context, userID string) int {
	hashes, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("failed to read user session index")
		return 0
	}

	var deleted int
	for _, h := range hashes {
		if ok := r.Delete(ctx, h); ok {
			deleted++
		}
	}
	if err := r.client.Del(ctx, r.userKey(userID)).Err(); err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("failed to drop user session index")
	}
	return deleted
}

// Count scans the session keyspace. Used by diagnostics only, so the SCAN
// cost is acceptable.
func (r *SessionStore) Count(ctx context.Context) int {
	pattern := r.sessionKey("*")
	var count int
	var cursor uint64

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			log.Error().Err(err).Msg("redis session scan failed")
			break
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return count
}

// Close is a no-op; the redis client is owned by the caller.
func (r *SessionStore) Close() error {
	return nil
}

var _ cache.SessionStore = (*SessionStore)(nil)
