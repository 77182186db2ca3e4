package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SessionEntry is the cached view of an issued session token, keyed by the
// token's hash. The raw token never enters the cache.
type SessionEntry struct {
	TokenHash  string    `json:"token_hash"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// SessionStore is the hot read path for bearer-token authentication.
// MongoDB keeps the durable session rows; this store answers the per-request
// lookups.
type SessionStore interface {
	Set(ctx context.Context, entry SessionEntry) error
	Get(ctx context.Context, tokenHash string) (*SessionEntry, bool)
	Delete(ctx context.Context, tokenHash string) bool
	// DeleteByUser drops every cached session of a user (global sign-out)
	// and reports how many were removed.
	DeleteByUser(ctx context.Context, userID string) int
	Count(ctx context.Context) int
	Close() error
}

// HashToken returns the hex SHA-256 of a session token, the only form in
// which tokens are stored or looked up.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
