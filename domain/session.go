package domain

import "time"

// Session is a server-side record of an issued session token. Only the
// SHA-256 hash of the opaque token is stored; the token itself never leaves
// the auth response.
type Session struct {
	ID         string    `bson:"_id,omitempty"`
	UserID     string    `bson:"user_id"`
	TokenHash  string    `bson:"token_hash,unique"`
	UserAgent  string    `bson:"user_agent,omitempty"`
	IPAddress  string    `bson:"ip_address,omitempty"`
	ExpiresAt  time.Time `bson:"expires_at"`
	CreatedAt  time.Time `bson:"created_at"`
	LastUsedAt time.Time `bson:"last_used_at,omitempty"`
	IsRevoked  bool      `bson:"is_revoked,omitempty"`
}

// Active reports whether the session can still authenticate requests.
func (s *Session) Active(now time.Time) bool {
	return !s.IsRevoked && now.Before(s.ExpiresAt)
}
