package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/impactgrid/platform/cache"
	"github.com/impactgrid/platform/domain"
)

// TokenService issues and resolves opaque session tokens. Tokens are random,
// carry no claims, and are stored only as SHA-256 hashes. The session cache
// answers per-request lookups; MongoDB keeps the durable rows for audit and
// global sign-out.
type TokenService struct {
	store    cache.SessionStore
	sessions domain.SessionRepository
	ttl      time.Duration
}

// NewTokenService creates a new TokenService. ttl is the lifetime of every
// issued token.
func NewTokenService(store cache.SessionStore, sessions domain.SessionRepository, ttl time.Duration) *TokenService {
	return &TokenService{
		store:    store,
		sessions: sessions,
		ttl:      ttl,
	}
}

// newOpaqueToken returns a token with no embedded claims. The "igp_" prefix
// makes leaked tokens findable by secret scanners.
func newOpaqueToken() string {
	return "igp_" + strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Issue creates a session for a profile and returns the raw token together
// with the identity the token represents. The raw token is never stored.
func (s *TokenService) Issue(ctx context.Context, profile *domain.Profile) (string, *domain.Identity, error) {
	now := time.Now().UTC()
	token := newOpaqueToken()
	tokenHash := cache.HashToken(token)

	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    profile.ID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.StoreSession(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}

	entry := cache.SessionEntry{
		TokenHash: tokenHash,
		UserID:    profile.ID,
		Email:     profile.Email,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: now,
	}
	if err := s.store.Set(ctx, entry); err != nil {
		// The durable row exists, so the token still works through the
		// fallback path. Log and continue.
		log.Error().Err(err).Str("userID", profile.ID).Msg("failed to cache session entry")
	}

	identity := &domain.Identity{
		ID:        profile.ID,
		Email:     profile.Email,
		IssuedAt:  now,
		ExpiresAt: session.ExpiresAt,
	}
	return token, identity, nil
}

// Resolve maps a raw token to the identity it was issued for. Cache first,
// MongoDB on miss; a durable hit repopulates the cache.
func (s *TokenService) Resolve(ctx context.Context, token string) (*domain.Identity, error) {
	tokenHash := cache.HashToken(token)
	now := time.Now().UTC()

	if entry, ok := s.store.Get(ctx, tokenHash); ok {
		if now.Before(entry.ExpiresAt) {
			return &domain.Identity{
				ID:        entry.UserID,
				Email:     entry.Email,
				IssuedAt:  entry.CreatedAt,
				ExpiresAt: entry.ExpiresAt,
			}, nil
		}
		s.store.Delete(ctx, tokenHash)
	}

	session, err := s.sessions.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if !session.Active(now) {
		return nil, domain.ErrSessionNotFound
	}

	// Repopulate the cache. Email is not on the durable row, so the entry
	// carries only what a later cache hit needs for identity resolution.
	entry := cache.SessionEntry{
		TokenHash: tokenHash,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	}
	if err := s.store.Set(ctx, entry); err != nil {
		log.Error().Err(err).Msg("failed to repopulate session cache")
	}

	return &domain.Identity{
		ID:        session.UserID,
		IssuedAt:  session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Revoke invalidates a single token in both the cache and the durable store.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	tokenHash := cache.HashToken(token)
	s.store.Delete(ctx, tokenHash)

	session, err := s.sessions.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up session for revocation: %w", err)
	}
	return s.sessions.RevokeSession(ctx, session.ID)
}

// RevokeAllForUser invalidates every session of a user everywhere. Used by
// global sign-out and account suspension.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	dropped := s.store.DeleteByUser(ctx, userID)
	revoked, err := s.sessions.RevokeSessionsByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	log.Info().
		Str("userID", userID).
		Int("cacheDropped", dropped).
		Int64("revoked", revoked).
		Msg("revoked all sessions for user")
	return nil
}

// TTL returns the configured session lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
