package session

import (
	"context"
	"errors"
	"time"

	"github.com/impactgrid/platform/domain"
	"github.com/rs/zerolog/log"
)

// maxProfileRetries bounds the loader's not-found retries. With the 1s
// linear backoff the worst case is four queries over six seconds of
// waiting, enough to absorb the replication lag between identity creation
// and row visibility.
const maxProfileRetries = 3

// loadProfile fetches the profile row for userID, retrying transient
// not-found with linear backoff (base, 2*base, 3*base). The gen tag makes
// the whole attempt, including its timers, self-cancelling: if the
// identity transitions while anything here is pending, the eventual result
// is discarded instead of applied.
func (m *Manager) loadProfile(ctx context.Context, userID string, gen uint64) {
	for attempt := 0; ; attempt++ {
		profile, err := m.profiles.FetchProfile(ctx, userID)
		if m.stale(gen) {
			log.Debug().Str("userID", userID).Msg("discarding profile fetch for superseded identity")
			return
		}

		if err == nil {
			m.mu.Lock()
			if m.gen == gen {
				m.profile = profile
				m.profileLoading = false
			}
			m.mu.Unlock()
			return
		}

		if !errors.Is(err, domain.ErrProfileNotFound) || attempt >= maxProfileRetries {
			m.failProfileLoad(userID, gen, attempt, err)
			return
		}

		wait := m.retryBase * time.Duration(attempt+1)
		log.Debug().
			Str("userID", userID).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("profile row not visible yet, retrying")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
		if m.stale(gen) {
			return
		}
	}
}

// failProfileLoad is the terminal path: profile forced empty, loading flag
// cleared, one passive notice. The identity stays; signing the user out is
// the consumer's decision, not ours.
func (m *Manager) failProfileLoad(userID string, gen uint64, attempt int, err error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.profile = nil
	m.profileLoading = false
	m.mu.Unlock()

	log.Error().Err(err).
		Str("userID", userID).
		Int("attempts", attempt+1).
		Msg("profile load failed terminally")
	m.notify("We could not load your profile. Please sign in again.")
}

// stale reports whether gen has been superseded by an identity transition.
func (m *Manager) stale(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen != gen
}
