package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/impactgrid/platform/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileLoadRetriesWithLinearBackoff(t *testing.T) {
	base := 40 * time.Millisecond
	provider := newFakeProvider()

	var mu sync.Mutex
	attempts := 0
	profiles := &fakeProfiles{fetch: func(id string) (*domain.Profile, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts <= 2 {
			return nil, domain.ErrProfileNotFound
		}
		return profileFor(id), nil
	}}

	m := NewManager(Config{Provider: provider, Profiles: profiles, RetryBase: base})
	m.Start(context.Background())
	defer m.Close()

	provider.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Identity: identityFor("user-1")})
	waitReady(t, m)

	calls := profiles.callTimes()
	require.Len(t, calls, 3)
	assert.GreaterOrEqual(t, calls[1].Sub(calls[0]), base, "first retry waits at least base")
	assert.GreaterOrEqual(t, calls[2].Sub(calls[1]), 2*base, "second retry waits at least 2*base")

	state := m.Snapshot()
	assert.Equal(t, "user-1", state.Profile.ID)
	assert.False(t, state.ProfileLoading)
}

func TestProfileLoadExhaustsRetriesAndNotifiesOnce(t *testing.T) {
	provider := newFakeProvider()
	profiles := profilesReturning(nil) // every fetch is not-found
	notifier := &fakeNotifier{}

	m := NewManager(Config{
		Provider:  provider,
		Profiles:  profiles,
		Notifier:  notifier,
		RetryBase: 10 * time.Millisecond,
	})
	m.Start(context.Background())
	defer m.Close()

	provider.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Identity: identityFor("user-1")})

	require.Eventually(t, func() bool {
		return !m.Snapshot().ProfileLoading
	}, 2*time.Second, 5*time.Millisecond)

	state := m.Snapshot()
	assert.Nil(t, state.Profile)
	require.NotNil(t, state.Identity, "terminal fetch failure does not sign the user out")
	assert.Len(t, profiles.callTimes(), 4, "initial attempt plus three retries")
	assert.Equal(t, 1, notifier.count(), "failure notice fires exactly once")
}

func TestProfileLoadStopsRetryingOnNonTransientError(t *testing.T) {
	provider := newFakeProvider()
	profiles := &fakeProfiles{fetch: func(string) (*domain.Profile, error) {
		return nil, errors.New("row store unavailable")
	}}
	notifier := &fakeNotifier{}

	m := NewManager(Config{
		Provider:  provider,
		Profiles:  profiles,
		Notifier:  notifier,
		RetryBase: 10 * time.Millisecond,
	})
	m.Start(context.Background())
	defer m.Close()

	provider.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Identity: identityFor("user-1")})

	require.Eventually(t, func() bool {
		return !m.Snapshot().ProfileLoading
	}, 2*time.Second, 5*time.Millisecond)

	assert.Len(t, profiles.callTimes(), 1, "only not-found is retried")
	assert.Equal(t, 1, notifier.count())
}

func TestStaleProfileFetchIsDiscarded(t *testing.T) {
	provider := newFakeProvider()

	// user-a's row resolves slowly; user-b's immediately. The slow result
	// must never be applied once the identity has moved on.
	profiles := &fakeProfiles{fetch: func(id string) (*domain.Profile, error) {
		if id == "user-a" {
			time.Sleep(80 * time.Millisecond)
		}
		return profileFor(id), nil
	}}

	m := NewManager(Config{Provider: provider, Profiles: profiles, RetryBase: 10 * time.Millisecond})
	m.Start(context.Background())
	defer m.Close()

	provider.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Identity: identityFor("user-a")})
	time.Sleep(20 * time.Millisecond)
	provider.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Identity: identityFor("user-b")})

	waitReady(t, m)
	assert.Equal(t, "user-b", m.Snapshot().Profile.ID)

	// Let user-a's fetch resolve; the state must not regress.
	time.Sleep(120 * time.Millisecond)
	state := m.Snapshot()
	require.NotNil(t, state.Profile)
	assert.Equal(t, "user-b", state.Profile.ID)
	assert.Equal(t, "user-b", state.Identity.ID)
}

func TestPendingRetryIsAbandonedWhenIdentityClears(t *testing.T) {
	provider := newFakeProvider()
	profiles := profilesReturning(nil)
	notifier := &fakeNotifier{}

	m := NewManager(Config{
		Provider:  provider,
		Profiles:  profiles,
		Notifier:  notifier,
		RetryBase: 50 * time.Millisecond,
	})
	m.Start(context.Background())
	defer m.Close()

	provider.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Identity: identityFor("user-a")})
	require.Eventually(t, func() bool {
		return len(profiles.callTimes()) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	// Sign-out lands while the first retry timer is pending.
	provider.emit(domain.AuthEvent{Type: domain.AuthEventSignedOut})

	time.Sleep(200 * time.Millisecond)
	assert.LessOrEqual(t, len(profiles.callTimes()), 2, "retry loop stops once identity clears")
	assert.Equal(t, 0, notifier.count(), "abandoned fetch does not raise the terminal notice")

	state := m.Snapshot()
	assert.Nil(t, state.Identity)
	assert.Nil(t, state.Profile)
	assert.False(t, state.ProfileLoading)
}
