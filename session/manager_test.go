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

// --- Fakes ---

type signInCall struct {
	email    string
	password string
}

// fakeProvider is a scriptable AuthProvider. When emitOnSignIn is set, a
// successful password sign-in pushes a SIGNED_IN event the way the real
// client does.
type fakeProvider struct {
	mu       sync.Mutex
	handlers map[int]func(domain.AuthEvent)
	nextID   int

	session    *domain.Identity
	sessionErr error
	// sessionGate, when non-nil, blocks CurrentSession until closed.
	sessionGate chan struct{}

	signInErr    error
	signInCalls  []signInCall
	signInGate   chan struct{}
	emitOnSignIn *domain.Identity

	signUpErr  error
	signUpReqs []SignupRequest

	oauthErr   error
	oauthCalls int

	signOutErr   error
	signOutCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{handlers: make(map[int]func(domain.AuthEvent))}
}

func (p *fakeProvider) Subscribe(handler func(domain.AuthEvent)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}
}

func (p *fakeProvider) emit(ev domain.AuthEvent) {
	p.mu.Lock()
	handlers := make([]func(domain.AuthEvent), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (p *fakeProvider) CurrentSession(_ context.Context) (*domain.Identity, error) {
	if p.sessionGate != nil {
		<-p.sessionGate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session, p.sessionErr
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, password string) error {
	p.mu.Lock()
	p.signInCalls = append(p.signInCalls, signInCall{email: email, password: password})
	gate := p.signInGate
	err := p.signInErr
	identity := p.emitOnSignIn
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}
	if identity != nil {
		p.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Identity: identity})
	}
	return nil
}

func (p *fakeProvider) SignUp(_ context.Context, req SignupRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signUpReqs = append(p.signUpReqs, req)
	return p.signUpErr
}

func (p *fakeProvider) BeginOAuth(_ context.Context, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.oauthCalls++
	return p.oauthErr
}

func (p *fakeProvider) SignOutGlobal(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOutCalls++
	return p.signOutErr
}

// fakeProfiles records fetch times and delegates to a scriptable function.
type fakeProfiles struct {
	mu    sync.Mutex
	calls []time.Time
	ids   []string
	fetch func(id string) (*domain.Profile, error)
}

func (f *fakeProfiles) FetchProfile(_ context.Context, id string) (*domain.Profile, error) {
	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	f.ids = append(f.ids, id)
	fetch := f.fetch
	f.mu.Unlock()
	return fetch(id)
}

func (f *fakeProfiles) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Time, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type fakeNavigator struct {
	mu     sync.Mutex
	resets int
}

func (n *fakeNavigator) ResetToRoot() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets++
}

func (n *fakeNavigator) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resets
}

// mapStore is an in-memory CredentialStore.
type mapStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapStore(keys ...string) *mapStore {
	s := &mapStore{data: make(map[string]string)}
	for _, k := range keys {
		s.data[k] = "v"
	}
	return s
}

func (s *mapStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	return out
}

func (s *mapStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func identityFor(id string) *domain.Identity {
	return &domain.Identity{ID: id, Email: id + "@example.com", IssuedAt: time.Now()}
}

func profileFor(id string) *domain.Profile {
	return &domain.Profile{
		ID:        id,
		Email:     id + "@example.com",
		FirstName: "Test",
		Role:      domain.RoleNGO,
		Status:    domain.ProfileStatusActive,
	}
}

func profilesReturning(profiles map[string]*domain.Profile) *fakeProfiles {
	return &fakeProfiles{fetch: func(id string) (*domain.Profile, error) {
		if p, ok := profiles[id]; ok {
			return p, nil
		}
		return nil, domain.ErrProfileNotFound
	}}
}

func waitReady(t *testing.T, m *Manager) {
	t.Helper()
	require.Eventually(t, func() bool {
		return m.Snapshot().Ready()
	}, 2*time.Second, 5*time.Millisecond, "session never became ready")
}

// --- Tests ---

func TestStartupConvergesRegardlessOfOrder(t *testing.T) {
	run := func(t *testing.T, eventFirst bool) State {
		provider := newFakeProvider()
		provider.session = identityFor("user-1")
		provider.sessionGate = make(chan struct{})
		profiles := profilesReturning(map[string]*domain.Profile{"user-1": profileFor("user-1")})

		m := NewManager(Config{Provider: provider, Profiles: profiles, RetryBase: 10 * time.Millisecond})
		m.Start(context.Background())
		defer m.Close()

		if eventFirst {
			provider.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Identity: provider.session})
			close(provider.sessionGate)
		} else {
			close(provider.sessionGate)
			require.Eventually(t, func() bool {
				return m.Snapshot().Identity != nil
			}, 2*time.Second, 5*time.Millisecond)
			provider.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Identity: provider.session})
		}

		waitReady(t, m)
		require.Eventually(t, func() bool {
			return !m.Snapshot().Initializing
		}, 2*time.Second, 5*time.Millisecond)
		return m.Snapshot()
	}

	a := run(t, true)
	b := run(t, false)

	require.NotNil(t, a.Identity)
	require.NotNil(t, b.Identity)
	assert.Equal(t, a.Identity.ID, b.Identity.ID)
	assert.Equal(t, a.Profile.ID, b.Profile.ID)
	assert.False(t, a.Initializing)
	assert.False(t, b.Initializing)
	assert.False(t, a.ProfileLoading)
	assert.False(t, b.ProfileLoading)
}

func TestRepeatedApplyDoesNotRefetchProfile(t *testing.T) {
	provider := newFakeProvider()
	identity := identityFor("user-1")
	provider.session = identity
	profiles := profilesReturning(map[string]*domain.Profile{"user-1": profileFor("user-1")})

	m := NewManager(Config{Provider: provider, Profiles: profiles})
	m.Start(context.Background())
	defer m.Close()
	waitReady(t, m)

	// A token refresh for the same identity must not fire the loader again.
	provider.emit(domain.AuthEvent{Type: domain.AuthEventTokenRefreshed, Identity: identity})
	provider.emit(domain.AuthEvent{Type: domain.AuthEventTokenRefreshed, Identity: identity})

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, profiles.callTimes(), 1)
	assert.True(t, m.Snapshot().Ready())
}

func TestLoginSingleFlight(t *testing.T) {
	provider := newFakeProvider()
	provider.signInGate = make(chan struct{})
	profiles := profilesReturning(nil)

	m := NewManager(Config{Provider: provider, Profiles: profiles})
	m.Start(context.Background())
	defer m.Close()

	done := make(chan error, 1)
	go func() {
		done <- m.Login(context.Background(), "a@example.com", "pw", "")
	}()

	require.Eventually(t, func() bool {
		return m.Snapshot().AuthInProgress
	}, 2*time.Second, 5*time.Millisecond)

	err := m.Login(context.Background(), "b@example.com", "pw", "")
	require.ErrorIs(t, err, ErrAuthInProgress)
	assert.True(t, m.Snapshot().AuthInProgress, "rejected call must not clear the in-flight slot")

	close(provider.signInGate)
	require.NoError(t, <-done)
	require.Eventually(t, func() bool {
		return !m.Snapshot().AuthInProgress
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLoginNormalizesEmail(t *testing.T) {
	provider := newFakeProvider()
	profiles := profilesReturning(nil)
	m := NewManager(Config{Provider: provider, Profiles: profiles})
	m.Start(context.Background())
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "  User@Example.COM ", "pw", ""))
	require.NoError(t, m.Login(context.Background(), "user@example.com", "pw", ""))

	require.Len(t, provider.signInCalls, 2)
	assert.Equal(t, provider.signInCalls[0].email, provider.signInCalls[1].email)
	assert.Equal(t, "user@example.com", provider.signInCalls[0].email)
}

func TestLoginFailureIsPassedThroughUntouched(t *testing.T) {
	provider := newFakeProvider()
	credErr := errors.New("invalid login credentials")
	provider.signInErr = credErr
	profiles := profilesReturning(nil)

	m := NewManager(Config{Provider: provider, Profiles: profiles})
	m.Start(context.Background())
	defer m.Close()

	err := m.Login(context.Background(), "user@example.com", "wrong", "")
	require.ErrorIs(t, err, credErr)

	state := m.Snapshot()
	assert.Nil(t, state.Identity)
	assert.Nil(t, state.Profile)
	assert.False(t, state.AuthInProgress)
}

func TestSignupTrimsFieldsAndForwardsRole(t *testing.T) {
	provider := newFakeProvider()
	profiles := profilesReturning(nil)
	m := NewManager(Config{Provider: provider, Profiles: profiles})
	m.Start(context.Background())
	defer m.Close()

	err := m.Signup(context.Background(), SignupRequest{
		Email:        " New@Example.com ",
		Password:     "secret123",
		FirstName:    " Ada ",
		LastName:     " Lovelace ",
		Phone:        " +36 1 234 ",
		Organization: " Impact NGO ",
		Location:     " Budapest ",
		Role:         domain.RoleNGO,
	}, "")
	require.NoError(t, err)

	require.Len(t, provider.signUpReqs, 1)
	got := provider.signUpReqs[0]
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, "Lovelace", got.LastName)
	assert.Equal(t, "+36 1 234", got.Phone)
	assert.Equal(t, "Impact NGO", got.Organization)
	assert.Equal(t, "Budapest", got.Location)
	assert.Equal(t, domain.RoleNGO, got.Role)
}

func TestPendingRedirectSurvivesLogin(t *testing.T) {
	provider := newFakeProvider()
	provider.emitOnSignIn = identityFor("user-1")
	profiles := profilesReturning(map[string]*domain.Profile{"user-1": profileFor("user-1")})

	m := NewManager(Config{Provider: provider, Profiles: profiles})
	m.Start(context.Background())
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "user-1@example.com", "pw", "ngo-platform"))
	waitReady(t, m)

	assert.Equal(t, "ngo-platform", m.Snapshot().PendingRedirect)

	// The consumer acts on it and clears it.
	m.SetPendingRedirect("")
	assert.Empty(t, m.Snapshot().PendingRedirect)
}

func TestGoogleSignInKeepsFlagSetUntilRedirect(t *testing.T) {
	provider := newFakeProvider()
	profiles := profilesReturning(nil)
	m := NewManager(Config{Provider: provider, Profiles: profiles})
	m.Start(context.Background())
	defer m.Close()

	require.NoError(t, m.SignInWithGoogle(context.Background()))
	assert.True(t, m.Snapshot().AuthInProgress, "flag must stay set after a successful redirect begin")

	err := m.SignInWithGoogle(context.Background())
	require.ErrorIs(t, err, ErrAuthInProgress)
	assert.Equal(t, 1, provider.oauthCalls)
}

func TestGoogleSignInClearsFlagOnSynchronousFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.oauthErr = errors.New("provider unreachable")
	profiles := profilesReturning(nil)
	m := NewManager(Config{Provider: provider, Profiles: profiles})
	m.Start(context.Background())
	defer m.Close()

	require.Error(t, m.SignInWithGoogle(context.Background()))
	assert.False(t, m.Snapshot().AuthInProgress)
}

func TestLogoutClearsEverythingEvenWhenRemoteFails(t *testing.T) {
	provider := newFakeProvider()
	provider.signOutErr = errors.New("revoke endpoint down")
	provider.emitOnSignIn = identityFor("user-1")
	profiles := profilesReturning(map[string]*domain.Profile{"user-1": profileFor("user-1")})
	creds := newMapStore("ig-auth.access-token", "ig-auth.refresh-token", "theme.preference")
	nav := &fakeNavigator{}

	m := NewManager(Config{
		Provider:    provider,
		Profiles:    profiles,
		Credentials: creds,
		Navigator:   nav,
	})
	m.Start(context.Background())
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "user-1@example.com", "pw", "ngo-platform"))
	waitReady(t, m)

	require.NoError(t, m.Logout(context.Background()), "sign-out failure is logged, not propagated")

	state := m.Snapshot()
	assert.Nil(t, state.Identity)
	assert.Nil(t, state.Profile)
	assert.Empty(t, state.PendingRedirect)
	assert.False(t, state.AuthInProgress)
	assert.Equal(t, 1, nav.count())
	assert.ElementsMatch(t, []string{"theme.preference"}, creds.Keys(),
		"only marker-namespaced keys are purged")
	assert.Equal(t, 1, provider.signOutCalls)
}

func TestSignedOutEventClearsIdentityProfileAndRedirect(t *testing.T) {
	provider := newFakeProvider()
	provider.emitOnSignIn = identityFor("user-1")
	profiles := profilesReturning(map[string]*domain.Profile{"user-1": profileFor("user-1")})

	m := NewManager(Config{Provider: provider, Profiles: profiles})
	m.Start(context.Background())
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "user-1@example.com", "pw", "vendor-dashboard"))
	waitReady(t, m)

	provider.emit(domain.AuthEvent{Type: domain.AuthEventSignedOut})

	require.Eventually(t, func() bool {
		s := m.Snapshot()
		return s.Identity == nil && s.Profile == nil
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, m.Snapshot().PendingRedirect)
	assert.False(t, m.Snapshot().ProfileLoading)
}
