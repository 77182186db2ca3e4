package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/impactgrid/platform/domain"
	"github.com/rs/zerolog/log"
)

// ErrAuthInProgress is the synchronous rejection of a second auth operation
// while one is already in flight. Operations fail fast rather than queue.
var ErrAuthInProgress = errors.New("another authentication operation is already in progress")

// DefaultKeyMarker is the namespace marker the platform auth client embeds
// in every local credential key. Logout deletes keys by this marker.
const DefaultKeyMarker = "ig-auth"

const defaultRetryBase = time.Second

// State is a point-in-time snapshot of the session. Identity and Profile
// are either both owned by the same user id or Profile is nil.
type State struct {
	Identity        *domain.Identity
	Profile         *domain.Profile
	AuthInProgress  bool
	Initializing    bool
	ProfileLoading  bool
	PendingRedirect string
}

// Ready reports whether both identity and profile are populated, i.e. the
// session is functional and role-based UI may render.
func (s State) Ready() bool {
	return s.Identity != nil && s.Profile != nil
}

// Config wires a Manager. Provider and Profiles are required; the rest
// default to inert implementations.
type Config struct {
	Provider    AuthProvider
	Profiles    ProfileAPI
	Credentials CredentialStore
	Notifier    Notifier
	Navigator   Navigator
	// KeyMarker overrides the local credential namespace marker.
	KeyMarker string
	// RetryBase overrides the 1s base of the profile loader's linear
	// backoff. Tests shrink it; production leaves it alone.
	RetryBase time.Duration
}

// Manager is the single source of truth for "who is signed in right now".
// It converges on the identity pushed by the auth service, loads the
// matching profile with bounded retry, serializes the four auth operations,
// and carries the pending-redirect intent across the async gap between an
// operation returning and the profile becoming available.
type Manager struct {
	provider  AuthProvider
	profiles  ProfileAPI
	creds     CredentialStore
	notifier  Notifier
	navigator Navigator
	keyMarker string
	retryBase time.Duration

	mu              sync.Mutex
	identity        *domain.Identity
	profile         *domain.Profile
	authInProgress  bool
	initializing    bool
	profileLoading  bool
	pendingRedirect string
	// gen is bumped on every identity transition; in-flight profile
	// fetches carry the gen they were issued under and discard themselves
	// when it no longer matches.
	gen uint64

	unsubscribe func()
	loaders     sync.WaitGroup
}

// NewManager builds a Manager. Call Start before reading Snapshot.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		provider:     cfg.Provider,
		profiles:     cfg.Profiles,
		creds:        cfg.Credentials,
		notifier:     cfg.Notifier,
		navigator:    cfg.Navigator,
		keyMarker:    cfg.KeyMarker,
		retryBase:    cfg.RetryBase,
		initializing: true,
	}
	if m.keyMarker == "" {
		m.keyMarker = DefaultKeyMarker
	}
	if m.retryBase <= 0 {
		m.retryBase = defaultRetryBase
	}
	return m
}

// Start subscribes to auth change notifications and checks for an existing
// session concurrently. The two paths may resolve in either order; both
// funnel through the same idempotent apply, so the final state is the same
// regardless.
func (m *Manager) Start(ctx context.Context) {
	m.unsubscribe = m.provider.Subscribe(func(ev domain.AuthEvent) {
		m.handleAuthEvent(ctx, ev)
	})
	go m.checkExistingSession(ctx)
}

// Close tears down the auth subscription and waits for in-flight profile
// loads to drain.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.loaders.Wait()
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Identity:        m.identity,
		Profile:         m.profile,
		AuthInProgress:  m.authInProgress,
		Initializing:    m.initializing,
		ProfileLoading:  m.profileLoading,
		PendingRedirect: m.pendingRedirect,
	}
}

// SetPendingRedirect stores (or, with an empty value, clears) the
// destination to resume once identity and profile are both present. The
// consuming layer clears it after acting on it.
func (m *Manager) SetPendingRedirect(destination string) {
	m.mu.Lock()
	m.pendingRedirect = destination
	m.mu.Unlock()
}

func (m *Manager) handleAuthEvent(ctx context.Context, ev domain.AuthEvent) {
	log.Debug().Str("event", string(ev.Type)).Msg("auth state change received")
	m.applyIdentity(ctx, ev.Identity)
}

func (m *Manager) checkExistingSession(ctx context.Context) {
	identity, err := m.provider.CurrentSession(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("startup session check failed")
		m.mu.Lock()
		m.initializing = false
		m.mu.Unlock()
		return
	}
	if identity == nil {
		// No stored session. Do not clear identity: a sign-in event may
		// already have landed while this check was in flight.
		m.mu.Lock()
		m.initializing = false
		m.mu.Unlock()
		return
	}
	m.applyIdentity(ctx, identity)
}

// applyIdentity is the single state transition for identity changes. It is
// idempotent: re-applying the identity that is already current (with its
// profile loaded or loading) refreshes token metadata and nothing else,
// which is what makes the startup check and the subscription safe to race.
func (m *Manager) applyIdentity(ctx context.Context, identity *domain.Identity) {
	m.mu.Lock()
	m.initializing = false

	if identity == nil {
		if m.identity == nil && m.profile == nil && !m.profileLoading {
			m.mu.Unlock()
			return
		}
		// Identity and profile clear in the same transition; a pending
		// redirect must not fire after the user has left.
		m.identity = nil
		m.profile = nil
		m.profileLoading = false
		m.pendingRedirect = ""
		m.gen++
		m.mu.Unlock()
		return
	}

	if m.identity != nil && m.identity.ID == identity.ID && (m.profile != nil || m.profileLoading) {
		m.identity = identity
		m.mu.Unlock()
		return
	}

	m.identity = identity
	m.profile = nil
	m.profileLoading = true
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.loaders.Add(1)
	go func() {
		defer m.loaders.Done()
		m.loadProfile(ctx, identity.ID, gen)
	}()
}

// Login signs in with email and password. The identity is populated by the
// provider's change notification, never directly here, so there is a single
// source of truth for session state. Credential errors are returned
// verbatim for the presentation layer to classify.
func (m *Manager) Login(ctx context.Context, email, password, redirectTo string) error {
	if err := m.beginAuth(redirectTo); err != nil {
		return err
	}
	defer m.endAuth()

	email = domain.NormalizeEmail(email)
	if err := m.provider.SignInWithPassword(ctx, email, password); err != nil {
		log.Debug().Str("email", email).Msg("login rejected by auth service")
		return err
	}
	return nil
}

// Signup registers a new account. Field whitespace is trimmed and the email
// normalized before the call; the profile row is provisioned server-side
// and picked up by the profile loader once the sign-in event fires.
func (m *Manager) Signup(ctx context.Context, req SignupRequest, redirectTo string) error {
	if err := m.beginAuth(redirectTo); err != nil {
		return err
	}
	defer m.endAuth()

	req.Email = domain.NormalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Organization = strings.TrimSpace(req.Organization)
	req.Location = strings.TrimSpace(req.Location)

	if err := m.provider.SignUp(ctx, req); err != nil {
		log.Debug().Str("email", req.Email).Msg("signup rejected by auth service")
		return err
	}
	return nil
}

// SignInWithGoogle starts the provider's browser redirect. On success the
// in-progress flag stays set: control is leaving the application and all
// state re-initializes after the redirect returns, so clearing it early
// would let a duplicate attempt start before the redirect fires. Only a
// synchronous failure clears it.
func (m *Manager) SignInWithGoogle(ctx context.Context) error {
	if err := m.beginAuth(""); err != nil {
		return err
	}
	if err := m.provider.BeginOAuth(ctx, "google"); err != nil {
		m.endAuth()
		return err
	}
	return nil
}

// Logout clears the pending redirect, purges the auth client's local
// credential keys, and revokes the session globally. Local state is zeroed
// and navigation reset whether or not the remote revoke succeeds: leaving
// the user half signed out is worse than a silently failed revoke, so the
// error is only logged.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.beginAuth(""); err != nil {
		return err
	}

	m.mu.Lock()
	m.pendingRedirect = ""
	m.mu.Unlock()

	m.purgeCredentials()

	if err := m.provider.SignOutGlobal(ctx); err != nil {
		log.Error().Err(err).Msg("global sign-out failed, clearing local state anyway")
	}

	m.mu.Lock()
	m.identity = nil
	m.profile = nil
	m.profileLoading = false
	m.pendingRedirect = ""
	m.gen++
	m.authInProgress = false
	m.mu.Unlock()

	if m.navigator != nil {
		m.navigator.ResetToRoot()
	}
	return nil
}

// beginAuth acquires the single-flight slot and stashes the redirect
// intent, if any, before the async call starts.
func (m *Manager) beginAuth(redirectTo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.authInProgress {
		return ErrAuthInProgress
	}
	m.authInProgress = true
	if redirectTo != "" {
		m.pendingRedirect = redirectTo
	}
	return nil
}

func (m *Manager) endAuth() {
	m.mu.Lock()
	m.authInProgress = false
	m.mu.Unlock()
}

// purgeCredentials deletes every local key carrying the auth namespace
// marker. Matching by marker instead of exact names keeps this robust to
// the auth client renaming its keys.
func (m *Manager) purgeCredentials() {
	if m.creds == nil {
		return
	}
	for _, key := range m.creds.Keys() {
		if strings.Contains(key, m.keyMarker) {
			m.creds.Delete(key)
		}
	}
}

func (m *Manager) notify(message string) {
	if m.notifier != nil {
		m.notifier.Notify(message)
	}
}
