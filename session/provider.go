package session

import (
	"context"

	"github.com/impactgrid/platform/domain"
)

// SignupRequest carries the fields collected by the registration form.
// Role is forwarded to the auth service as sign-up metadata; the profile
// row itself is provisioned server-side.
type SignupRequest struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Phone        string
	Organization string
	Location     string
	Role         domain.Role
}

// AuthProvider is the surface of the hosted auth service the manager
// drives. Implementations push state changes to subscribers; the manager
// never sets its identity from an operation's return value.
type AuthProvider interface {
	// Subscribe registers a handler for auth state changes and returns a
	// function that removes it.
	Subscribe(handler func(event domain.AuthEvent)) (unsubscribe func())

	// CurrentSession returns the already-valid identity, if any. A missing
	// session is (nil, nil), not an error.
	CurrentSession(ctx context.Context) (*domain.Identity, error)

	SignInWithPassword(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, req SignupRequest) error

	// BeginOAuth hands control to the named provider's browser redirect.
	// On success the process is expected to lose control shortly after.
	BeginOAuth(ctx context.Context, provider string) error

	// SignOutGlobal revokes the session everywhere, not just locally.
	SignOutGlobal(ctx context.Context) error
}

// ProfileAPI fetches the profile row mirroring an identity. Not-found must
// surface as domain.ErrProfileNotFound so the loader can retry through the
// backend's replication window.
type ProfileAPI interface {
	FetchProfile(ctx context.Context, id string) (*domain.Profile, error)
}

// CredentialStore is the local persistence the auth client namespaces its
// session material into. Logout bulk-purges it by marker match rather than
// by individual key name, so the exact key set may change underneath us.
type CredentialStore interface {
	Keys() []string
	Delete(key string)
}

// Notifier receives the passive, user-visible notices the session layer
// emits (terminal profile-fetch failure). Errors are never pushed through
// here for expected credential failures.
type Notifier interface {
	Notify(message string)
}

// Navigator performs the full navigation reset to the application root
// that concludes every sign-out.
type Navigator interface {
	ResetToRoot()
}
