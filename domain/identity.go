package domain

import "time"

// Identity is the auth-service-issued principal for a signed-in user.
// It carries token metadata only; the application-level record is Profile.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthEventType enumerates the auth state changes the service pushes.
type AuthEventType string

const (
	AuthEventSignedIn       AuthEventType = "SIGNED_IN"
	AuthEventSignedOut      AuthEventType = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is delivered to subscribers whenever sign-in, sign-out or a
// token refresh occurs. Identity is nil for sign-out.
type AuthEvent struct {
	Type     AuthEventType
	Identity *Identity
}
