package domain

import "errors"

var (
	// ErrProfileNotFound is returned when no profile row exists for an id.
	// During the replication window right after sign-up this is transient;
	// the session layer retries it with bounded backoff.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrCampaignNotFound is returned when a campaign row does not exist.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrSessionNotFound is returned when a session token resolves to no
	// active session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmailTaken is returned on duplicate registration.
	ErrEmailTaken = errors.New("an account with this email already exists")

	// ErrInvalidCredentials is returned for a wrong email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountSuspended is returned when a suspended account signs in.
	ErrAccountSuspended = errors.New("account is suspended")

	// ErrWeakPassword is returned when a sign-up password fails policy.
	ErrWeakPassword = errors.New("password does not meet minimum requirements")
)
