package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/impactgrid/platform/domain"
	"github.com/impactgrid/platform/internal/federation"
)

const minPasswordLength = 8

// LoginResult is what every successful authentication path returns: the raw
// session token plus the identity and profile it resolves to.
type LoginResult struct {
	Token    string
	Identity domain.Identity
	Profile  *domain.Profile
}

// SignupParams carries the fields of a registration request. Email is
// normalized and the name fields are trimmed before the row is written.
type SignupParams struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Phone        string
	Organization string
	Location     string
	Role         domain.Role
}

// AuthService implements password and federated sign-in, sign-up and global
// sign-out on top of the profile repository and the token service.
type AuthService struct {
	profiles  domain.ProfileRepository
	tokens    *TokenService
	hasher    PasswordHasher
	providers map[string]federation.OAuth2Provider
}

// NewAuthService creates a new AuthService. providers maps provider names
// ("google") to their federation implementations.
func NewAuthService(
	profiles domain.ProfileRepository,
	tokens *TokenService,
	hasher PasswordHasher,
	providers map[string]federation.OAuth2Provider,
) *AuthService {
	if providers == nil {
		providers = map[string]federation.OAuth2Provider{}
	}
	return &AuthService{
		profiles:  profiles,
		tokens:    tokens,
		hasher:    hasher,
		providers: providers,
	}
}

// SignInWithPassword checks an email/password pair and issues a session.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*LoginResult, error) {
	email = domain.NormalizeEmail(email)
	log.Debug().Str("email", email).Msg("password sign-in attempt")

	profile, err := s.profiles.GetProfileByEmail(ctx, email)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("sign-in: profile not found")
		return nil, domain.ErrInvalidCredentials
	}
	if profile.Status == domain.ProfileStatusSuspended {
		log.Warn().Str("userID", profile.ID).Msg("sign-in: account suspended")
		return nil, domain.ErrAccountSuspended
	}
	if profile.PasswordHash == "" {
		// Federated-only account. Treat as a credential mismatch rather
		// than leaking how the account was created.
		log.Warn().Str("userID", profile.ID).Msg("sign-in: no local password on account")
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.hasher.Verify(profile.PasswordHash, password); err != nil {
		log.Warn().Str("userID", profile.ID).Msg("sign-in: incorrect password")
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueFor(ctx, profile)
}

// SignUp registers a new profile and signs it in.
func (s *AuthService) SignUp(ctx context.Context, params SignupParams) (*LoginResult, error) {
	email := domain.NormalizeEmail(params.Email)
	if len(params.Password) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}
	if !params.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", params.Role)
	}

	if _, err := s.profiles.GetProfileByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	profile := &domain.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		Phone:        strings.TrimSpace(params.Phone),
		Organization: strings.TrimSpace(params.Organization),
		Location:     strings.TrimSpace(params.Location),
		Role:         params.Role,
		Status:       domain.ProfileStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	log.Info().Str("userID", profile.ID).Str("role", string(profile.Role)).Msg("profile registered")

	return s.issueFor(ctx, profile)
}

// OAuthAuthorizeURL returns the provider's consent URL for the given CSRF
// state.
func (s *AuthService) OAuthAuthorizeURL(providerName, state string) (string, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return "", federation.ErrProviderNotFound
	}
	return provider.AuthCodeURL(state)
}

// CompleteOAuth exchanges a provider callback code, resolves the external
// identity to a profile (creating one on first sign-in) and issues a session.
func (s *AuthService) CompleteOAuth(ctx context.Context, providerName, code string) (*LoginResult, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, federation.ErrProviderNotFound
	}

	token, err := provider.ExchangeCode(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("provider", providerName).Msg("oauth code exchange failed")
		return nil, federation.ErrExchangeCodeFailed
	}
	info, err := provider.FetchUserInfo(ctx, token)
	if err != nil {
		log.Warn().Err(err).Str("provider", providerName).Msg("oauth userinfo fetch failed")
		return nil, err
	}
	if info.Email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", federation.ErrFetchUserInfoFailed)
	}

	email := domain.NormalizeEmail(info.Email)
	profile, err := s.profiles.GetProfileByEmail(ctx, email)
	switch {
	case err == nil:
		// Existing account, fall through.
	case errors.Is(err, domain.ErrProfileNotFound):
		now := time.Now().UTC()
		profile = &domain.Profile{
			ID:        uuid.NewString(),
			Email:     email,
			FirstName: info.FirstName,
			LastName:  info.LastName,
			Role:      domain.RoleUnset,
			Status:    domain.ProfileStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.profiles.CreateProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("failed to create federated profile: %w", err)
		}
		log.Info().Str("userID", profile.ID).Str("provider", providerName).Msg("federated profile registered")
	default:
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	if profile.Status == domain.ProfileStatusSuspended {
		return nil, domain.ErrAccountSuspended
	}
	return s.issueFor(ctx, profile)
}

// Introspect resolves a bearer token to the identity and profile behind it.
// Suspended accounts fail introspection so revocation takes effect on the
// next request.
func (s *AuthService) Introspect(ctx context.Context, token string) (*domain.Identity, *domain.Profile, error) {
	identity, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.profiles.GetProfileByID(ctx, identity.ID)
	if err != nil {
		return nil, nil, err
	}
	if profile.Status == domain.ProfileStatusSuspended {
		return nil, nil, domain.ErrAccountSuspended
	}
	identity.Email = profile.Email
	return identity, profile, nil
}

// SignOutGlobal revokes every session of the token's owner.
func (s *AuthService) SignOutGlobal(ctx context.Context, token string) error {
	identity, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return err
	}
	return s.tokens.RevokeAllForUser(ctx, identity.ID)
}

func (s *AuthService) issueFor(ctx context.Context, profile *domain.Profile) (*LoginResult, error) {
	token, identity, err := s.tokens.Issue(ctx, profile)
	if err != nil {
		log.Error().Err(err).Str("userID", profile.ID).Msg("failed to issue session")
		return nil, fmt.Errorf("could not issue session: %w", err)
	}
	return &LoginResult{
		Token:    token,
		Identity: *identity,
		Profile:  profile,
	}, nil
}
