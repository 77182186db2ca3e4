package federation

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// ExternalUserInfo holds standardized user information retrieved from an external OAuth2 provider.
type ExternalUserInfo struct {
	ProviderUserID string // Unique ID of the user within the external provider (e.g., Google's 'sub')
	Email          string
	FirstName      string
	LastName       string
	PictureURL     string
	EmailVerified  bool
	RawData        map[string]any // Raw user data from the provider
}

// Config holds the credentials and scopes for one external provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// OAuth2Provider defines the interface for an external OAuth2 identity provider.
// Implementations of this interface handle provider-specific details.
type OAuth2Provider interface {
	// Name returns the unique identifier for the provider (e.g., "google").
	Name() string

	// AuthCodeURL generates the authorization URL the user should be redirected to.
	// The state parameter is used for CSRF protection.
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) (string, error)

	// ExchangeCode exchanges an authorization code for an OAuth2 token.
	ExchangeCode(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)

	// FetchUserInfo uses an access token to retrieve user information from the
	// provider and returns a standardized ExternalUserInfo struct.
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error)
}

// BaseProvider provides a common structure and partial implementation for OAuth2Provider.
// Specific providers embed this and override methods as needed.
type BaseProvider struct {
	name     string
	Config   Config
	Endpoint oauth2.Endpoint
}

func NewBaseProvider(name string, cfg Config, endpoint oauth2.Endpoint) *BaseProvider {
	return &BaseProvider{name: name, Config: cfg, Endpoint: endpoint}
}

func (b *BaseProvider) Name() string {
	return b.name
}

// OAuth2Config constructs an oauth2.Config from the stored provider configuration.
func (b *BaseProvider) OAuth2Config() (*oauth2.Config, error) {
	if b.Config.ClientID == "" || b.Config.ClientSecret == "" || b.Config.RedirectURL == "" {
		return nil, ErrProviderMisconfigured
	}
	return &oauth2.Config{
		ClientID:     b.Config.ClientID,
		ClientSecret: b.Config.ClientSecret,
		RedirectURL:  b.Config.RedirectURL,
		Scopes:       b.Config.Scopes,
		Endpoint:     b.Endpoint,
	}, nil
}

func (b *BaseProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) (string, error) {
	conf, err := b.OAuth2Config()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL(state, opts...), nil
}

func (b *BaseProvider) ExchangeCode(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	conf, err := b.OAuth2Config()
	if err != nil {
		return nil, err
	}
	return conf.Exchange(ctx, code, opts...)
}

// httpClient returns an *http.Client authenticated with the given token.
func (b *BaseProvider) httpClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
}
