package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	googleOAuth2 "golang.org/x/oauth2/google"
)

var GoogleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProvider implements the OAuth2Provider interface for Google.
type GoogleProvider struct {
	*BaseProvider
}

// NewGoogleProvider creates a new GoogleProvider. The openid, profile and
// email scopes are always requested so sign-in yields a usable identity.
func NewGoogleProvider(cfg Config) (*GoogleProvider, error) {
	for _, scope := range []string{"openid", "profile", "email"} {
		if !containsScope(cfg.Scopes, scope) {
			cfg.Scopes = append(cfg.Scopes, scope)
		}
	}

	return &GoogleProvider{
		BaseProvider: NewBaseProvider("google", cfg, googleOAuth2.Endpoint),
	}, nil
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

// FetchUserInfo retrieves user information from Google's userinfo endpoint.
func (g *GoogleProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error) {
	client := g.httpClient(ctx, token)
	resp, err := client.Get(GoogleUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info from Google: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Google user info response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrFetchUserInfoFailed, resp.StatusCode, string(rawBody))
	}

	var rawUserInfo struct {
		Sub           string `json:"sub"`
		Name          string `json:"name"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.Unmarshal(rawBody, &rawUserInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Google user info: %w", err)
	}

	var rawDataMap map[string]any
	_ = json.Unmarshal(rawBody, &rawDataMap)

	return &ExternalUserInfo{
		ProviderUserID: rawUserInfo.Sub,
		Email:          rawUserInfo.Email,
		FirstName:      rawUserInfo.GivenName,
		LastName:       rawUserInfo.FamilyName,
		PictureURL:     rawUserInfo.Picture,
		EmailVerified:  rawUserInfo.EmailVerified,
		RawData:        rawDataMap,
	}, nil
}

var _ OAuth2Provider = (*GoogleProvider)(nil)
