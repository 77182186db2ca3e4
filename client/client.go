package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/impactgrid/platform/domain"
	"github.com/impactgrid/platform/session"
	"github.com/rs/zerolog/log"
)

// APIError is an error response from the platform API, passed through to
// callers verbatim so the presentation layer can classify it.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api error %s (status %d)", e.Code, e.Status)
}

// Client talks to the hosted platform API and implements the session
// layer's AuthProvider and ProfileAPI contracts. Auth state changes are
// pushed to subscribers after each successful mutating call, mirroring the
// hosted service's change notifications.
type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialStore

	// RedirectHandler receives the provider authorization URL when an
	// OAuth sign-in begins. The host application hands it to the browser;
	// control is expected to leave the application afterwards.
	RedirectHandler func(url string) error

	mu     sync.Mutex
	nextID int
	subs   map[int]func(domain.AuthEvent)
}

// New creates a platform API client rooted at baseURL.
func New(baseURL string, creds CredentialStore) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		creds:   creds,
		subs:    make(map[int]func(domain.AuthEvent)),
	}
}

// SetHTTPClient overrides the underlying HTTP client, mainly for tests.
func (c *Client) SetHTTPClient(h *http.Client) { c.http = h }

// Subscribe implements session.AuthProvider.
func (c *Client) Subscribe(handler func(domain.AuthEvent)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Client) emit(ev domain.AuthEvent) {
	c.mu.Lock()
	handlers := make([]func(domain.AuthEvent), 0, len(c.subs))
	for _, h := range c.subs {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

type sessionResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Identity    domain.Identity `json:"identity"`
}

// CurrentSession restores an already-valid session from the credential
// store and verifies it against the API. A missing or rejected token is
// (nil, nil): not signed in, not an error.
func (c *Client) CurrentSession(ctx context.Context) (*domain.Identity, error) {
	token, ok := c.creds.Get(keyAccessToken)
	if !ok || token == "" {
		return nil, nil
	}

	var out struct {
		Identity domain.Identity `json:"identity"`
	}
	err := c.do(ctx, http.MethodGet, "/auth/v1/session", nil, token, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			log.Debug().Msg("stored session token rejected, treating as signed out")
			return nil, nil
		}
		return nil, err
	}
	return &out.Identity, nil
}

// SignInWithPassword implements session.AuthProvider. On success the
// session material is persisted locally and a SIGNED_IN event dispatched.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	var out sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", body, "", &out); err != nil {
		return err
	}
	c.storeSession(out)
	c.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Identity: &out.Identity})
	return nil
}

// SignUp implements session.AuthProvider. Registration signs the new
// account in immediately; the profile row is provisioned server-side and
// may trail the identity, which the session layer's loader absorbs.
func (c *Client) SignUp(ctx context.Context, req session.SignupRequest) error {
	body := map[string]string{
		"email":        req.Email,
		"password":     req.Password,
		"first_name":   req.FirstName,
		"last_name":    req.LastName,
		"phone":        req.Phone,
		"organization": req.Organization,
		"location":     req.Location,
		"role":         string(req.Role),
	}
	var out sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", body, "", &out); err != nil {
		return err
	}
	c.storeSession(out)
	c.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Identity: &out.Identity})
	return nil
}

// BeginOAuth implements session.AuthProvider. It fetches the provider's
// authorization URL and hands it to the redirect handler.
func (c *Client) BeginOAuth(ctx context.Context, provider string) error {
	if c.RedirectHandler == nil {
		return errors.New("no redirect handler configured for oauth sign-in")
	}
	var out struct {
		URL string `json:"url"`
	}
	path := "/auth/v1/authorize?provider=" + provider
	if err := c.do(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return err
	}
	return c.RedirectHandler(out.URL)
}

// SignOutGlobal implements session.AuthProvider. The local token is
// dropped and a SIGNED_OUT event dispatched even when the remote revoke
// fails; the error is still returned for the caller to log.
func (c *Client) SignOutGlobal(ctx context.Context) error {
	token, _ := c.creds.Get(keyAccessToken)
	err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, token, nil)
	c.creds.Delete(keyAccessToken)
	c.creds.Delete(keyIdentity)
	c.emit(domain.AuthEvent{Type: domain.AuthEventSignedOut})
	return err
}

// FetchProfile implements session.ProfileAPI. A 404 maps to
// domain.ErrProfileNotFound so the session layer can retry through the
// replication window.
func (c *Client) FetchProfile(ctx context.Context, id string) (*domain.Profile, error) {
	token, _ := c.creds.Get(keyAccessToken)
	var profile domain.Profile
	err := c.do(ctx, http.MethodGet, "/rest/v1/profiles/"+id, nil, token, &profile)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (c *Client) storeSession(s sessionResponse) {
	c.creds.Set(keyAccessToken, s.AccessToken)
	if raw, err := json.Marshal(s.Identity); err == nil {
		c.creds.Set(keyIdentity, string(raw))
	}
}

// do executes one JSON request. Non-2xx responses decode into APIError.
func (c *Client) do(ctx context.Context, method, path string, body any, token string, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr := json.NewDecoder(resp.Body).Decode(apiErr); decodeErr != nil {
			apiErr.Code = "unexpected_response"
			apiErr.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var (
	_ session.AuthProvider    = (*Client)(nil)
	_ session.ProfileAPI      = (*Client)(nil)
	_ session.CredentialStore = (CredentialStore)(nil)
)
