package echo

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/impactgrid/platform/domain"
	apierrors "github.com/impactgrid/platform/errors"
	"github.com/impactgrid/platform/internal/federation"
	"github.com/impactgrid/platform/services"
)

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenHandler handles password sign-in.
func (a *PlatformAPI) TokenHandler(c echo.Context) error {
	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("malformed request body"))
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("email and password are required"))
	}

	result, err := a.auth.SignInWithPassword(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, apierrors.NewInvalidCredentials(err.Error()))
		case errors.Is(err, domain.ErrAccountSuspended):
			return c.JSON(http.StatusForbidden, &apierrors.APIError{Code: apierrors.AccountSuspended, Message: err.Error()})
		default:
			log.Error().Err(err).Msg("sign-in failed")
			return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("sign-in failed"))
		}
	}
	return loginResultResponse(c, result)
}

type signupRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	Location     string `json:"location"`
	Role         string `json:"role"`
}

// SignupHandler registers a new account and signs it in.
func (a *PlatformAPI) SignupHandler(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("malformed request body"))
	}
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("email is required"))
	}

	result, err := a.auth.SignUp(c.Request().Context(), services.SignupParams{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Organization: req.Organization,
		Location:     req.Location,
		Role:         domain.Role(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			return c.JSON(http.StatusConflict, &apierrors.APIError{Code: apierrors.EmailTaken, Message: err.Error()})
		case errors.Is(err, domain.ErrWeakPassword):
			return c.JSON(http.StatusBadRequest, &apierrors.APIError{Code: apierrors.WeakPassword, Message: err.Error()})
		default:
			log.Error().Err(err).Msg("sign-up failed")
			return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest(err.Error()))
		}
	}
	return loginResultResponse(c, result)
}

// AuthorizeHandler starts a federated sign-in: it issues a one-shot CSRF
// state and returns the provider's consent URL.
func (a *PlatformAPI) AuthorizeHandler(c echo.Context) error {
	provider := c.QueryParam("provider")
	if provider == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("provider is required"))
	}

	state := uuid.NewString()
	url, err := a.auth.OAuthAuthorizeURL(provider, state)
	if err != nil {
		if errors.Is(err, federation.ErrProviderNotFound) {
			return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("unknown provider"))
		}
		log.Error().Err(err).Str("provider", provider).Msg("failed to build authorize url")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("authorization unavailable"))
	}
	a.oauthStates.Set(state, provider, ttlcache.DefaultTTL)

	return c.JSON(http.StatusOK, map[string]string{"url": url, "state": state})
}

// CallbackHandler completes a federated sign-in. The state must match an
// outstanding authorize call and is consumed either way.
func (a *PlatformAPI) CallbackHandler(c echo.Context) error {
	state := c.QueryParam("state")
	code := c.QueryParam("code")
	if state == "" || code == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("state and code are required"))
	}

	item := a.oauthStates.Get(state)
	if item == nil {
		return c.JSON(http.StatusBadRequest, &apierrors.APIError{Code: apierrors.InvalidRequest, Message: "unknown or expired state"})
	}
	provider := item.Value()
	a.oauthStates.Delete(state)

	result, err := a.auth.CompleteOAuth(c.Request().Context(), provider, code)
	if err != nil {
		if errors.Is(err, domain.ErrAccountSuspended) {
			return c.JSON(http.StatusForbidden, &apierrors.APIError{Code: apierrors.AccountSuspended, Message: err.Error()})
		}
		log.Warn().Err(err).Str("provider", provider).Msg("federated sign-in failed")
		return c.JSON(http.StatusUnauthorized, apierrors.NewInvalidCredentials("federated sign-in failed"))
	}
	return loginResultResponse(c, result)
}

// LogoutHandler revokes every session of the caller.
func (a *PlatformAPI) LogoutHandler(c echo.Context) error {
	if err := a.auth.SignOutGlobal(c.Request().Context(), currentToken(c)); err != nil {
		log.Error().Err(err).Msg("global sign-out failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("sign-out failed"))
	}
	return c.NoContent(http.StatusNoContent)
}

// SessionHandler reports the identity behind the presented token.
func (a *PlatformAPI) SessionHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"identity": currentIdentity(c)})
}
