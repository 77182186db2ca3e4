package echo

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/impactgrid/platform/domain"
	apierrors "github.com/impactgrid/platform/errors"
)

const (
	contextKeyIdentity = "auth.identity"
	contextKeyProfile  = "auth.profile"
	contextKeyToken    = "auth.token"
)

// RequireAuth resolves the bearer token and stores the identity and profile
// on the request context. Requests without a valid token get a 401.
func (a *PlatformAPI) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorized("missing bearer token"))
		}

		identity, profile, err := a.auth.Introspect(c.Request().Context(), token)
		if err != nil {
			log.Debug().Err(err).Msg("bearer token rejected")
			return c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorized("invalid or expired session"))
		}

		c.Set(contextKeyIdentity, identity)
		c.Set(contextKeyProfile, profile)
		c.Set(contextKeyToken, token)
		return next(c)
	}
}

// RequireRole gates a route group to one role. Must run after RequireAuth.
func (a *PlatformAPI) RequireRole(role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			profile := currentProfile(c)
			if profile == nil || profile.Role != role {
				return c.JSON(http.StatusForbidden, apierrors.NewForbidden("insufficient privileges"))
			}
			return next(c)
		}
	}
}

func currentIdentity(c echo.Context) *domain.Identity {
	identity, _ := c.Get(contextKeyIdentity).(*domain.Identity)
	return identity
}

func currentProfile(c echo.Context) *domain.Profile {
	profile, _ := c.Get(contextKeyProfile).(*domain.Profile)
	return profile
}

func currentToken(c echo.Context) string {
	token, _ := c.Get(contextKeyToken).(string)
	return token
}
