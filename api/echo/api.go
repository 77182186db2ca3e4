package echo

import (
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/labstack/echo/v4"

	"github.com/impactgrid/platform/domain"
	"github.com/impactgrid/platform/services"
)

// oauthStateTTL bounds how long a consent redirect may take before the
// callback's state is rejected.
const oauthStateTTL = 10 * time.Minute

// PlatformAPI holds the HTTP layer's dependencies.
type PlatformAPI struct {
	auth      *services.AuthService
	profiles  *services.ProfileService
	campaigns *services.CampaignService
	users     *services.UserService

	// oauthStates maps issued CSRF state values to the provider they were
	// issued for. One-shot: consumed on callback.
	oauthStates *ttlcache.Cache[string, string]
}

// NewPlatformAPI initializes the platform API.
func NewPlatformAPI(
	auth *services.AuthService,
	profiles *services.ProfileService,
	campaigns *services.CampaignService,
	users *services.UserService,
) *PlatformAPI {
	states := ttlcache.New(
		ttlcache.WithTTL[string, string](oauthStateTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go states.Start()

	return &PlatformAPI{
		auth:        auth,
		profiles:    profiles,
		campaigns:   campaigns,
		users:       users,
		oauthStates: states,
	}
}

// RegisterRoutes registers the platform routes.
func (a *PlatformAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/v1/token", a.TokenHandler)
	e.POST("/auth/v1/signup", a.SignupHandler)
	e.GET("/auth/v1/authorize", a.AuthorizeHandler)
	e.GET("/auth/v1/callback", a.CallbackHandler)

	authed := e.Group("", a.RequireAuth)
	authed.POST("/auth/v1/logout", a.LogoutHandler)
	authed.GET("/auth/v1/session", a.SessionHandler)

	authed.GET("/rest/v1/profiles/:id", a.GetProfileHandler)
	authed.PATCH("/rest/v1/profiles/:id", a.UpdateProfileHandler)

	authed.GET("/rest/v1/campaigns", a.ListCampaignsHandler)
	authed.POST("/rest/v1/campaigns", a.CreateCampaignHandler)
	authed.GET("/rest/v1/campaigns/:id", a.GetCampaignHandler)
	authed.PATCH("/rest/v1/campaigns/:id", a.UpdateCampaignHandler)
	authed.DELETE("/rest/v1/campaigns/:id", a.DeleteCampaignHandler)
	authed.GET("/rest/v1/stats", a.StatsHandler)

	admin := e.Group("/admin/v1", a.RequireAuth, a.RequireRole(domain.RoleAdmin))
	admin.GET("/users", a.ListUsersHandler)
	admin.POST("/users/:id/suspend", a.SuspendUserHandler)
	admin.POST("/users/:id/activate", a.ActivateUserHandler)
	admin.POST("/users/:id/role", a.ChangeRoleHandler)
}

// Close stops the state cache's cleanup goroutine.
func (a *PlatformAPI) Close() {
	a.oauthStates.Stop()
}

// sessionResponse is the body of every successful authentication call.
type sessionResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Identity    domain.Identity `json:"identity"`
}

func loginResultResponse(c echo.Context, result *services.LoginResult) error {
	return c.JSON(http.StatusOK, sessionResponse{
		AccessToken: result.Token,
		ExpiresAt:   result.Identity.ExpiresAt,
		Identity:    result.Identity,
	})
}
