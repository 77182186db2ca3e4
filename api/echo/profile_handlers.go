package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/impactgrid/platform/domain"
	apierrors "github.com/impactgrid/platform/errors"
	"github.com/impactgrid/platform/services"
)

// GetProfileHandler returns one profile. Non-admins can only read their own.
func (a *PlatformAPI) GetProfileHandler(c echo.Context) error {
	id := c.Param("id")
	caller := currentProfile(c)
	if caller.ID != id && caller.Role != domain.RoleAdmin {
		return c.JSON(http.StatusForbidden, apierrors.NewForbidden("cannot read another account's profile"))
	}

	profile, err := a.profiles.GetProfile(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, apierrors.NewNotFound("profile not found"))
		}
		log.Error().Err(err).Str("id", id).Msg("profile fetch failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("profile fetch failed"))
	}
	return c.JSON(http.StatusOK, profile)
}

type profilePatch struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	Phone        *string `json:"phone"`
	Organization *string `json:"organization"`
	Location     *string `json:"location"`
	Role         *string `json:"role"`
}

// UpdateProfileHandler applies a partial update to a profile. Self-service
// only; role changes on other accounts go through the admin endpoints.
func (a *PlatformAPI) UpdateProfileHandler(c echo.Context) error {
	id := c.Param("id")
	caller := currentProfile(c)
	if caller.ID != id && caller.Role != domain.RoleAdmin {
		return c.JSON(http.StatusForbidden, apierrors.NewForbidden("cannot modify another account's profile"))
	}

	var patch profilePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("malformed request body"))
	}

	update := services.ProfileUpdate{
		FirstName:    patch.FirstName,
		LastName:     patch.LastName,
		Phone:        patch.Phone,
		Organization: patch.Organization,
		Location:     patch.Location,
	}
	if patch.Role != nil {
		role := domain.Role(*patch.Role)
		update.Role = &role
	}

	profile, err := a.profiles.UpdateProfile(c.Request().Context(), id, update)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, apierrors.NewNotFound("profile not found"))
		}
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest(err.Error()))
	}
	return c.JSON(http.StatusOK, profile)
}
