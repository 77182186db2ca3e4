package echo

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/impactgrid/platform/domain"
	apierrors "github.com/impactgrid/platform/errors"
)

type userListResponse struct {
	Users         []*domain.Profile `json:"users"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

// ListUsersHandler returns one page of accounts.
func (a *PlatformAPI) ListUsersHandler(c echo.Context) error {
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	users, nextToken, err := a.users.ListUsers(c.Request().Context(), c.QueryParam("page_token"), pageSize)
	if err != nil {
		log.Error().Err(err).Msg("user listing failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("user listing failed"))
	}
	if users == nil {
		users = []*domain.Profile{}
	}
	return c.JSON(http.StatusOK, userListResponse{Users: users, NextPageToken: nextToken})
}

// SuspendUserHandler suspends an account and revokes its sessions.
func (a *PlatformAPI) SuspendUserHandler(c echo.Context) error {
	profile, err := a.users.SuspendUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, apierrors.NewNotFound("account not found"))
		}
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest(err.Error()))
	}
	return c.JSON(http.StatusOK, profile)
}

// ActivateUserHandler reverses a suspension.
func (a *PlatformAPI) ActivateUserHandler(c echo.Context) error {
	profile, err := a.users.ActivateUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, apierrors.NewNotFound("account not found"))
		}
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest(err.Error()))
	}
	return c.JSON(http.StatusOK, profile)
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRoleHandler sets an account's role.
func (a *PlatformAPI) ChangeRoleHandler(c echo.Context) error {
	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("malformed request body"))
	}

	profile, err := a.users.ChangeRole(c.Request().Context(), c.Param("id"), domain.Role(req.Role))
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, apierrors.NewNotFound("account not found"))
		}
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest(err.Error()))
	}
	return c.JSON(http.StatusOK, profile)
}
