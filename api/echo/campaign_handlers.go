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

type campaignRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	GoalAmount  int64  `json:"goal_amount"`
	Status      string `json:"status"`
}

func (r campaignRequest) toInput() services.CampaignInput {
	return services.CampaignInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		GoalAmount:  r.GoalAmount,
		Status:      domain.CampaignStatus(r.Status),
	}
}

func campaignFilterFromQuery(c echo.Context) domain.CampaignFilter {
	return domain.CampaignFilter{
		OwnerID:  c.QueryParam("owner_id"),
		Category: c.QueryParam("category"),
		Status:   domain.CampaignStatus(c.QueryParam("status")),
	}
}

// CreateCampaignHandler creates a campaign owned by the caller.
func (a *PlatformAPI) CreateCampaignHandler(c echo.Context) error {
	var req campaignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("malformed request body"))
	}

	campaign, err := a.campaigns.CreateCampaign(c.Request().Context(), currentProfile(c), req.toInput())
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest(err.Error()))
	}
	return c.JSON(http.StatusCreated, campaign)
}

// GetCampaignHandler returns one campaign.
func (a *PlatformAPI) GetCampaignHandler(c echo.Context) error {
	campaign, err := a.campaigns.GetCampaign(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrCampaignNotFound) {
			return c.JSON(http.StatusNotFound, apierrors.NewNotFound("campaign not found"))
		}
		log.Error().Err(err).Msg("campaign fetch failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("campaign fetch failed"))
	}
	return c.JSON(http.StatusOK, campaign)
}

// ListCampaignsHandler returns campaigns matching the query filters.
func (a *PlatformAPI) ListCampaignsHandler(c echo.Context) error {
	campaigns, err := a.campaigns.ListCampaigns(c.Request().Context(), campaignFilterFromQuery(c))
	if err != nil {
		log.Error().Err(err).Msg("campaign listing failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("campaign listing failed"))
	}
	if campaigns == nil {
		campaigns = []*domain.Campaign{}
	}
	return c.JSON(http.StatusOK, campaigns)
}

// UpdateCampaignHandler applies a partial update after the ownership check.
func (a *PlatformAPI) UpdateCampaignHandler(c echo.Context) error {
	var req campaignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("malformed request body"))
	}

	campaign, err := a.campaigns.UpdateCampaign(c.Request().Context(), currentProfile(c), c.Param("id"), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCampaignNotFound):
			return c.JSON(http.StatusNotFound, apierrors.NewNotFound("campaign not found"))
		case errors.Is(err, services.ErrNotCampaignOwner):
			return c.JSON(http.StatusForbidden, apierrors.NewForbidden(err.Error()))
		default:
			return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest(err.Error()))
		}
	}
	return c.JSON(http.StatusOK, campaign)
}

// DeleteCampaignHandler removes a campaign after the ownership check.
func (a *PlatformAPI) DeleteCampaignHandler(c echo.Context) error {
	err := a.campaigns.DeleteCampaign(c.Request().Context(), currentProfile(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCampaignNotFound):
			return c.JSON(http.StatusNotFound, apierrors.NewNotFound("campaign not found"))
		case errors.Is(err, services.ErrNotCampaignOwner):
			return c.JSON(http.StatusForbidden, apierrors.NewForbidden(err.Error()))
		default:
			log.Error().Err(err).Msg("campaign delete failed")
			return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("campaign delete failed"))
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// StatsHandler returns the dashboard aggregates for the filtered campaign
// set.
func (a *PlatformAPI) StatsHandler(c echo.Context) error {
	stats, err := a.campaigns.Stats(c.Request().Context(), campaignFilterFromQuery(c))
	if err != nil {
		log.Error().Err(err).Msg("stats computation failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("stats computation failed"))
	}
	return c.JSON(http.StatusOK, stats)
}
