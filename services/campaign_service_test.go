package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/impactgrid/platform/domain"
)

func ngoProfile(id string) *domain.Profile {
	return &domain.Profile{ID: id, Role: domain.RoleNGO, Status: domain.ProfileStatusActive}
}

func TestCreateCampaign(t *testing.T) {
	campaigns := new(MockCampaignRepository)
	svc := NewCampaignService(campaigns)
	ctx := context.Background()

	campaigns.On("CreateCampaign", ctx, mock.AnythingOfType("*domain.Campaign")).Return(nil)

	campaign, err := svc.CreateCampaign(ctx, ngoProfile("u-1"), CampaignInput{
		Title:      "  Clean Water  ",
		Category:   "environment",
		GoalAmount: 500_000,
	})
	require.NoError(t, err)
	assert.Equal(t, "Clean Water", campaign.Title)
	assert.Equal(t, "u-1", campaign.OwnerID)
	assert.Equal(t, domain.CampaignStatusDraft, campaign.Status)
	assert.NotEmpty(t, campaign.ID)
}

func TestCreateCampaignValidation(t *testing.T) {
	svc := NewCampaignService(new(MockCampaignRepository))
	ctx := context.Background()

	_, err := svc.CreateCampaign(ctx, ngoProfile("u-1"), CampaignInput{Title: "   ", GoalAmount: 100})
	assert.Error(t, err)

	_, err = svc.CreateCampaign(ctx, ngoProfile("u-1"), CampaignInput{Title: "ok", GoalAmount: 0})
	assert.Error(t, err)
}

func TestUpdateCampaignOwnership(t *testing.T) {
	campaigns := new(MockCampaignRepository)
	svc := NewCampaignService(campaigns)
	ctx := context.Background()

	existing := &domain.Campaign{ID: "c-1", OwnerID: "u-1", Title: "Original", GoalAmount: 100}
	campaigns.On("GetCampaignByID", ctx, "c-1").Return(existing, nil)

	_, err := svc.UpdateCampaign(ctx, ngoProfile("u-2"), "c-1", CampaignInput{Title: "Hijacked"})
	assert.ErrorIs(t, err, ErrNotCampaignOwner)

	campaigns.On("UpdateCampaign", ctx, mock.AnythingOfType("*domain.Campaign")).Return(nil)

	updated, err := svc.UpdateCampaign(ctx, ngoProfile("u-1"), "c-1", CampaignInput{Title: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
}

func TestUpdateCampaignAdminOverride(t *testing.T) {
	campaigns := new(MockCampaignRepository)
	svc := NewCampaignService(campaigns)
	ctx := context.Background()

	existing := &domain.Campaign{ID: "c-1", OwnerID: "u-1", Title: "Original", Status: domain.CampaignStatusActive}
	campaigns.On("GetCampaignByID", ctx, "c-1").Return(existing, nil)
	campaigns.On("UpdateCampaign", ctx, mock.AnythingOfType("*domain.Campaign")).Return(nil)

	admin := &domain.Profile{ID: "adm-1", Role: domain.RoleAdmin}
	updated, err := svc.UpdateCampaign(ctx, admin, "c-1", CampaignInput{Status: domain.CampaignStatusSuspended})
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusSuspended, updated.Status)
}

func TestDeleteCampaign(t *testing.T) {
	campaigns := new(MockCampaignRepository)
	svc := NewCampaignService(campaigns)
	ctx := context.Background()

	campaigns.On("GetCampaignByID", ctx, "c-1").Return(&domain.Campaign{ID: "c-1", OwnerID: "u-1"}, nil)
	campaigns.On("DeleteCampaign", ctx, "c-1").Return(nil)

	assert.ErrorIs(t, svc.DeleteCampaign(ctx, ngoProfile("u-2"), "c-1"), ErrNotCampaignOwner)
	assert.NoError(t, svc.DeleteCampaign(ctx, ngoProfile("u-1"), "c-1"))
}

func TestStats(t *testing.T) {
	campaigns := new(MockCampaignRepository)
	svc := NewCampaignService(campaigns)
	ctx := context.Background()

	rows := []*domain.Campaign{
		{ID: "c-1", Category: "health", Status: domain.CampaignStatusActive, Raised: 100, Backers: 3},
		{ID: "c-2", Category: "health", Status: domain.CampaignStatusCompleted, Raised: 400, Backers: 10},
		{ID: "c-3", Category: "education", Status: domain.CampaignStatusActive, Raised: 250, Backers: 5},
		{ID: "c-4", Status: domain.CampaignStatusDraft},
	}
	campaigns.On("ListCampaigns", ctx, domain.CampaignFilter{}).Return(rows, nil)

	stats, err := svc.Stats(ctx, domain.CampaignFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalCampaigns)
	assert.Equal(t, 2, stats.ActiveCount)
	assert.Equal(t, int64(750), stats.TotalRaised)
	assert.Equal(t, int64(18), stats.TotalBackers)

	require.Len(t, stats.ByCategory, 3)
	assert.Equal(t, domain.CategoryTotal{Category: "health", Raised: 500, Count: 2}, stats.ByCategory[0])
	assert.Equal(t, domain.CategoryTotal{Category: "education", Raised: 250, Count: 1}, stats.ByCategory[1])
	assert.Equal(t, domain.CategoryTotal{Category: "uncategorized", Raised: 0, Count: 1}, stats.ByCategory[2])
}

func TestStatsEmpty(t *testing.T) {
	campaigns := new(MockCampaignRepository)
	svc := NewCampaignService(campaigns)
	ctx := context.Background()

	campaigns.On("ListCampaigns", ctx, domain.CampaignFilter{}).Return([]*domain.Campaign{}, nil)

	stats, err := svc.Stats(ctx, domain.CampaignFilter{})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCampaigns)
	assert.Empty(t, stats.ByCategory)
}
