package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/impactgrid/platform/domain"
)

// CampaignInput carries the caller-settable campaign fields for create and
// update operations.
type CampaignInput struct {
	Title       string
	Description string
	Category    string
	GoalAmount  int64
	Status      domain.CampaignStatus
}

// CampaignService implements campaign CRUD and the dashboard aggregates.
// Ownership checks live here so every transport gets the same rules.
type CampaignService struct {
	campaigns domain.CampaignRepository
}

// NewCampaignService creates a new CampaignService.
func NewCampaignService(campaigns domain.CampaignRepository) *CampaignService {
	return &CampaignService{campaigns: campaigns}
}

// ErrNotCampaignOwner is returned when a non-owner, non-admin profile tries
// to modify a campaign.
var ErrNotCampaignOwner = errors.New("campaign belongs to another account")

// CreateCampaign creates a campaign owned by the given profile.
func (s *CampaignService) CreateCampaign(ctx context.Context, owner *domain.Profile, input CampaignInput) (*domain.Campaign, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("campaign title is required")
	}
	if input.GoalAmount <= 0 {
		return nil, fmt.Errorf("campaign goal must be positive")
	}
	status := input.Status
	if status == "" {
		status = domain.CampaignStatusDraft
	}

	now := time.Now().UTC()
	campaign := &domain.Campaign{
		ID:          uuid.NewString(),
		OwnerID:     owner.ID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		GoalAmount:  input.GoalAmount,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.campaigns.CreateCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	log.Info().Str("campaignID", campaign.ID).Str("ownerID", owner.ID).Msg("campaign created")
	return campaign, nil
}

// GetCampaign fetches one campaign by id.
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.campaigns.GetCampaignByID(ctx, id)
}

// ListCampaigns returns campaigns matching the filter.
func (s *CampaignService) ListCampaigns(ctx context.Context, filter domain.CampaignFilter) ([]*domain.Campaign, error) {
	return s.campaigns.ListCampaigns(ctx, filter)
}

// UpdateCampaign applies the input to an existing campaign after an
// ownership check. Admins may edit any campaign.
func (s *CampaignService) UpdateCampaign(ctx context.Context, actor *domain.Profile, id string, input CampaignInput) (*domain.Campaign, error) {
	campaign, err := s.campaigns.GetCampaignByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.OwnerID != actor.ID && actor.Role != domain.RoleAdmin {
		return nil, ErrNotCampaignOwner
	}

	if title := strings.TrimSpace(input.Title); title != "" {
		campaign.Title = title
	}
	if input.Description != "" {
		campaign.Description = strings.TrimSpace(input.Description)
	}
	if input.Category != "" {
		campaign.Category = strings.TrimSpace(input.Category)
	}
	if input.GoalAmount > 0 {
		campaign.GoalAmount = input.GoalAmount
	}
	if input.Status != "" {
		campaign.Status = input.Status
	}

	campaign.UpdatedAt = time.Now().UTC()
	if err := s.campaigns.UpdateCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}
	return campaign, nil
}

// DeleteCampaign removes a campaign after an ownership check.
func (s *CampaignService) DeleteCampaign(ctx context.Context, actor *domain.Profile, id string) error {
	campaign, err := s.campaigns.GetCampaignByID(ctx, id)
	if err != nil {
		return err
	}
	if campaign.OwnerID != actor.ID && actor.Role != domain.RoleAdmin {
		return ErrNotCampaignOwner
	}
	if err := s.campaigns.DeleteCampaign(ctx, id); err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	log.Info().Str("campaignID", id).Str("actorID", actor.ID).Msg("campaign deleted")
	return nil
}

// Stats reduces the campaigns matching the filter into the dashboard
// aggregates. Category buckets come back sorted by raised amount, largest
// first.
func (s *CampaignService) Stats(ctx context.Context, filter domain.CampaignFilter) (*domain.CampaignStats, error) {
	campaigns, err := s.campaigns.ListCampaigns(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := &domain.CampaignStats{TotalCampaigns: len(campaigns)}
	byCategory := map[string]*domain.CategoryTotal{}
	for _, c := range campaigns {
		if c.Status == domain.CampaignStatusActive {
			stats.ActiveCount++
		}
		stats.TotalRaised += c.Raised
		stats.TotalBackers += c.Backers

		category := c.Category
		if category == "" {
			category = "uncategorized"
		}
		bucket, ok := byCategory[category]
		if !ok {
			bucket = &domain.CategoryTotal{Category: category}
			byCategory[category] = bucket
		}
		bucket.Raised += c.Raised
		bucket.Count++
	}

	stats.ByCategory = make([]domain.CategoryTotal, 0, len(byCategory))
	for _, bucket := range byCategory {
		stats.ByCategory = append(stats.ByCategory, *bucket)
	}
	sort.Slice(stats.ByCategory, func(i, j int) bool {
		if stats.ByCategory[i].Raised != stats.ByCategory[j].Raised {
			return stats.ByCategory[i].Raised > stats.ByCategory[j].Raised
		}
		return stats.ByCategory[i].Category < stats.ByCategory[j].Category
	})
	return stats, nil
}
