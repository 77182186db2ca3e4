package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/impactgrid/platform/domain"
)

// ProfileUpdate carries the mutable profile fields. Nil pointers mean
// "leave unchanged", so a PATCH body only touches what it names.
type ProfileUpdate struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	Organization *string
	Location     *string
	Role         *domain.Role
}

// ProfileService reads and updates platform profiles.
type ProfileService struct {
	profiles domain.ProfileRepository
}

// NewProfileService creates a new ProfileService.
func NewProfileService(profiles domain.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// GetProfile fetches a profile by id. Missing rows surface as
// domain.ErrProfileNotFound.
func (s *ProfileService) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	return s.profiles.GetProfileByID(ctx, id)
}

// UpdateProfile applies a partial update and returns the updated row.
// The role can be set once through this path (role selection after
// sign-up); changing an already-set role is an admin operation.
func (s *ProfileService) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*domain.Profile, error) {
	profile, err := s.profiles.GetProfileByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		profile.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		profile.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Phone != nil {
		profile.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.Organization != nil {
		profile.Organization = strings.TrimSpace(*update.Organization)
	}
	if update.Location != nil {
		profile.Location = strings.TrimSpace(*update.Location)
	}
	if update.Role != nil {
		role := *update.Role
		if !role.Valid() {
			return nil, fmt.Errorf("unknown role %q", role)
		}
		if profile.Role != domain.RoleUnset && profile.Role != role {
			return nil, fmt.Errorf("role is already set")
		}
		profile.Role = role
	}

	profile.UpdatedAt = time.Now().UTC()
	if err := s.profiles.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	log.Debug().Str("userID", profile.ID).Msg("profile updated")
	return profile, nil
}
