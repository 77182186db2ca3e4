package domain

import "context"

// ProfileRepository persists platform profiles.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *Profile) error
	GetProfileByID(ctx context.Context, id string) (*Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)
	UpdateProfile(ctx context.Context, profile *Profile) error
	// ListProfiles returns a page of profiles plus the token for the next
	// page, empty when exhausted.
	ListProfiles(ctx context.Context, pageToken string, pageSize int) ([]*Profile, string, error)
}

// CampaignFilter narrows campaign listings.
type CampaignFilter struct {
	OwnerID  string
	Category string
	Status   CampaignStatus
}

// CampaignRepository persists funding campaigns.
type CampaignRepository interface {
	CreateCampaign(ctx context.Context, campaign *Campaign) error
	GetCampaignByID(ctx context.Context, id string) (*Campaign, error)
	UpdateCampaign(ctx context.Context, campaign *Campaign) error
	DeleteCampaign(ctx context.Context, id string) error
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]*Campaign, error)
}

// SessionRepository persists issued session tokens for audit and global
// sign-out. The hot read path goes through the session cache, not here.
type SessionRepository interface {
	StoreSession(ctx context.Context, session *Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	RevokeSession(ctx context.Context, id string) error
	// RevokeSessionsByUserID revokes every session of a user and reports
	// how many were affected.
	RevokeSessionsByUserID(ctx context.Context, userID string) (int64, error)
}
