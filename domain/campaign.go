package domain

import "time"

// CampaignStatus defines the lifecycle states of a funding campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "DRAFT"
	CampaignStatusActive    CampaignStatus = "ACTIVE"
	CampaignStatusCompleted CampaignStatus = "COMPLETED"
	CampaignStatusSuspended CampaignStatus = "SUSPENDED"
)

// Campaign is a funding campaign row owned by a vendor, NGO or corporate
// profile. Amounts are minor currency units.
type Campaign struct {
	ID          string         `bson:"_id,omitempty" json:"id"`
	OwnerID     string         `bson:"owner_id" json:"owner_id"`
	Title       string         `bson:"title" json:"title"`
	Description string         `bson:"description,omitempty" json:"description,omitempty"`
	Category    string         `bson:"category,omitempty" json:"category,omitempty"`
	GoalAmount  int64          `bson:"goal_amount" json:"goal_amount"`
	Raised      int64          `bson:"raised" json:"raised"`
	Backers     int64          `bson:"backers" json:"backers"`
	Status      CampaignStatus `bson:"status" json:"status"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at" json:"updated_at"`
}

// CategoryTotal is one bucket of the per-category dashboard aggregate.
type CategoryTotal struct {
	Category string `json:"category"`
	Raised   int64  `json:"raised"`
	Count    int    `json:"count"`
}

// CampaignStats are the derived aggregates the dashboards chart: simple
// sums over already-fetched rows.
type CampaignStats struct {
	TotalCampaigns int             `json:"total_campaigns"`
	ActiveCount    int             `json:"active_count"`
	TotalRaised    int64           `json:"total_raised"`
	TotalBackers   int64           `json:"total_backers"`
	ByCategory     []CategoryTotal `json:"by_category"`
}
