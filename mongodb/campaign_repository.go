package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/impactgrid/platform/domain"
)

// CampaignRepositoryMongo implements the domain.CampaignRepository interface using MongoDB.
type CampaignRepositoryMongo struct {
	collection *mongo.Collection
}

// NewCampaignRepositoryMongo creates a new CampaignRepositoryMongo and
// ensures the listing indexes exist.
func NewCampaignRepositoryMongo(ctx context.Context, db *mongo.Database) (domain.CampaignRepository, error) {
	repo := &CampaignRepositoryMongo{
		collection: db.Collection(CampaignsCollection),
	}

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("issue creating indexes for campaigns collection")
	}

	return repo, nil
}

// CreateCampaign inserts a new campaign row.
func (r *CampaignRepositoryMongo) CreateCampaign(ctx context.Context, campaign *domain.Campaign) error {
	if campaign.ID == "" {
		campaign.ID = NewObjectID()
	}
	now := time.Now().UTC()
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}
	campaign.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, campaign); err != nil {
		log.Error().Err(err).Msg("error storing campaign in MongoDB")
		return err
	}
	return nil
}

// GetCampaignByID retrieves one campaign.
func (r *CampaignRepositoryMongo) GetCampaignByID(ctx context.Context, id string) (*domain.Campaign, error) {
	var campaign domain.Campaign
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&campaign)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCampaignNotFound
		}
		log.Error().Err(err).Str("id", id).Msg("error getting campaign from MongoDB")
		return nil, err
	}
	return &campaign, nil
}

// UpdateCampaign replaces a campaign row.
func (r *CampaignRepositoryMongo) UpdateCampaign(ctx context.Context, campaign *domain.Campaign) error {
	if campaign.ID == "" {
		return errors.New("campaign ID is required for update")
	}
	campaign.UpdatedAt = time.Now().UTC()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": campaign.ID}, campaign)
	if err != nil {
		log.Error().Err(err).Str("id", campaign.ID).Msg("error updating campaign in MongoDB")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

// DeleteCampaign removes a campaign row.
func (r *CampaignRepositoryMongo) DeleteCampaign(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("error deleting campaign from MongoDB")
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

// ListCampaigns returns campaigns matching the filter, newest first.
func (r *CampaignRepositoryMongo) ListCampaigns(ctx context.Context, filter domain.CampaignFilter) ([]*domain.Campaign, error) {
	query := bson.M{}
	if filter.OwnerID != "" {
		query["owner_id"] = filter.OwnerID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, findOpts)
	if err != nil {
		log.Error().Err(err).Msg("error listing campaigns from MongoDB")
		return nil, err
	}
	defer cursor.Close(ctx)

	var campaigns []*domain.Campaign
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

var _ domain.CampaignRepository = (*CampaignRepositoryMongo)(nil)
