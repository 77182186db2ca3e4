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

// ProfileRepositoryMongo implements the domain.ProfileRepository interface using MongoDB.
type ProfileRepositoryMongo struct {
	collection *mongo.Collection
}

// NewProfileRepositoryMongo creates a new ProfileRepositoryMongo and ensures
// the unique email index exists. The index uses a case-insensitive collation
// so normalization bugs upstream cannot create duplicate accounts.
func NewProfileRepositoryMongo(ctx context.Context, db *mongo.Database) (domain.ProfileRepository, error) {
	repo := &ProfileRepositoryMongo{
		collection: db.Collection(ProfilesCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	}
	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("issue creating indexes for profiles collection")
	}

	return repo, nil
}

// CreateProfile inserts a new profile row.
func (r *ProfileRepositoryMongo) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	if profile.ID == "" {
		profile.ID = NewObjectID()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, profile); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailTaken
		}
		log.Error().Err(err).Msg("error storing profile in MongoDB")
		return err
	}
	return nil
}

// GetProfileByID retrieves a profile by its primary id.
func (r *ProfileRepositoryMongo) GetProfileByID(ctx context.Context, id string) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		log.Error().Err(err).Str("id", id).Msg("error getting profile by id from MongoDB")
		return nil, err
	}
	return &profile, nil
}

// GetProfileByEmail retrieves a profile by email. Callers are expected to
// normalize the address first.
func (r *ProfileRepositoryMongo) GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		log.Error().Err(err).Str("email", email).Msg("error getting profile by email from MongoDB")
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile replaces a profile row.
func (r *ProfileRepositoryMongo) UpdateProfile(ctx context.Context, profile *domain.Profile) error {
	if profile.ID == "" {
		return errors.New("profile ID is required for update")
	}
	profile.UpdatedAt = time.Now().UTC()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": profile.ID}, profile)
	if err != nil {
		log.Error().Err(err).Str("id", profile.ID).Msg("error updating profile in MongoDB")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// ListProfiles returns one page of profiles ordered by id. The page token is
// the last id of the previous page.
func (r *ProfileRepositoryMongo) ListProfiles(ctx context.Context, pageToken string, pageSize int) ([]*domain.Profile, string, error) {
	filter := bson.M{}
	if pageToken != "" {
		filter["_id"] = bson.M{"$gt": pageToken}
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(pageSize))

	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		log.Error().Err(err).Msg("error listing profiles from MongoDB")
		return nil, "", err
	}
	defer cursor.Close(ctx)

	var profiles []*domain.Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, "", err
	}

	nextToken := ""
	if len(profiles) == pageSize && pageSize > 0 {
		nextToken = profiles[len(profiles)-1].ID
	}
	return profiles, nextToken, nil
}

var _ domain.ProfileRepository = (*ProfileRepositoryMongo)(nil)
