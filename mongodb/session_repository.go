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

// SessionRepositoryMongo implements the domain.SessionRepository interface using MongoDB.
type SessionRepositoryMongo struct {
	collection *mongo.Collection
}

// NewSessionRepositoryMongo creates a new SessionRepositoryMongo and ensures
// the token hash index plus the TTL index for automatic expiry cleanup.
func NewSessionRepositoryMongo(ctx context.Context, db *mongo.Database) (domain.SessionRepository, error) {
	repo := &SessionRepositoryMongo{
		collection: db.Collection(SessionsCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("issue creating indexes for user_sessions collection")
	}

	return repo, nil
}

// StoreSession creates a new session row.
func (r *SessionRepositoryMongo) StoreSession(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		session.ID = NewObjectID()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("session with this token already exists")
		}
		log.Error().Err(err).Msg("error storing session in MongoDB")
		return err
	}
	return nil
}

// GetSessionByTokenHash retrieves a session by its token hash.
func (r *SessionRepositoryMongo) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := r.collection.FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		log.Error().Err(err).Msg("error getting session by token hash from MongoDB")
		return nil, err
	}
	return &session, nil
}

// RevokeSession marks one session revoked.
func (r *SessionRepositoryMongo) RevokeSession(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{"is_revoked": true}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("error revoking session in MongoDB")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// RevokeSessionsByUserID marks every live session of a user revoked.
func (r *SessionRepositoryMongo) RevokeSessionsByUserID(ctx context.Context, userID string) (int64, error) {
	filter := bson.M{"user_id": userID, "is_revoked": bson.M{"$ne": true}}
	update := bson.M{"$set": bson.M{"is_revoked": true}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("error revoking user sessions in MongoDB")
		return 0, err
	}
	return result.ModifiedCount, nil
}

var _ domain.SessionRepository = (*SessionRepositoryMongo)(nil)
