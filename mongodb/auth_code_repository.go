package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/onegate-dev/onegate/domain"
)

// AuthCodeRepository implements domain.AuthCodeRepository using MongoDB.
// Single-use consumption relies on FindOneAndUpdate with a consumed:false
// filter, so exactly one concurrent redemption wins on the server side.
type AuthCodeRepository struct {
	codes *mongo.Collection
}

// NewAuthCodeRepository creates an AuthCodeRepository and ensures its
// indexes. Expired codes are reaped by a TTL index on expires_at.
func NewAuthCodeRepository(ctx context.Context, db *mongo.Database) (*AuthCodeRepository, error) {
	repo := &AuthCodeRepository{
		codes: db.Collection(CodesCollection),
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := repo.codes.Indexes().CreateMany(timeoutCtx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create auth code indexes: %w", err)
	}
	return repo, nil
}

func (r *AuthCodeRepository) SaveAuthCode(ctx context.Context, code *domain.AuthCode) error {
	if code.Code == "" {
		return errors.New("auth code value cannot be empty")
	}

	_, err := r.codes.InsertOne(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("Error saving authorization code")
		return fmt.Errorf("failed to save authorization code: %w", err)
	}
	log.Debug().Str("client_id", code.ClientID).Msg("Authorization code saved")
	return nil
}

func (r *AuthCodeRepository) ConsumeAuthCode(ctx context.Context, code string) (*domain.AuthCode, error) {
	filter := bson.M{
		"code":       code,
		"consumed":   false,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}
	update := bson.M{"$set": bson.M{"consumed": true}}

	var consumed domain.AuthCode
	err := r.codes.FindOneAndUpdate(ctx, filter, update).Decode(&consumed)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Unknown, already consumed or expired. All look the same
			// to the caller.
			return nil, domain.ErrAuthCodeNotFound
		}
		log.Error().Err(err).Msg("Error consuming authorization code")
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}
	consumed.Consumed = true
	return &consumed, nil
}

var _ domain.AuthCodeRepository = (*AuthCodeRepository)(nil)
