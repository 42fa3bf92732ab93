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

// RefreshTokenRepository implements domain.RefreshTokenRepository using
// MongoDB. Rotation relies on FindOneAndUpdate with a revoked:false filter,
// so exactly one concurrent rotation wins on the server side.
type RefreshTokenRepository struct {
	tokens *mongo.Collection
}

// NewRefreshTokenRepository creates a RefreshTokenRepository and ensures
// its indexes. Expired tokens are reaped by a TTL index on expires_at.
func NewRefreshTokenRepository(ctx context.Context, db *mongo.Database) (*RefreshTokenRepository, error) {
	repo := &RefreshTokenRepository{
		tokens: db.Collection(RefreshTokensCollection),
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := repo.tokens.Indexes().CreateMany(timeoutCtx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "rotated_from", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token indexes: %w", err)
	}
	return repo, nil
}

func (r *RefreshTokenRepository) StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	_, err := r.tokens.InsertOne(ctx, token)
	if err != nil {
		log.Error().Err(err).Msg("Error storing refresh token")
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var stored domain.RefreshToken
	err := r.tokens.FindOne(ctx, bson.M{"token": token}).Decode(&stored)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		log.Error().Err(err).Msg("Error retrieving refresh token")
		return nil, fmt.Errorf("failed to retrieve refresh token: %w", err)
	}
	return &stored, nil
}

func (r *RefreshTokenRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	filter := bson.M{"token": token, "revoked": false}
	update := bson.M{"$set": bson.M{"revoked": true}}

	err := r.tokens.FindOneAndUpdate(ctx, filter, update).Err()
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		log.Error().Err(err).Msg("Error revoking refresh token")
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	// No unrevoked document matched. Distinguish missing from already
	// revoked so the caller can treat the latter as reuse.
	count, countErr := r.tokens.CountDocuments(ctx, bson.M{"token": token})
	if countErr != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", countErr)
	}
	if count == 0 {
		return domain.ErrRefreshTokenNotFound
	}
	return domain.ErrRefreshTokenRevoked
}

// RevokeLineage revokes the given token and every descendant minted from
// it, walking the rotation chain forward.
func (r *RefreshTokenRepository) RevokeLineage(ctx context.Context, token string) error {
	current := token
	for current != "" {
		_, err := r.tokens.UpdateOne(ctx,
			bson.M{"token": current},
			bson.M{"$set": bson.M{"revoked": true}})
		if err != nil {
			return fmt.Errorf("failed to revoke token lineage: %w", err)
		}

		var next domain.RefreshToken
		err = r.tokens.FindOne(ctx, bson.M{"rotated_from": current}).Decode(&next)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil
			}
			return fmt.Errorf("failed to walk token lineage: %w", err)
		}
		current = next.Token
	}
	return nil
}

var _ domain.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
