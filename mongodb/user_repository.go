package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/onegate-dev/onegate/domain"
)

// UserRepository implements domain.UserRepository using MongoDB. The server
// runs with a single operator identity, so the collection holds one document
// per configured email.
type UserRepository struct {
	users *mongo.Collection
}

// NewUserRepository creates a UserRepository and ensures its indexes.
func NewUserRepository(ctx context.Context, db *mongo.Database) (*UserRepository, error) {
	repo := &UserRepository{
		users: db.Collection(UsersCollection),
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := repo.users.Indexes().CreateOne(timeoutCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user email index: %w", err)
	}
	return repo, nil
}

// EnsureUser upserts the operator identity keyed by email. Bootstrapping at
// startup keeps the stored password hash in sync with configuration.
func (r *UserRepository) EnsureUser(ctx context.Context, user *domain.User) error {
	filter := bson.M{"email": user.Email}
	update := bson.M{
		"$set": bson.M{
			"password_hash": user.PasswordHash,
		},
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"email":      user.Email,
			"created_at": time.Now().UTC(),
		},
	}

	_, err := r.users.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		log.Error().Err(err).Msg("Error upserting operator user")
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		log.Error().Err(err).Msg("Error retrieving user")
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &user, nil
}

var _ domain.UserRepository = (*UserRepository)(nil)
