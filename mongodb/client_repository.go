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

// ClientRepository implements domain.ClientRepository using MongoDB.
type ClientRepository struct {
	clients *mongo.Collection
}

// NewClientRepository creates a ClientRepository and ensures its indexes.
func NewClientRepository(ctx context.Context, db *mongo.Database) (*ClientRepository, error) {
	repo := &ClientRepository{
		clients: db.Collection(ClientsCollection),
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := repo.clients.Indexes().CreateOne(timeoutCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "client_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client_id index: %w", err)
	}
	return repo, nil
}

func (r *ClientRepository) CreateClient(ctx context.Context, client *domain.Client) error {
	_, err := r.clients.InsertOne(ctx, client)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrClientExists
		}
		log.Error().Err(err).Str("client_id", client.ID).Msg("Error saving client")
		return fmt.Errorf("failed to save client: %w", err)
	}
	log.Debug().Str("client_id", client.ID).Str("client_name", client.Name).Msg("Client registered")
	return nil
}

func (r *ClientRepository) GetClient(ctx context.Context, clientID string) (*domain.Client, error) {
	var client domain.Client
	err := r.clients.FindOne(ctx, bson.M{"client_id": clientID}).Decode(&client)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrClientNotFound
		}
		log.Error().Err(err).Str("client_id", clientID).Msg("Error retrieving client")
		return nil, fmt.Errorf("failed to retrieve client: %w", err)
	}
	return &client, nil
}

var _ domain.ClientRepository = (*ClientRepository)(nil)
