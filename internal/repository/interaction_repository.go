package repository

import (
	"context"
	"fmt"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type InteractionRepository struct {
	collection *mongo.Collection
}

func NewInteractionRepository(db *mongo.Database) *InteractionRepository {
	return &InteractionRepository{
		collection: db.Collection("interactions"),
	}
}

func (r *InteractionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "client_id", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("client_timeline"),
	})
	if err != nil {
		return storageError("ensure interaction indexes", err)
	}
	return nil
}

// CreateInteraction inserts a new interaction log
func (r *InteractionRepository) CreateInteraction(ctx context.Context, interaction *models.Interaction) error {
	result, err := r.collection.InsertOne(ctx, interaction)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert interaction")
		return storageError("create interaction", err)
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return storageError("create interaction", fmt.Errorf("unexpected inserted id type %T", result.InsertedID))
	}
	interaction.ID = id
	return nil
}

// GetClientInteractions fetches the most recent interactions with a client
func (r *InteractionRepository) GetClientInteractions(ctx context.Context, clientID primitive.ObjectID, limit int) ([]models.Interaction, error) {
	filter := bson.M{"client_id": clientID}
	sort := bson.D{{Key: "timestamp", Value: -1}}

	opts := options.Find().SetSort(sort).SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, storageError("fetch interactions", err)
	}
	defer cursor.Close(ctx)

	var interactions []models.Interaction
	if err := cursor.All(ctx, &interactions); err != nil {
		return nil, storageError("decode interactions", err)
	}
	return interactions, nil
}

// DeleteByClient removes the interaction history of a deleted client
func (r *InteractionRepository) DeleteByClient(ctx context.Context, clientID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"client_id": clientID})
	if err != nil {
		return storageError("delete interactions", err)
	}
	return nil
}
