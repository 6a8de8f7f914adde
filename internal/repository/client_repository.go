package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"github.com/Dias221467/Sales_CRM/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ClientRepository struct handles database operations related to clients
type ClientRepository struct {
	collection *mongo.Collection
}

// NewClientRepository creates a new instance of ClientRepository
func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{
		collection: db.Collection("clients"),
	}
}

func (r *ClientRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetName("owner_clients"),
	})
	if err != nil {
		return storageError("ensure client indexes", err)
	}
	return nil
}

// CreateClient creates a new client in the database
func (r *ClientRepository) CreateClient(ctx context.Context, client *models.Client) (*models.Client, error) {
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, client)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert client")
		return nil, storageError("create client", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, storageError("create client", fmt.Errorf("unexpected inserted id type %T", result.InsertedID))
	}
	client.ID = insertedID

	logger.Log.WithField("client_id", client.ID.Hex()).Info("Client created successfully")
	return client, nil
}

// GetClientByID fetches a client by its ID
func (r *ClientRepository) GetClientByID(ctx context.Context, id primitive.ObjectID) (*models.Client, error) {
	var client models.Client

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&client)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Log.WithError(err).WithField("client_id", id.Hex()).Error("Failed to find client by ID")
		return nil, storageError("get client", err)
	}
	return &client, nil
}

// UpdateClient replaces the mutable fields of a client
func (r *ClientRepository) UpdateClient(ctx context.Context, client *models.Client) (*models.Client, error) {
	client.UpdatedAt = time.Now().UTC()

	update := bson.M{"$set": bson.M{
		"name":         client.Name,
		"company":      client.Company,
		"email":        client.Email,
		"phone":        client.Phone,
		"follow_up_at": client.FollowUpAt,
		"updated_at":   client.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": client.ID}, update)
	if err != nil {
		logger.Log.WithError(err).WithField("client_id", client.ID.Hex()).Error("Failed to update client")
		return nil, storageError("update client", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	logger.Log.WithField("client_id", client.ID.Hex()).Info("Client updated successfully")
	return client, nil
}

// SetFollowUp updates only the follow-up time of a client
func (r *ClientRepository) SetFollowUp(ctx context.Context, id primitive.ObjectID, at *time.Time) error {
	update := bson.M{"$set": bson.M{"follow_up_at": at, "updated_at": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return storageError("set client follow-up", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteClient deletes a client from the database by its ID
func (r *ClientRepository) DeleteClient(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logger.Log.WithError(err).WithField("client_id", id.Hex()).Error("Failed to delete client")
		return storageError("delete client", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	logger.Log.WithField("client_id", id.Hex()).Info("Client deleted successfully")
	return nil
}

// GetClientsByOwner fetches the clients of one sales user
func (r *ClientRepository) GetClientsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Client, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, storageError("list clients", err)
	}
	defer cursor.Close(ctx)

	var clients []models.Client
	if err := cursor.All(ctx, &clients); err != nil {
		return nil, storageError("decode clients", err)
	}
	return clients, nil
}
