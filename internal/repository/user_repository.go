package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository handles database operations related to users and their
// registered push devices.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// GetUserByID retrieves a user by their ID.
func (r *UserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		logrus.WithField("user_id", id.Hex()).Warn("User not found")
		return nil, ErrNotFound
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": id.Hex(),
			"error":   err,
		}).Error("Failed to find user by ID")
		return nil, storageError("get user", err)
	}
	return &user, nil
}

// AddDeviceToken registers a push token for the user. Registering the same
// token twice is a no-op.
func (r *UserRepository) AddDeviceToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{
			"$addToSet": bson.M{"device_tokens": token}, // avoid duplicates
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to add device token")
		return storageError("add device token", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveDeviceTokens pulls the given tokens from the user's registry. Tokens
// that are not registered are ignored.
func (r *UserRepository) RemoveDeviceTokens(ctx context.Context, userID primitive.ObjectID, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"device_tokens": bson.M{"$in": tokens}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to remove device tokens")
		return 0, storageError("remove device tokens", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID.Hex(),
		"count":   len(tokens),
	}).Info("Device tokens removed")
	return result.ModifiedCount, nil
}
