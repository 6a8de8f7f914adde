package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidToken = errors.New("device token is required")

// DeviceService is the per-user registry of push tokens.
type DeviceService struct {
	store DeviceStore
}

func NewDeviceService(store DeviceStore) *DeviceService {
	return &DeviceService{store: store}
}

// Register adds a token to the user's registry. Duplicates are no-ops.
func (s *DeviceService) Register(ctx context.Context, userID primitive.ObjectID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	if err := s.store.AddDeviceToken(ctx, userID, token); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	logrus.WithField("user_id", userID.Hex()).Info("Device registered")
	return nil
}

// Unregister removes a token. Removing an unknown token is a no-op.
func (s *DeviceService) Unregister(ctx context.Context, userID primitive.ObjectID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	if _, err := s.store.RemoveDeviceTokens(ctx, userID, []string{token}); err != nil {
		return fmt.Errorf("failed to unregister device: %w", err)
	}
	return nil
}

// Tokens returns the user's registered tokens.
func (s *DeviceService) Tokens(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.DeviceTokens, nil
}

// PruneTokens drops tokens the push provider rejected as invalid.
func (s *DeviceService) PruneTokens(ctx context.Context, userID primitive.ObjectID, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	removed, err := s.store.RemoveDeviceTokens(ctx, userID, tokens)
	if err != nil {
		return fmt.Errorf("failed to prune device tokens: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"user_id": userID.Hex(),
		"invalid": len(tokens),
		"removed": removed,
	}).Info("Pruned invalid device tokens")
	return nil
}

// ResolveOwner implements OwnerResolver.
func (s *DeviceService) ResolveOwner(ctx context.Context, id primitive.ObjectID) (*Owner, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Owner{ID: user.ID, DeviceTokens: user.DeviceTokens}, nil
}
