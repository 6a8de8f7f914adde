package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrForbidden     = errors.New("client belongs to another user")
	ErrInvalidClient = errors.New("client name or company is required")
)

const defaultInteractionLimit = 50

// ClientUpdate carries the editable fields of a client. A nil FollowUpAt
// clears the follow-up.
type ClientUpdate struct {
	Name       string     `json:"name"`
	Company    string     `json:"company"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	FollowUpAt *time.Time `json:"follow_up_at"`
}

// ClientService encapsulates client mutations and keeps the client's
// follow-up reminder in step with them.
type ClientService struct {
	clients      ClientStore
	interactions InteractionStore
	reminders    *ReminderService
}

func NewClientService(clients ClientStore, interactions InteractionStore, reminders *ReminderService) *ClientService {
	return &ClientService{
		clients:      clients,
		interactions: interactions,
		reminders:    reminders,
	}
}

// CreateClient stores a client and schedules its first follow-up, if any.
func (s *ClientService) CreateClient(ctx context.Context, ownerID primitive.ObjectID, client *models.Client) (*models.Client, error) {
	client.Name = strings.TrimSpace(client.Name)
	client.Company = strings.TrimSpace(client.Company)
	if client.Name == "" && client.Company == "" {
		return nil, ErrInvalidClient
	}
	client.ID = primitive.NilObjectID
	client.OwnerID = ownerID
	client.FollowUpAt = normalizeTime(client.FollowUpAt)

	created, err := s.clients.CreateClient(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if created.FollowUpAt != nil {
		if _, err := s.reminders.OnFollowUpSet(ctx, ownerID, created.ID, *created.FollowUpAt); err != nil {
			// The client is not returned, so it must not stay stored without its reminder.
			if delErr := s.clients.DeleteClient(ctx, created.ID); delErr != nil {
				logrus.WithError(delErr).WithField("client_id", created.ID.Hex()).Error("Failed to roll back client after reminder failure")
			}
			return nil, err
		}
	}
	return created, nil
}

// GetClient returns a client owned by ownerID.
func (s *ClientService) GetClient(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Client, error) {
	client, err := s.clients.GetClientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if client.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return client, nil
}

func (s *ClientService) ListClients(ctx context.Context, ownerID primitive.ObjectID) ([]models.Client, error) {
	return s.clients.GetClientsByOwner(ctx, ownerID)
}

// UpdateClient applies update and reschedules or cancels the follow-up
// reminder when the follow-up time changed.
func (s *ClientService) UpdateClient(ctx context.Context, ownerID, id primitive.ObjectID, update ClientUpdate) (*models.Client, error) {
	client, err := s.GetClient(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	previous := client.FollowUpAt
	client.Name = strings.TrimSpace(update.Name)
	client.Company = strings.TrimSpace(update.Company)
	client.Email = update.Email
	client.Phone = update.Phone
	client.FollowUpAt = normalizeTime(update.FollowUpAt)
	if client.Name == "" && client.Company == "" {
		return nil, ErrInvalidClient
	}

	updated, err := s.clients.UpdateClient(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}

	if err := s.syncFollowUp(ctx, ownerID, id, previous, updated.FollowUpAt); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteClient removes the client together with its reminders and
// interaction history.
func (s *ClientService) DeleteClient(ctx context.Context, ownerID, id primitive.ObjectID) error {
	if _, err := s.GetClient(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.reminders.OnSubjectDeleted(ctx, id); err != nil {
		return err
	}
	if err := s.interactions.DeleteByClient(ctx, id); err != nil {
		return fmt.Errorf("failed to delete client interactions: %w", err)
	}
	if err := s.clients.DeleteClient(ctx, id); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	logrus.WithField("client_id", id.Hex()).Info("Client deleted with its reminders")
	return nil
}

// LogInteraction records a call, meeting or email with a client. A next
// follow-up time on the interaction reschedules the client's reminder.
func (s *ClientService) LogInteraction(ctx context.Context, ownerID, clientID primitive.ObjectID, interaction *models.Interaction) (*models.Interaction, error) {
	client, err := s.GetClient(ctx, ownerID, clientID)
	if err != nil {
		return nil, err
	}

	interaction.ID = primitive.NilObjectID
	interaction.ClientID = clientID
	interaction.OwnerID = ownerID
	interaction.NextFollowUpAt = normalizeTime(interaction.NextFollowUpAt)
	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = time.Now().UTC()
	}

	if err := s.interactions.CreateInteraction(ctx, interaction); err != nil {
		return nil, fmt.Errorf("failed to log interaction: %w", err)
	}

	if next := interaction.NextFollowUpAt; next != nil && !sameTime(client.FollowUpAt, next) {
		if err := s.clients.SetFollowUp(ctx, clientID, next); err != nil {
			return nil, fmt.Errorf("failed to update client follow-up: %w", err)
		}
		if _, err := s.reminders.OnFollowUpSet(ctx, ownerID, clientID, *next); err != nil {
			return nil, err
		}
	}
	return interaction, nil
}

// GetInteractions returns the latest interactions with a client.
func (s *ClientService) GetInteractions(ctx context.Context, ownerID, clientID primitive.ObjectID, limit int) ([]models.Interaction, error) {
	if _, err := s.GetClient(ctx, ownerID, clientID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultInteractionLimit {
		limit = defaultInteractionLimit
	}
	return s.interactions.GetClientInteractions(ctx, clientID, limit)
}

// ResolveSubject implements SubjectResolver.
func (s *ClientService) ResolveSubject(ctx context.Context, id primitive.ObjectID) (*Subject, error) {
	client, err := s.clients.GetClientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Subject{ID: client.ID, OwnerID: client.OwnerID, DisplayName: client.DisplayName()}, nil
}

func (s *ClientService) syncFollowUp(ctx context.Context, ownerID, clientID primitive.ObjectID, previous, current *time.Time) error {
	switch {
	case sameTime(previous, current):
		return nil
	case current == nil:
		return s.reminders.OnFollowUpCleared(ctx, clientID)
	default:
		_, err := s.reminders.OnFollowUpSet(ctx, ownerID, clientID, *current)
		return err
	}
}

// normalizeTime drops sub-millisecond precision, which MongoDB does not keep.
func normalizeTime(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	n := t.UTC().Truncate(time.Millisecond)
	return &n
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
