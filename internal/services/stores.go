package services

import (
	"context"
	"time"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderStore is the persistence contract for reminders. Every status
// transition it performs only applies to pending reminders.
type ReminderStore interface {
	CreateReminder(ctx context.Context, ownerID, subjectID primitive.ObjectID, scheduledTime time.Time) (*models.Reminder, error)
	CancelPendingForSubject(ctx context.Context, subjectID primitive.ObjectID, reason string) (int64, error)
	CancelReminder(ctx context.Context, id primitive.ObjectID, reason string) (bool, error)
	FetchDueBatch(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error)
	MarkSent(ctx context.Context, id primitive.ObjectID) (bool, error)
	CountPending(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
	ListBySubject(ctx context.Context, subjectID primitive.ObjectID) ([]models.Reminder, error)
	DeleteBySubject(ctx context.Context, subjectID primitive.ObjectID) (int64, error)
}

type DeviceStore interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	AddDeviceToken(ctx context.Context, userID primitive.ObjectID, token string) error
	RemoveDeviceTokens(ctx context.Context, userID primitive.ObjectID, tokens []string) (int64, error)
}

type ClientStore interface {
	CreateClient(ctx context.Context, client *models.Client) (*models.Client, error)
	GetClientByID(ctx context.Context, id primitive.ObjectID) (*models.Client, error)
	UpdateClient(ctx context.Context, client *models.Client) (*models.Client, error)
	SetFollowUp(ctx context.Context, id primitive.ObjectID, at *time.Time) error
	DeleteClient(ctx context.Context, id primitive.ObjectID) error
	GetClientsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Client, error)
}

type InteractionStore interface {
	CreateInteraction(ctx context.Context, interaction *models.Interaction) error
	GetClientInteractions(ctx context.Context, clientID primitive.ObjectID, limit int) ([]models.Interaction, error)
	DeleteByClient(ctx context.Context, clientID primitive.ObjectID) error
}

// Subject is the resolved view of the entity a reminder is about.
type Subject struct {
	ID          primitive.ObjectID
	OwnerID     primitive.ObjectID
	DisplayName string
}

// Owner is the resolved view of the account a reminder notifies.
type Owner struct {
	ID           primitive.ObjectID
	DeviceTokens []string
}

// SubjectResolver returns repository.ErrNotFound when the subject is gone.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, id primitive.ObjectID) (*Subject, error)
}

// OwnerResolver returns repository.ErrNotFound when the owner is gone.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, id primitive.ObjectID) (*Owner, error)
}

// TokenPruner removes tokens the push provider reported as invalid.
type TokenPruner interface {
	PruneTokens(ctx context.Context, userID primitive.ObjectID, tokens []string) error
}
