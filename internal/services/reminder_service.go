package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidFollowUp = errors.New("follow-up time is required")

// ReminderService keeps reminders in step with the follow-up times of their
// subjects. Client and interaction flows call it synchronously, so the
// one-pending-reminder-per-subject invariant holds as soon as they return.
type ReminderService struct {
	store ReminderStore
}

func NewReminderService(store ReminderStore) *ReminderService {
	return &ReminderService{store: store}
}

// OnFollowUpSet replaces any pending reminder of the subject with one due at.
func (s *ReminderService) OnFollowUpSet(ctx context.Context, ownerID, subjectID primitive.ObjectID, at time.Time) (*models.Reminder, error) {
	if at.IsZero() {
		return nil, ErrInvalidFollowUp
	}

	reminder, err := s.store.CreateReminder(ctx, ownerID, subjectID, at)
	if err != nil {
		logrus.WithError(err).WithField("subject_id", subjectID.Hex()).Error("Failed to schedule follow-up reminder")
		return nil, fmt.Errorf("failed to schedule reminder: %w", err)
	}
	return reminder, nil
}

// OnFollowUpCleared cancels the subject's pending reminder, if any.
func (s *ReminderService) OnFollowUpCleared(ctx context.Context, subjectID primitive.ObjectID) error {
	if _, err := s.store.CancelPendingForSubject(ctx, subjectID, models.CancelCleared); err != nil {
		logrus.WithError(err).WithField("subject_id", subjectID.Hex()).Error("Failed to cancel follow-up reminder")
		return fmt.Errorf("failed to cancel reminder: %w", err)
	}
	return nil
}

// OnSubjectDeleted cancels and then removes every reminder of a deleted subject.
func (s *ReminderService) OnSubjectDeleted(ctx context.Context, subjectID primitive.ObjectID) error {
	if _, err := s.store.CancelPendingForSubject(ctx, subjectID, models.CancelSubjectDeleted); err != nil {
		return fmt.Errorf("failed to cancel reminders of deleted subject: %w", err)
	}
	if _, err := s.store.DeleteBySubject(ctx, subjectID); err != nil {
		return fmt.Errorf("failed to delete reminders of deleted subject: %w", err)
	}
	return nil
}

// CountPending returns the owner's pending reminder count.
func (s *ReminderService) CountPending(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return s.store.CountPending(ctx, ownerID)
}

// ListForSubject returns the reminder history of a subject, newest first.
func (s *ReminderService) ListForSubject(ctx context.Context, subjectID primitive.ObjectID) ([]models.Reminder, error) {
	return s.store.ListBySubject(ctx, subjectID)
}
