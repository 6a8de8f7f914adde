package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReminderRepository persists follow-up reminders in the "reminders" collection.
type ReminderRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewReminderRepository creates a new instance of ReminderRepository.
func NewReminderRepository(db *mongo.Database) *ReminderRepository {
	return &ReminderRepository{
		collection: db.Collection("reminders"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the indexes the due scan and the per-subject
// operations rely on. The partial unique index keeps at most one pending
// reminder per subject even if two writers race.
func (r *ReminderRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "scheduled_time", Value: 1}},
			Options: options.Index().SetName("due_scan"),
		},
		{
			Keys: bson.D{{Key: "subject_id", Value: 1}},
			Options: options.Index().
				SetName("one_pending_per_subject").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.ReminderPending}),
		},
		{
			Keys:    bson.D{{Key: "subject_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("subject_history"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("owner_status"),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return storageError("ensure reminder indexes", err)
	}
	return nil
}

// CreateReminder cancels every pending reminder of the subject and inserts a
// new pending one.
func (r *ReminderRepository) CreateReminder(ctx context.Context, ownerID, subjectID primitive.ObjectID, scheduledTime time.Time) (*models.Reminder, error) {
	if _, err := r.CancelPendingForSubject(ctx, subjectID, models.CancelRescheduled); err != nil {
		return nil, err
	}

	now := r.now()
	reminder := &models.Reminder{
		OwnerID:       ownerID,
		SubjectID:     subjectID,
		ScheduledTime: scheduledTime.UTC().Truncate(time.Millisecond),
		Status:        models.ReminderPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	result, err := r.collection.InsertOne(ctx, reminder)
	if err != nil {
		logrus.WithError(err).WithField("subject_id", subjectID.Hex()).Error("Failed to insert reminder")
		return nil, storageError("create reminder", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, storageError("create reminder", fmt.Errorf("unexpected inserted id type %T", result.InsertedID))
	}
	reminder.ID = insertedID

	logrus.WithFields(logrus.Fields{
		"reminder_id":    reminder.ID.Hex(),
		"subject_id":     subjectID.Hex(),
		"scheduled_time": reminder.ScheduledTime,
	}).Info("Reminder scheduled")
	return reminder, nil
}

// CancelPendingForSubject moves every pending reminder of the subject to
// cancelled. Zero matches is not an error.
func (r *ReminderRepository) CancelPendingForSubject(ctx context.Context, subjectID primitive.ObjectID, reason string) (int64, error) {
	now := r.now()
	filter := bson.M{"subject_id": subjectID, "status": models.ReminderPending}
	update := bson.M{"$set": bson.M{
		"status":        models.ReminderCancelled,
		"cancel_reason": reason,
		"updated_at":    now,
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("subject_id", subjectID.Hex()).Error("Failed to cancel pending reminders")
		return 0, storageError("cancel pending reminders", err)
	}

	if result.ModifiedCount > 0 {
		logrus.WithFields(logrus.Fields{
			"subject_id": subjectID.Hex(),
			"count":      result.ModifiedCount,
			"reason":     reason,
		}).Info("Pending reminders cancelled")
	}
	return result.ModifiedCount, nil
}

// FetchDueBatch returns up to limit pending reminders scheduled at or before
// now, oldest first.
func (r *ReminderRepository) FetchDueBatch(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	if limit <= 0 {
		return nil, nil
	}

	filter := bson.M{
		"status":         models.ReminderPending,
		"scheduled_time": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_time", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, storageError("fetch due reminders", err)
	}
	defer cursor.Close(ctx)

	var reminders []models.Reminder
	if err := cursor.All(ctx, &reminders); err != nil {
		return nil, storageError("decode due reminders", err)
	}
	return reminders, nil
}

// MarkSent moves a pending reminder to sent. It reports false without error
// when the reminder is no longer pending.
func (r *ReminderRepository) MarkSent(ctx context.Context, id primitive.ObjectID) (bool, error) {
	now := r.now()
	filter := bson.M{"_id": id, "status": models.ReminderPending}
	update := bson.M{"$set": bson.M{
		"status":     models.ReminderSent,
		"sent_at":    now,
		"updated_at": now,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("reminder_id", id.Hex()).Error("Failed to mark reminder sent")
		return false, storageError("mark reminder sent", err)
	}
	return result.ModifiedCount == 1, nil
}

// CancelReminder moves a single pending reminder to cancelled.
func (r *ReminderRepository) CancelReminder(ctx context.Context, id primitive.ObjectID, reason string) (bool, error) {
	now := r.now()
	filter := bson.M{"_id": id, "status": models.ReminderPending}
	update := bson.M{"$set": bson.M{
		"status":        models.ReminderCancelled,
		"cancel_reason": reason,
		"updated_at":    now,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, storageError("cancel reminder", err)
	}
	return result.ModifiedCount == 1, nil
}

// CountPending counts the owner's pending reminders.
func (r *ReminderRepository) CountPending(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"owner_id": ownerID, "status": models.ReminderPending})
	if err != nil {
		return 0, storageError("count pending reminders", err)
	}
	return count, nil
}

// GetReminderByID fetches a reminder by its ID.
func (r *ReminderRepository) GetReminderByID(ctx context.Context, id primitive.ObjectID) (*models.Reminder, error) {
	var reminder models.Reminder
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reminder)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageError("get reminder", err)
	}
	return &reminder, nil
}

// ListBySubject returns the subject's reminders, newest first.
func (r *ReminderRepository) ListBySubject(ctx context.Context, subjectID primitive.ObjectID) ([]models.Reminder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"subject_id": subjectID}, opts)
	if err != nil {
		return nil, storageError("list subject reminders", err)
	}
	defer cursor.Close(ctx)

	var reminders []models.Reminder
	if err := cursor.All(ctx, &reminders); err != nil {
		return nil, storageError("decode subject reminders", err)
	}
	return reminders, nil
}

// DeleteBySubject physically removes every reminder of the subject. Only the
// cascade delete of a client calls it.
func (r *ReminderRepository) DeleteBySubject(ctx context.Context, subjectID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"subject_id": subjectID})
	if err != nil {
		logrus.WithError(err).WithField("subject_id", subjectID.Hex()).Error("Failed to delete subject reminders")
		return 0, storageError("delete subject reminders", err)
	}
	logrus.WithFields(logrus.Fields{
		"subject_id": subjectID.Hex(),
		"count":      result.DeletedCount,
	}).Info("Subject reminders deleted")
	return result.DeletedCount, nil
}
