package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newMockReminderRepo(mt *mtest.T) *ReminderRepository {
	return &ReminderRepository{
		collection: mt.Coll,
		now:        func() time.Time { return fixedNow },
	}
}

func reminderDoc(r models.Reminder) bson.D {
	return bson.D{
		{Key: "_id", Value: r.ID},
		{Key: "owner_id", Value: r.OwnerID},
		{Key: "subject_id", Value: r.SubjectID},
		{Key: "scheduled_time", Value: r.ScheduledTime},
		{Key: "status", Value: string(r.Status)},
		{Key: "created_at", Value: r.CreatedAt},
		{Key: "updated_at", Value: r.UpdatedAt},
	}
}

func TestReminderRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create cancels then inserts", func(mt *mtest.T) {
		repo := newMockReminderRepo(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(),
		)

		at := time.Date(2024, 5, 2, 10, 0, 0, 123456789, time.FixedZone("UTC+5", 5*3600))
		r, err := repo.CreateReminder(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), at)

		require.NoError(t, err)
		assert.False(t, r.ID.IsZero())
		assert.Equal(t, models.ReminderPending, r.Status)
		assert.Equal(t, time.UTC, r.ScheduledTime.Location())
		assert.Equal(t, 123000000, r.ScheduledTime.Nanosecond())
		assert.True(t, r.ScheduledTime.Equal(at.Truncate(time.Millisecond)))
		assert.Equal(t, fixedNow, r.CreatedAt)
	})

	mt.Run("create reports duplicate pending reminder as storage error", func(mt *mtest.T) {
		repo := newMockReminderRepo(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}),
		)

		_, err := repo.CreateReminder(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), fixedNow)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStorage)
		assert.True(t, mongo.IsDuplicateKeyError(err))
	})

	mt.Run("create stops when cancel fails", func(mt *mtest.T) {
		repo := newMockReminderRepo(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 91, Name: "ShutdownInProgress", Message: "shutting down"}))

		_, err := repo.CreateReminder(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), fixedNow)

		var storageErr *StorageError
		require.True(t, errors.As(err, &storageErr))
		assert.Equal(t, "cancel pending reminders", storageErr.Op)
	})

	mt.Run("cancel pending returns modified count", func(mt *mtest.T) {
		repo := newMockReminderRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 2}))

		n, err := repo.CancelPendingForSubject(context.Background(), primitive.NewObjectID(), models.CancelCleared)

		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})

	mt.Run("fetch due batch decodes in order", func(mt *mtest.T) {
		repo := newMockReminderRepo(mt)
		first := models.Reminder{
			ID: primitive.NewObjectID(), OwnerID: primitive.NewObjectID(), SubjectID: primitive.NewObjectID(),
			ScheduledTime: fixedNow.Add(-time.Hour), Status: models.ReminderPending,
		}
		second := first
		second.ID = primitive.NewObjectID()
		second.ScheduledTime = fixedNow.Add(-time.Minute)

		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, reminderDoc(first), reminderDoc(second)))

		due, err := repo.FetchDueBatch(context.Background(), fixedNow, 10)

		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, first.ID, due[0].ID)
		assert.Equal(t, second.ID, due[1].ID)
		assert.Equal(t, models.ReminderPending, due[1].Status)
	})

	mt.Run("fetch due batch with zero limit skips the query", func(mt *mtest.T) {
		repo := newMockReminderRepo(mt)

		due, err := repo.FetchDueBatch(context.Background(), fixedNow, 0)

		require.NoError(t, err)
		assert.Empty(t, due)
	})

	mt.Run("fetch due batch failure", func(mt *mtest.T) {
		repo := newMockReminderRepo(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized"}))

		_, err := repo.FetchDueBatch(context.Background(), fixedNow, 10)

		assert.ErrorIs(t, err, ErrStorage)
	})

	mt.Run("mark sent only applies to pending", func(mt *mtest.T) {
		repo := newMockReminderRepo(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)
		id := primitive.NewObjectID()

		ok, err := repo.MarkSent(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.MarkSent(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := newMockReminderRepo(mt)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetReminderByID(context.Background(), primitive.NewObjectID())

		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("count pending", func(mt *mtest.T) {
		repo := newMockReminderRepo(mt)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}))

		n, err := repo.CountPending(context.Background(), primitive.NewObjectID())

		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	mt.Run("delete by subject", func(mt *mtest.T) {
		repo := newMockReminderRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 4}))

		n, err := repo.DeleteBySubject(context.Background(), primitive.NewObjectID())

		require.NoError(t, err)
		assert.EqualValues(t, 4, n)
	})
}
