package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryReminderRepository is an in-process reminder store with the same
// semantics as ReminderRepository. Every operation holds the lock for its
// whole duration, so CreateReminder is atomic per subject.
type MemoryReminderRepository struct {
	mu        sync.Mutex
	reminders map[primitive.ObjectID]*models.Reminder
	seq       map[primitive.ObjectID]int64
	next      int64
	now       func() time.Time
}

// NewMemoryReminderRepository creates an empty in-memory store.
func NewMemoryReminderRepository() *MemoryReminderRepository {
	return &MemoryReminderRepository{
		reminders: make(map[primitive.ObjectID]*models.Reminder),
		seq:       make(map[primitive.ObjectID]int64),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryReminderRepository) CreateReminder(_ context.Context, ownerID, subjectID primitive.ObjectID, scheduledTime time.Time) (*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.cancelLocked(subjectID, models.CancelRescheduled, now)

	reminder := &models.Reminder{
		ID:            primitive.NewObjectID(),
		OwnerID:       ownerID,
		SubjectID:     subjectID,
		ScheduledTime: scheduledTime.UTC(),
		Status:        models.ReminderPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.reminders[reminder.ID] = reminder
	r.next++
	r.seq[reminder.ID] = r.next

	out := *reminder
	return &out, nil
}

func (r *MemoryReminderRepository) CancelPendingForSubject(_ context.Context, subjectID primitive.ObjectID, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelLocked(subjectID, reason, r.now()), nil
}

func (r *MemoryReminderRepository) cancelLocked(subjectID primitive.ObjectID, reason string, now time.Time) int64 {
	var n int64
	for _, rem := range r.reminders {
		if rem.SubjectID == subjectID && !rem.Status.Terminal() {
			rem.Status = models.ReminderCancelled
			rem.CancelReason = reason
			rem.UpdatedAt = now
			n++
		}
	}
	return n
}

func (r *MemoryReminderRepository) FetchDueBatch(_ context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	if limit <= 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var due []models.Reminder
	for _, rem := range r.reminders {
		if rem.Due(now) {
			due = append(due, *rem)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].ScheduledTime.Equal(due[j].ScheduledTime) {
			return due[i].ScheduledTime.Before(due[j].ScheduledTime)
		}
		return r.seq[due[i].ID] < r.seq[due[j].ID]
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *MemoryReminderRepository) MarkSent(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.reminders[id]
	if !ok || rem.Status.Terminal() {
		return false, nil
	}
	now := r.now()
	rem.Status = models.ReminderSent
	rem.SentAt = &now
	rem.UpdatedAt = now
	return true, nil
}

func (r *MemoryReminderRepository) CancelReminder(_ context.Context, id primitive.ObjectID, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.reminders[id]
	if !ok || rem.Status.Terminal() {
		return false, nil
	}
	rem.Status = models.ReminderCancelled
	rem.CancelReason = reason
	rem.UpdatedAt = r.now()
	return true, nil
}

func (r *MemoryReminderRepository) CountPending(_ context.Context, ownerID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, rem := range r.reminders {
		if rem.OwnerID == ownerID && rem.Status == models.ReminderPending {
			n++
		}
	}
	return n, nil
}

func (r *MemoryReminderRepository) GetReminderByID(_ context.Context, id primitive.ObjectID) (*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.reminders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rem
	return &out, nil
}

func (r *MemoryReminderRepository) ListBySubject(_ context.Context, subjectID primitive.ObjectID) ([]models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Reminder
	for _, rem := range r.reminders {
		if rem.SubjectID == subjectID {
			out = append(out, *rem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.seq[out[i].ID] > r.seq[out[j].ID] })
	return out, nil
}

func (r *MemoryReminderRepository) DeleteBySubject(_ context.Context, subjectID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, rem := range r.reminders {
		if rem.SubjectID == subjectID {
			delete(r.reminders, id)
			delete(r.seq, id)
			n++
		}
	}
	return n, nil
}
