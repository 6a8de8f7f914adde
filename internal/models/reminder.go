package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderStatus is the delivery state of a follow-up reminder.
// pending -> sent and pending -> cancelled are the only valid transitions.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderSent      ReminderStatus = "sent"
	ReminderCancelled ReminderStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s ReminderStatus) Terminal() bool {
	return s == ReminderSent || s == ReminderCancelled
}

// Reasons recorded on a cancelled reminder.
const (
	CancelRescheduled    = "rescheduled"
	CancelCleared        = "cleared"
	CancelSubjectDeleted = "subject_deleted"
	CancelUnresolvable   = "unresolvable"
)

// Reminder is a scheduled follow-up notification for one client (the subject)
// addressed to one user (the owner).
type Reminder struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID       primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	SubjectID     primitive.ObjectID `bson:"subject_id" json:"subject_id"`
	ScheduledTime time.Time          `bson:"scheduled_time" json:"scheduled_time"`
	Status        ReminderStatus     `bson:"status" json:"status"`
	CancelReason  string             `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
	SentAt        *time.Time         `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// Due reports whether the reminder is eligible for delivery at now.
func (r *Reminder) Due(now time.Time) bool {
	return r.Status == ReminderPending && !r.ScheduledTime.After(now)
}
