package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Interaction struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID       primitive.ObjectID `bson:"client_id" json:"client_id"`
	OwnerID        primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Type           string             `bson:"type" json:"type"` // e.g. "call", "meeting", "email"
	Note           string             `bson:"note" json:"note"`
	NextFollowUpAt *time.Time         `bson:"next_follow_up_at,omitempty" json:"next_follow_up_at,omitempty"` // reschedules the client's reminder when set
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}
