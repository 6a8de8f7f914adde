package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Client is a CRM contact owned by a sales user. Reminders are scheduled
// against clients through FollowUpAt.
type Client struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID    primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Name       string             `bson:"name" json:"name"`
	Company    string             `bson:"company,omitempty" json:"company,omitempty"`
	Email      string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	FollowUpAt *time.Time         `bson:"follow_up_at" json:"follow_up_at"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// DisplayName is the label used in notifications.
func (c *Client) DisplayName() string {
	if c.Company != "" && c.Name != "" {
		return c.Name + " (" + c.Company + ")"
	}
	if c.Name == "" {
		return c.Company
	}
	return c.Name
}
