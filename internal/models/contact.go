package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContactRequestStatus string

const (
	ContactRequestPending  ContactRequestStatus = "pending"
	ContactRequestAccepted ContactRequestStatus = "accepted"
	ContactRequestRejected ContactRequestStatus = "rejected"
)

// ContactRequest is terminal once accepted or rejected. Re-acting on a
// terminal request must fail cleanly, never duplicate side effects.
type ContactRequest struct {
	ID        string    `gorm:"primaryKey;type:text" bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`

	RequesterID string `gorm:"index;type:text;not null" bson:"requester_id" json:"requesterId"`
	RecipientID string `gorm:"index;type:text;not null" bson:"recipient_id" json:"recipientId"`

	Status ContactRequestStatus `gorm:"type:text;default:'pending'" bson:"status" json:"status"`
}

func (cr *ContactRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if cr.ID == "" {
		cr.ID = uuid.New().String()
	}
	return
}

// Terminal reports whether the request can still be acted on.
func (cr *ContactRequest) Terminal() bool {
	return cr.Status != ContactRequestPending
}

// Contact is a directed edge. Two users are contacts only when both
// directions exist. Blocking lives on the blocker's edge.
type Contact struct {
	ID        string    `gorm:"primaryKey;type:text" bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`

	UserID        string `gorm:"uniqueIndex:idx_contact_edge;type:text;not null" bson:"user_id" json:"userId"`
	ContactUserID string `gorm:"uniqueIndex:idx_contact_edge;type:text;not null" bson:"contact_user_id" json:"contactUserId"`

	IsFavorite bool `gorm:"default:false" bson:"is_favorite" json:"isFavorite"`
	IsBlocked  bool `gorm:"default:false" bson:"is_blocked" json:"isBlocked"`
}

func (c *Contact) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}
