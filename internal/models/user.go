package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User is owned by the auth system. This core reads it (region routing,
// privacy flag) and only ever mutates AllowNonFriendMessages.
type User struct {
	ID        string    `gorm:"primaryKey;type:text" bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`

	Username string `gorm:"uniqueIndex" bson:"username" json:"username"`
	Name     string `bson:"name" json:"name"`
	Image    string `bson:"image,omitempty" json:"image"`

	// Region decides which engine owns the user's data. Legacy records may
	// not carry it; the selector falls back to the configured engine.
	Region string `gorm:"index;type:text" bson:"region,omitempty" json:"region"`

	Status UserStatus `gorm:"type:text;default:'active'" bson:"status" json:"status"`

	// Privacy: whether users outside the contact graph may message this user
	AllowNonFriendMessages bool `gorm:"default:true" bson:"allow_non_friend_messages" json:"allowNonFriendMessages"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// IsLegacy reports a record predating region routing.
func (u *User) IsLegacy() bool {
	return u.Region == ""
}
