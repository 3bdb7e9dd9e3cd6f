package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationType string

const (
	ConversationDirect  ConversationType = "direct"
	ConversationGroup   ConversationType = "group"
	ConversationChannel ConversationType = "channel"
)

// Conversation is created once and never physically deleted by this core.
// LastMessageAt is the only field mutated after creation.
type Conversation struct {
	ID        string    `gorm:"primaryKey;type:text" bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`

	Type        ConversationType `gorm:"type:text;not null;index" bson:"type" json:"type"`
	Name        string           `gorm:"type:text" bson:"name,omitempty" json:"name"`
	Description string           `gorm:"type:text" bson:"description,omitempty" json:"description"`
	IsPrivate   bool             `gorm:"default:false" bson:"is_private" json:"isPrivate"`
	CreatedBy   string           `gorm:"index;type:text" bson:"created_by" json:"createdBy"`

	// DirectKey is the sorted participant pair for direct conversations,
	// unique-indexed so concurrent get-or-create converges to one row.
	// Legacy direct conversations may not carry it.
	DirectKey *string `gorm:"uniqueIndex;type:text" bson:"direct_key,omitempty" json:"-"`

	LastMessageAt time.Time `gorm:"index" bson:"last_message_at" json:"lastMessageAt"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// DirectKeyFor builds the deterministic key for a direct pair.
func DirectKeyFor(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// ConversationMembership is the caller's private relationship to a
// conversation. Every flag here is per-user: mutating one member's row never
// touches another member's view of the same conversation.
type ConversationMembership struct {
	ConversationID string `gorm:"primaryKey;type:text" bson:"conversation_id" json:"conversationId"`
	UserID         string `gorm:"primaryKey;type:text" bson:"user_id" json:"userId"`

	Role MemberRole `gorm:"type:text;default:'member'" bson:"role" json:"role"`

	IsPinned bool       `gorm:"default:false" bson:"is_pinned" json:"isPinned"`
	PinnedAt *time.Time `bson:"pinned_at,omitempty" json:"pinnedAt"`

	IsHidden bool       `gorm:"default:false" bson:"is_hidden" json:"isHidden"`
	HiddenAt *time.Time `bson:"hidden_at,omitempty" json:"hiddenAt"`

	// Per-user soft delete of the conversation from this member's list.
	// Cleared by restore; plain timestamp on purpose so restored rows stay
	// visible to queries.
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deletedAt"`

	LastReadAt *time.Time `bson:"last_read_at,omitempty" json:"lastReadAt"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// MembershipFlag names the per-user membership operations.
type MembershipFlag string

const (
	FlagPin     MembershipFlag = "pin"
	FlagUnpin   MembershipFlag = "unpin"
	FlagHide    MembershipFlag = "hide"
	FlagUnhide  MembershipFlag = "unhide"
	FlagDelete  MembershipFlag = "delete"
	FlagRestore MembershipFlag = "restore"
)

// ValidMembershipFlag checks a flag value from the API surface.
func ValidMembershipFlag(f MembershipFlag) bool {
	switch f {
	case FlagPin, FlagUnpin, FlagHide, FlagUnhide, FlagDelete, FlagRestore:
		return true
	}
	return false
}
