package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageVideo  MessageType = "video"
	MessageFile   MessageType = "file"
	MessageAudio  MessageType = "audio"
	MessageCode   MessageType = "code"
	MessageSystem MessageType = "system"
)

// RecalledPlaceholder replaces the content of a recalled message.
const RecalledPlaceholder = "[message recalled]"

// WelcomeMessage is the system message dropped into a freshly bootstrapped
// direct conversation when a contact request is accepted.
const WelcomeMessage = "You are now contacts. Say hello!"

// Metadata keys for call messages
const (
	MetaCallStatus = "call_status"
	MetaCodeLang   = "language"
)

// Reaction aggregates the users who reacted with one emoji.
type Reaction struct {
	Emoji   string   `json:"emoji" bson:"emoji"`
	UserIDs []string `json:"userIds" bson:"user_ids"`
}

// Message carries its full lifecycle state. Recall and delete are flags, not
// row removal: content survives for audit but is filtered at the read model.
type Message struct {
	ID        string    `gorm:"primaryKey;type:text" bson:"_id" json:"id"`
	CreatedAt time.Time `gorm:"index" bson:"created_at" json:"createdAt"`

	ConversationID string `gorm:"index;type:text;not null" bson:"conversation_id" json:"conversationId"`

	// Nil for system messages
	SenderID *string `gorm:"index;type:text" bson:"sender_id,omitempty" json:"senderId"`

	Content string      `gorm:"type:text" bson:"content" json:"content"`
	Type    MessageType `gorm:"type:text;default:'text';not null" bson:"type" json:"type"`

	// Type-specific payload (call status, code language, attachment info)
	Metadata datatypes.JSONMap `gorm:"type:jsonb" bson:"metadata,omitempty" json:"metadata"`

	Reactions []Reaction `gorm:"serializer:json;type:jsonb" bson:"reactions,omitempty" json:"reactions"`

	IsEdited   bool       `gorm:"default:false" bson:"is_edited" json:"isEdited"`
	EditedAt   *time.Time `bson:"edited_at,omitempty" json:"editedAt"`
	IsDeleted  bool       `gorm:"default:false" bson:"is_deleted" json:"isDeleted"`
	IsRecalled bool       `gorm:"default:false" bson:"is_recalled" json:"isRecalled"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// SentBy reports whether userID is the message sender.
func (m *Message) SentBy(userID string) bool {
	return m.SenderID != nil && *m.SenderID == userID
}

// HiddenMessage is a per-viewer overlay: suppress one message in one user's
// view. Independent of the message's own deletion state and reversible.
type HiddenMessage struct {
	UserID         string    `gorm:"primaryKey;type:text" bson:"user_id" json:"userId"`
	MessageID      string    `gorm:"primaryKey;type:text" bson:"message_id" json:"messageId"`
	ConversationID string    `gorm:"index;type:text" bson:"conversation_id" json:"conversationId"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}
