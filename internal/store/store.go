// Package store defines the capability contract both storage engines
// implement. The relational engine backs it with transactions; the document
// engine backs it with single-document updates and best-effort multi-step
// writes. All lifecycle invariants live above this interface, in
// internal/rules and internal/service, so the two engines cannot drift apart.
package store

import (
	"context"
	"time"

	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/internal/routing"
)

// UserStore reads user records. This core never creates users and only
// mutates the privacy flag.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	SetAllowNonFriendMessages(ctx context.Context, userID string, allow bool) error
}

type ConversationStore interface {
	// CreateConversation persists the conversation and its initial
	// memberships. Atomic on the relational engine; sequential best-effort
	// on the document engine.
	CreateConversation(ctx context.Context, conv *models.Conversation, memberships []models.ConversationMembership) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)

	// FindDirectConversation locates an existing direct conversation whose
	// only two members are userA and userB. NotFound when none exists.
	FindDirectConversation(ctx context.Context, userA, userB string) (*models.Conversation, error)

	GetMembership(ctx context.Context, conversationID, userID string) (*models.ConversationMembership, error)
	SaveMembership(ctx context.Context, ms *models.ConversationMembership) error
	AddMembership(ctx context.Context, ms *models.ConversationMembership) error
	RemoveMembership(ctx context.Context, conversationID, userID string) error
	ListMembers(ctx context.Context, conversationID string) ([]models.ConversationMembership, error)
	ListUserMemberships(ctx context.Context, userID string) ([]models.ConversationMembership, error)

	// TouchLastMessage bumps last_message_at. Callers treat failure as
	// best-effort: message durability outranks timestamp accuracy.
	TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error
}

type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	// SaveMessage persists the full message state after a rules-validated
	// mutation (edit, delete, recall, reaction aggregate).
	SaveMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)

	CountUnread(ctx context.Context, conversationID, userID string, since *time.Time) (int64, error)

	HideMessage(ctx context.Context, hidden *models.HiddenMessage) error
	UnhideMessage(ctx context.Context, userID, messageID string) error
	ListHiddenMessageIDs(ctx context.Context, userID, conversationID string) ([]string, error)
}

type ContactStore interface {
	GetContactRequest(ctx context.Context, id string) (*models.ContactRequest, error)
	FindPendingRequest(ctx context.Context, requesterID, recipientID string) (*models.ContactRequest, error)
	CreateContactRequest(ctx context.Context, req *models.ContactRequest) error
	SetContactRequestStatus(ctx context.Context, id string, status models.ContactRequestStatus) error
	ListIncomingRequests(ctx context.Context, recipientID string) ([]models.ContactRequest, error)

	// UpsertContact creates the directed edge if absent; an existing edge is
	// success, not an error.
	UpsertContact(ctx context.Context, userID, contactUserID string) error
	GetContact(ctx context.Context, userID, contactUserID string) (*models.Contact, error)
	SaveContact(ctx context.Context, contact *models.Contact) error
	DeleteContact(ctx context.Context, userID, contactUserID string) error

	// BlockExists reports a block edge in either direction.
	BlockExists(ctx context.Context, userA, userB string) (bool, error)
	// ContactsMutual reports both directed edges present and unblocked.
	ContactsMutual(ctx context.Context, userA, userB string) (bool, error)
	// HasAcceptedRequest reports an accepted request in either direction.
	HasAcceptedRequest(ctx context.Context, userA, userB string) (bool, error)
}

// Store is the full per-engine capability set.
type Store interface {
	UserStore
	ConversationStore
	MessageStore
	ContactStore
	Engine() routing.Engine
}

// Registry holds the engine instances constructed at startup.
type Registry struct {
	stores map[routing.Engine]Store
}

func NewRegistry(stores ...Store) *Registry {
	r := &Registry{stores: map[routing.Engine]Store{}}
	for _, s := range stores {
		r.stores[s.Engine()] = s
	}
	return r
}

// For returns the store for an engine, or false when the engine is not
// configured in this process.
func (r *Registry) For(engine routing.Engine) (Store, bool) {
	s, ok := r.stores[engine]
	return s, ok
}
