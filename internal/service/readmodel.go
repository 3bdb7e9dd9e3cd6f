package service

import (
	"context"
	"sort"

	"github.com/crewline/crewline-backend/internal/gate"
	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/pkg/logger"
)

// ConversationView is one entry in a user's conversation list: the
// conversation joined with the caller's own membership row, the last message
// still visible to the caller, and the unread count.
type ConversationView struct {
	Conversation models.Conversation           `json:"conversation"`
	Membership   models.ConversationMembership `json:"membership"`
	LastMessage  *models.Message               `json:"lastMessage,omitempty"`
	UnreadCount  int64                         `json:"unreadCount"`
}

// ReadModel assembles per-caller views. It never mutates anything.
type ReadModel struct {
	resolver *gate.Resolver
}

func NewReadModel(resolver *gate.Resolver) *ReadModel {
	return &ReadModel{resolver: resolver}
}

// ListConversations merges conversations with the caller's membership flags
// and hidden-message overlay. Soft-deleted memberships are excluded; sorting
// is pinned first, then most recent activity.
func (r *ReadModel) ListConversations(ctx context.Context, userID string) ([]ConversationView, error) {
	st, _, err := r.resolver.StoreFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	memberships, err := st.ListUserMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]ConversationView, 0, len(memberships))
	for _, ms := range memberships {
		if ms.DeletedAt != nil {
			continue
		}

		conv, err := st.GetConversation(ctx, ms.ConversationID)
		if err != nil {
			// Membership pointing at a missing conversation is a data
			// quality problem, not a reason to fail the whole list
			logger.Warn().
				Err(err).
				Str("conversationId", ms.ConversationID).
				Str("userId", userID).
				Msg("Skipping membership with unresolvable conversation")
			continue
		}

		last, err := r.lastVisibleMessage(ctx, st, conv.ID, userID)
		if err != nil {
			return nil, err
		}

		unread, err := st.CountUnread(ctx, conv.ID, userID, ms.LastReadAt)
		if err != nil {
			return nil, err
		}

		views = append(views, ConversationView{
			Conversation: *conv,
			Membership:   ms,
			LastMessage:  last,
			UnreadCount:  unread,
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Membership.IsPinned != views[j].Membership.IsPinned {
			return views[i].Membership.IsPinned
		}
		return views[i].Conversation.LastMessageAt.After(views[j].Conversation.LastMessageAt)
	})
	return views, nil
}

// ListMessages returns the conversation's messages as seen by one viewer:
// deleted messages and the viewer's own hidden overlay are excluded, other
// viewers' overlays are not. Recalled messages stay listed with placeholder
// content.
func (r *ReadModel) ListMessages(ctx context.Context, conversationID, userID string, limit int) ([]models.Message, error) {
	st, _, err := r.resolver.StoreFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := st.GetMembership(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	messages, err := st.ListMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	hidden, err := r.hiddenSet(ctx, st, conversationID, userID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.IsDeleted || hidden[msg.ID] {
			continue
		}
		visible = append(visible, msg)
	}
	return visible, nil
}

func (r *ReadModel) lastVisibleMessage(ctx context.Context, st storeReader, conversationID, userID string) (*models.Message, error) {
	messages, err := st.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return nil, err
	}
	hidden, err := r.hiddenSet(ctx, st, conversationID, userID)
	if err != nil {
		return nil, err
	}

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsDeleted || hidden[messages[i].ID] {
			continue
		}
		msg := messages[i]
		return &msg, nil
	}
	return nil, nil
}

func (r *ReadModel) hiddenSet(ctx context.Context, st storeReader, conversationID, userID string) (map[string]bool, error) {
	ids, err := st.ListHiddenMessageIDs(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// storeReader is the slice of the store the read model touches.
type storeReader interface {
	ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	ListHiddenMessageIDs(ctx context.Context, userID, conversationID string) ([]string, error)
}
