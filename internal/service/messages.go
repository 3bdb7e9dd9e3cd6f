package service

import (
	"context"
	"time"

	"github.com/crewline/crewline-backend/internal/gate"
	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/internal/rules"
	"github.com/crewline/crewline-backend/pkg/errors"
	"github.com/crewline/crewline-backend/pkg/utils"
	"gorm.io/datatypes"
)

type MessageService struct {
	resolver *gate.Resolver
	gate     *gate.Gate
}

func NewMessageService(resolver *gate.Resolver, g *gate.Gate) *MessageService {
	return &MessageService{resolver: resolver, gate: g}
}

// Send creates a message in a conversation the sender belongs to. In direct
// conversations the permission gate runs first, freshly on every attempt.
// The last_message_at bump is best-effort: a failed bump never rolls back a
// durable message.
func (s *MessageService) Send(ctx context.Context, conversationID, senderID, content string, msgType models.MessageType, metadata map[string]interface{}) (*models.Message, error) {
	st, _, err := s.resolver.StoreFor(ctx, senderID)
	if err != nil {
		return nil, err
	}

	if _, err := st.GetMembership(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	conv, err := st.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if conv.Type == models.ConversationDirect {
		members, err := st.ListMembers(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if m.UserID == senderID {
				continue
			}
			decision, err := s.gate.CheckSendPermission(ctx, senderID, m.UserID)
			if err != nil {
				return nil, err
			}
			if !decision.Allowed {
				return nil, errors.Unauthorized("Cannot message this user: " + decision.Reason)
			}
		}
	}

	now := time.Now()
	msg := &models.Message{
		ID:             utils.GenerateID(),
		ConversationID: conversationID,
		SenderID:       &senderID,
		Content:        content,
		Type:           msgType,
		Metadata:       datatypes.JSONMap(metadata),
		CreatedAt:      now,
	}
	if err := st.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	bumpLastMessage(ctx, st, conversationID, now)
	return msg, nil
}

// Edit replaces message content. Sender-only; recalled and deleted messages
// are immutable.
func (s *MessageService) Edit(ctx context.Context, messageID, editorID, newContent string) (*models.Message, error) {
	st, _, err := s.resolver.StoreFor(ctx, editorID)
	if err != nil {
		return nil, err
	}

	msg, err := st.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := rules.ValidateEdit(msg, editorID); err != nil {
		return nil, err
	}

	rules.ApplyEdit(msg, newContent, time.Now())
	if err := st.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// UpdateCallStatus is the carve-out from strict sender match: the other
// participant of a call may move call_status into a terminal state. The
// status merges into existing metadata rather than replacing it.
func (s *MessageService) UpdateCallStatus(ctx context.Context, messageID, editorID, status string) (*models.Message, error) {
	st, _, err := s.resolver.StoreFor(ctx, editorID)
	if err != nil {
		return nil, err
	}

	msg, err := st.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := rules.ValidateCallStatusUpdate(msg, editorID, status); err != nil {
		return nil, err
	}
	// The editor must be in the call's conversation
	if _, err := st.GetMembership(ctx, msg.ConversationID, editorID); err != nil {
		return nil, errors.Unauthorized("Only call participants can update call status")
	}

	rules.ApplyCallStatus(msg, status, time.Now())
	if err := st.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Delete marks the message deleted for everyone. Content is kept for audit
// but excluded from read models.
func (s *MessageService) Delete(ctx context.Context, messageID, requesterID string) error {
	st, _, err := s.resolver.StoreFor(ctx, requesterID)
	if err != nil {
		return err
	}

	msg, err := st.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if err := rules.ValidateDelete(msg, requesterID); err != nil {
		return err
	}

	msg.IsDeleted = true
	return st.SaveMessage(ctx, msg)
}

// Recall erases content with the fixed placeholder, clears reactions and is
// terminal. There is no time window on recall.
func (s *MessageService) Recall(ctx context.Context, messageID, requesterID string) (*models.Message, error) {
	st, _, err := s.resolver.StoreFor(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	msg, err := st.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := rules.ValidateRecall(msg, requesterID); err != nil {
		return nil, err
	}

	rules.ApplyRecall(msg)
	if err := st.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Hide suppresses the message in the caller's own view only.
func (s *MessageService) Hide(ctx context.Context, messageID, userID string) error {
	st, _, err := s.resolver.StoreFor(ctx, userID)
	if err != nil {
		return err
	}

	msg, err := st.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if _, err := st.GetMembership(ctx, msg.ConversationID, userID); err != nil {
		return err
	}

	return st.HideMessage(ctx, &models.HiddenMessage{
		UserID:         userID,
		MessageID:      messageID,
		ConversationID: msg.ConversationID,
		CreatedAt:      time.Now(),
	})
}

func (s *MessageService) Unhide(ctx context.Context, messageID, userID string) error {
	st, _, err := s.resolver.StoreFor(ctx, userID)
	if err != nil {
		return err
	}
	return st.UnhideMessage(ctx, userID, messageID)
}

// AddReaction adds (emoji, user) to the aggregate, at most once per pair.
// The message is re-fetched immediately before the write; concurrent
// reactions on the document engine remain last-writer-wins on the aggregate.
func (s *MessageService) AddReaction(ctx context.Context, messageID, userID, emoji string) (*models.Message, error) {
	return s.mutateReactions(ctx, messageID, userID, func(msg *models.Message) bool {
		reactions, changed := rules.AddReaction(msg.Reactions, emoji, userID)
		msg.Reactions = reactions
		return changed
	})
}

// RemoveReaction removes the pair; removing a missing pair is a no-op.
func (s *MessageService) RemoveReaction(ctx context.Context, messageID, userID, emoji string) (*models.Message, error) {
	return s.mutateReactions(ctx, messageID, userID, func(msg *models.Message) bool {
		reactions, changed := rules.RemoveReaction(msg.Reactions, emoji, userID)
		msg.Reactions = reactions
		return changed
	})
}

func (s *MessageService) mutateReactions(ctx context.Context, messageID, userID string, mutate func(*models.Message) bool) (*models.Message, error) {
	st, _, err := s.resolver.StoreFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Fresh read right before the write
	msg, err := st.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := rules.ValidateReact(msg); err != nil {
		return nil, err
	}
	if _, err := st.GetMembership(ctx, msg.ConversationID, userID); err != nil {
		return nil, err
	}

	if !mutate(msg) {
		return msg, nil
	}
	if err := st.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
