// Package service implements the operation contracts over the store
// interface. Every mutation is validated by internal/rules before it touches
// an engine, so both engines enforce identical semantics.
package service

import (
	"context"
	"time"

	"github.com/crewline/crewline-backend/internal/gate"
	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/internal/rules"
	"github.com/crewline/crewline-backend/internal/store"
	"github.com/crewline/crewline-backend/pkg/errors"
	"github.com/crewline/crewline-backend/pkg/logger"
	"github.com/crewline/crewline-backend/pkg/utils"
)

type ConversationService struct {
	resolver *gate.Resolver
}

func NewConversationService(resolver *gate.Resolver) *ConversationService {
	return &ConversationService{resolver: resolver}
}

// GetOrCreateDirect finds the direct conversation between caller and peer,
// creating it if absent. Idempotent: the lookup runs before any create, and
// the unique direct_key absorbs the remaining create race by converging both
// writers onto one row. Reports whether this call created the conversation.
func (s *ConversationService) GetOrCreateDirect(ctx context.Context, callerID, peerID string) (*models.Conversation, bool, error) {
	if callerID == peerID {
		return nil, false, errors.BadRequest("Cannot open a direct conversation with yourself")
	}

	st, _, _, err := s.resolver.PairStore(ctx, callerID, peerID)
	if err != nil {
		return nil, false, err
	}

	conv, err := st.FindDirectConversation(ctx, callerID, peerID)
	if err == nil {
		if err := ensureDirectMemberships(ctx, st, conv.ID, callerID, peerID); err != nil {
			return nil, false, err
		}
		return conv, false, nil
	}
	if errors.KindOf(err) != errors.KindNotFound {
		return nil, false, err
	}

	now := time.Now()
	key := models.DirectKeyFor(callerID, peerID)
	conv = &models.Conversation{
		ID:            utils.GenerateID(),
		Type:          models.ConversationDirect,
		IsPrivate:     true,
		CreatedBy:     callerID,
		DirectKey:     &key,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	memberships := []models.ConversationMembership{
		{UserID: callerID, Role: models.RoleMember, CreatedAt: now, UpdatedAt: now},
		{UserID: peerID, Role: models.RoleMember, CreatedAt: now, UpdatedAt: now},
	}

	if err := st.CreateConversation(ctx, conv, memberships); err != nil {
		// Lost the create race: the unique direct_key rejected our row, so
		// the winner's conversation must exist now.
		existing, findErr := st.FindDirectConversation(ctx, callerID, peerID)
		if findErr == nil {
			if err := ensureDirectMemberships(ctx, st, existing.ID, callerID, peerID); err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return conv, true, nil
}

// ensureDirectMemberships repairs the roster of a found direct conversation.
// The document engine persists the conversation before its membership rows
// without a transaction, so a lookup can land on a conversation whose roster
// is short. Missing rows are re-created with idempotent upserts keyed by
// (conversation, user); existing rows, including soft-deleted ones, are left
// alone.
func ensureDirectMemberships(ctx context.Context, st store.Store, conversationID string, userIDs ...string) error {
	for _, id := range userIDs {
		_, err := st.GetMembership(ctx, conversationID, id)
		if err == nil {
			continue
		}
		if errors.KindOf(err) != errors.KindNotFound {
			return err
		}
		now := time.Now()
		ms := &models.ConversationMembership{
			ConversationID: conversationID,
			UserID:         id,
			Role:           models.RoleMember,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := st.AddMembership(ctx, ms); err != nil {
			return err
		}
	}
	return nil
}

// CreateGroup creates a group or channel conversation with the caller as
// owner.
func (s *ConversationService) CreateGroup(ctx context.Context, callerID string, convType models.ConversationType, name, description string, isPrivate bool, memberIDs []string) (*models.Conversation, error) {
	if convType != models.ConversationGroup && convType != models.ConversationChannel {
		return nil, errors.BadRequest("Conversation type must be group or channel")
	}
	if name == "" {
		return nil, errors.BadRequest("Conversation name is required")
	}

	st, _, err := s.resolver.StoreFor(ctx, callerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	conv := &models.Conversation{
		ID:            utils.GenerateID(),
		Type:          convType,
		Name:          name,
		Description:   description,
		IsPrivate:     isPrivate,
		CreatedBy:     callerID,
		CreatedAt:     now,
		LastMessageAt: now,
	}

	memberships := []models.ConversationMembership{
		{UserID: callerID, Role: models.RoleOwner, CreatedAt: now, UpdatedAt: now},
	}
	for _, id := range memberIDs {
		if id == callerID {
			continue
		}
		// Members must live on the caller's engine
		if _, _, _, err := s.resolver.PairStore(ctx, callerID, id); err != nil {
			return nil, err
		}
		memberships = append(memberships, models.ConversationMembership{
			UserID: id, Role: models.RoleMember, CreatedAt: now, UpdatedAt: now,
		})
	}

	if err := st.CreateConversation(ctx, conv, memberships); err != nil {
		return nil, err
	}
	return conv, nil
}

// SetMembershipFlag applies a per-user flag to the caller's own membership
// row. Fails with NotFound when no membership exists; never creates one.
func (s *ConversationService) SetMembershipFlag(ctx context.Context, conversationID, userID string, flag models.MembershipFlag) (*models.ConversationMembership, error) {
	st, _, err := s.resolver.StoreFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	ms, err := st.GetMembership(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := rules.ApplyMembershipFlag(ms, flag, now); err != nil {
		return nil, err
	}
	ms.UpdatedAt = now

	if err := st.SaveMembership(ctx, ms); err != nil {
		return nil, err
	}
	return ms, nil
}

// MarkRead stamps last_read_at with server time. Client-supplied timestamps
// are rejected by construction to avoid clock-skew exploits.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID, userID string) (time.Time, error) {
	st, _, err := s.resolver.StoreFor(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}

	ms, err := st.GetMembership(ctx, conversationID, userID)
	if err != nil {
		return time.Time{}, err
	}

	now := time.Now()
	ms.LastReadAt = &now
	ms.UpdatedAt = now
	if err := st.SaveMembership(ctx, ms); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// Join adds the caller to a public group or channel.
func (s *ConversationService) Join(ctx context.Context, conversationID, userID string) (*models.ConversationMembership, error) {
	st, _, err := s.resolver.StoreFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	conv, err := st.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Type == models.ConversationDirect {
		return nil, errors.InvalidState("Cannot join a direct conversation")
	}
	if conv.IsPrivate {
		return nil, errors.Unauthorized("Conversation is private")
	}

	if existing, err := st.GetMembership(ctx, conversationID, userID); err == nil {
		return existing, nil
	} else if errors.KindOf(err) != errors.KindNotFound {
		return nil, err
	}

	now := time.Now()
	ms := &models.ConversationMembership{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           models.RoleMember,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := st.AddMembership(ctx, ms); err != nil {
		return nil, err
	}
	return ms, nil
}

// Leave removes the caller's membership. Owners hand off before leaving.
func (s *ConversationService) Leave(ctx context.Context, conversationID, userID string) error {
	st, _, err := s.resolver.StoreFor(ctx, userID)
	if err != nil {
		return err
	}

	ms, err := st.GetMembership(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if ms.Role == models.RoleOwner {
		return errors.InvalidState("Owner must transfer ownership before leaving")
	}
	return st.RemoveMembership(ctx, conversationID, userID)
}

// bumpLastMessage is the best-effort last-activity update shared with the
// message path. Failures are logged, never propagated.
func bumpLastMessage(ctx context.Context, st interface {
	TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error
}, conversationID string, at time.Time) {
	if err := st.TouchLastMessage(ctx, conversationID, at); err != nil {
		logger.Warn().
			Err(err).
			Str("conversationId", conversationID).
			Msg("Failed to bump last_message_at, message already durable")
	}
}
