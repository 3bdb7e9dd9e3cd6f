package service

import (
	"context"
	"time"

	"github.com/crewline/crewline-backend/internal/gate"
	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/internal/rules"
	"github.com/crewline/crewline-backend/pkg/errors"
	"github.com/crewline/crewline-backend/pkg/logger"
	"github.com/crewline/crewline-backend/pkg/utils"
)

type ContactService struct {
	resolver      *gate.Resolver
	conversations *ConversationService
}

func NewContactService(resolver *gate.Resolver, conversations *ConversationService) *ContactService {
	return &ContactService{resolver: resolver, conversations: conversations}
}

// CreateRequest opens a pending contact request. Blocked pairs, existing
// contacts and duplicate pending requests are refused up front.
func (s *ContactService) CreateRequest(ctx context.Context, requesterID, recipientID string) (*models.ContactRequest, error) {
	if err := rules.ValidateCreateRequest(requesterID, recipientID); err != nil {
		return nil, err
	}

	st, _, _, err := s.resolver.PairStore(ctx, requesterID, recipientID)
	if err != nil {
		return nil, err
	}

	blocked, err := st.BlockExists(ctx, requesterID, recipientID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, errors.Unauthorized("Cannot send a contact request to this user")
	}

	mutual, err := st.ContactsMutual(ctx, requesterID, recipientID)
	if err != nil {
		return nil, err
	}
	if mutual {
		return nil, errors.InvalidState("Users are already contacts")
	}

	if existing, err := st.FindPendingRequest(ctx, requesterID, recipientID); err == nil {
		return existing, nil
	} else if errors.KindOf(err) != errors.KindNotFound {
		return nil, err
	}

	now := time.Now()
	req := &models.ContactRequest{
		ID:          utils.GenerateID(),
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      models.ContactRequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := st.CreateContactRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Accept runs the three-step workflow:
//  1. create both directed contact edges (idempotent upserts)
//  2. best-effort bootstrap a direct conversation with a welcome message
//  3. flip the request to accepted
//
// Step order is the correctness core: the request is never marked accepted
// before the edges exist. If step 1 fails the request stays pending and the
// whole accept retries; if step 3 fails the caller is told contacts exist but
// status is stale, and a retried accept resumes at the idempotent upserts.
func (s *ContactService) Accept(ctx context.Context, requestID, callerID string) (*models.ContactRequest, error) {
	st, _, err := s.resolver.StoreFor(ctx, callerID)
	if err != nil {
		return nil, err
	}

	req, err := st.GetContactRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := rules.ValidateAcceptRequest(req, callerID); err != nil {
		return nil, err
	}
	// Both parties must be on the caller's engine
	if _, _, _, err := s.resolver.PairStore(ctx, req.RequesterID, req.RecipientID); err != nil {
		return nil, err
	}

	// Step 1: both directed edges. Existing edges are success.
	if err := st.UpsertContact(ctx, req.RequesterID, req.RecipientID); err != nil {
		return nil, errors.PartialFailure("contacts", "Failed to create contact edges; request remains pending")
	}
	if err := st.UpsertContact(ctx, req.RecipientID, req.RequesterID); err != nil {
		return nil, errors.PartialFailure("contacts", "Failed to create contact edges; request remains pending")
	}

	// Step 2: chat bootstrap is a convenience, not a correctness requirement
	s.bootstrapDirectConversation(ctx, req)

	// Step 3: only now flip the status
	if err := st.SetContactRequestStatus(ctx, requestID, models.ContactRequestAccepted); err != nil {
		return nil, errors.PartialFailure("status", "Contacts created but request status update failed; retry accept")
	}

	req.Status = models.ContactRequestAccepted
	return req, nil
}

func (s *ContactService) bootstrapDirectConversation(ctx context.Context, req *models.ContactRequest) {
	conv, created, err := s.conversations.GetOrCreateDirect(ctx, req.RecipientID, req.RequesterID)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("requestId", req.ID).
			Msg("Contact accept: direct conversation bootstrap failed")
		return
	}
	if !created {
		return
	}

	st, _, err := s.resolver.StoreFor(ctx, req.RecipientID)
	if err != nil {
		return
	}
	welcome := &models.Message{
		ID:             utils.GenerateID(),
		ConversationID: conv.ID,
		Content:        models.WelcomeMessage,
		Type:           models.MessageSystem,
		CreatedAt:      time.Now(),
	}
	if err := st.CreateMessage(ctx, welcome); err != nil {
		logger.Warn().
			Err(err).
			Str("conversationId", conv.ID).
			Msg("Contact accept: welcome message creation failed")
	}
}

// Reject is terminal and has no side effects beyond the status flip.
func (s *ContactService) Reject(ctx context.Context, requestID, callerID string) (*models.ContactRequest, error) {
	st, _, err := s.resolver.StoreFor(ctx, callerID)
	if err != nil {
		return nil, err
	}

	req, err := st.GetContactRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := rules.ValidateRejectRequest(req, callerID); err != nil {
		return nil, err
	}

	if err := st.SetContactRequestStatus(ctx, requestID, models.ContactRequestRejected); err != nil {
		return nil, err
	}
	req.Status = models.ContactRequestRejected
	return req, nil
}

// ListIncoming returns the caller's pending requests.
func (s *ContactService) ListIncoming(ctx context.Context, userID string) ([]models.ContactRequest, error) {
	st, _, err := s.resolver.StoreFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return st.ListIncomingRequests(ctx, userID)
}

// Block sets the block flag on the caller's directed edge, creating the edge
// if the target was never a contact.
func (s *ContactService) Block(ctx context.Context, userID, targetID string) error {
	return s.setBlocked(ctx, userID, targetID, true)
}

func (s *ContactService) Unblock(ctx context.Context, userID, targetID string) error {
	return s.setBlocked(ctx, userID, targetID, false)
}

func (s *ContactService) setBlocked(ctx context.Context, userID, targetID string, blocked bool) error {
	if userID == targetID {
		return errors.BadRequest("Cannot block yourself")
	}
	st, _, _, err := s.resolver.PairStore(ctx, userID, targetID)
	if err != nil {
		return err
	}

	contact, err := st.GetContact(ctx, userID, targetID)
	if errors.KindOf(err) == errors.KindNotFound {
		if !blocked {
			// Unblocking a non-edge is a no-op
			return nil
		}
		if err := st.UpsertContact(ctx, userID, targetID); err != nil {
			return err
		}
		if contact, err = st.GetContact(ctx, userID, targetID); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	contact.IsBlocked = blocked
	return st.SaveContact(ctx, contact)
}

// SetFavorite toggles the favorite flag on the caller's directed edge.
func (s *ContactService) SetFavorite(ctx context.Context, userID, targetID string, favorite bool) error {
	st, _, _, err := s.resolver.PairStore(ctx, userID, targetID)
	if err != nil {
		return err
	}

	contact, err := st.GetContact(ctx, userID, targetID)
	if err != nil {
		return err
	}
	contact.IsFavorite = favorite
	return st.SaveContact(ctx, contact)
}
