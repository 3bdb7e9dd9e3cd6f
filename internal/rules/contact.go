package rules

import (
	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/pkg/errors"
)

// ValidateAcceptRequest gates the accept transition. Only the recipient of a
// pending request may accept it; terminal requests fail cleanly.
func ValidateAcceptRequest(req *models.ContactRequest, callerID string) error {
	if req.Terminal() {
		return errors.AlreadyProcessed("Contact request already processed")
	}
	if req.RecipientID != callerID {
		return errors.Unauthorized("Only the recipient can accept this request")
	}
	return nil
}

// ValidateRejectRequest mirrors accept: recipient-only, terminal-safe.
func ValidateRejectRequest(req *models.ContactRequest, callerID string) error {
	if req.Terminal() {
		return errors.AlreadyProcessed("Contact request already processed")
	}
	if req.RecipientID != callerID {
		return errors.Unauthorized("Only the recipient can reject this request")
	}
	return nil
}

// ValidateCreateRequest rejects self-requests before any lookups run.
func ValidateCreateRequest(requesterID, recipientID string) error {
	if requesterID == recipientID {
		return errors.BadRequest("Cannot send a contact request to yourself")
	}
	return nil
}
