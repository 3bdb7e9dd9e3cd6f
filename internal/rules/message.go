// Package rules holds the engine-agnostic lifecycle invariants. Both storage
// engines route every mutation through these checks so a message or request
// behaves identically no matter which engine owns it.
package rules

import (
	"time"

	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/pkg/errors"
)

// Call statuses the non-sender participant may set on a call message.
var terminalCallStatuses = map[string]bool{
	"answered":  true,
	"missed":    true,
	"cancelled": true,
	"ended":     true,
}

// ValidateEdit gates a content/metadata edit. Recall and delete are terminal
// for edits; only the sender may edit.
func ValidateEdit(m *models.Message, editorID string) error {
	if m.IsRecalled {
		return errors.InvalidState("Cannot edit a recalled message")
	}
	if m.IsDeleted {
		return errors.InvalidState("Cannot edit a deleted message")
	}
	if !m.SentBy(editorID) {
		return errors.Unauthorized("Only the sender can edit this message")
	}
	return nil
}

// ValidateCallStatusUpdate gates the one carve-out from strict sender match:
// a system message carrying call metadata may have its call_status moved into
// a terminal status by the other participant of the call. Membership in the
// conversation is checked by the caller.
func ValidateCallStatusUpdate(m *models.Message, editorID, newStatus string) error {
	if m.IsRecalled {
		return errors.InvalidState("Cannot edit a recalled message")
	}
	if m.IsDeleted {
		return errors.InvalidState("Cannot edit a deleted message")
	}
	if m.Type != models.MessageSystem {
		return errors.InvalidState("Call status updates apply to system messages only")
	}
	if m.Metadata == nil {
		return errors.InvalidState("Message carries no call metadata")
	}
	if _, ok := m.Metadata[models.MetaCallStatus]; !ok {
		return errors.InvalidState("Message carries no call metadata")
	}
	if !terminalCallStatuses[newStatus] {
		return errors.BadRequest("Unsupported call status transition")
	}
	return nil
}

// ApplyEdit mutates content in place. IsEdited is set on first mutation and
// stays set.
func ApplyEdit(m *models.Message, content string, now time.Time) {
	m.Content = content
	m.IsEdited = true
	m.EditedAt = &now
}

// ApplyCallStatus merges the status into existing metadata rather than
// replacing the payload wholesale.
func ApplyCallStatus(m *models.Message, status string, now time.Time) {
	if m.Metadata == nil {
		m.Metadata = map[string]interface{}{}
	}
	m.Metadata[models.MetaCallStatus] = status
	m.IsEdited = true
	m.EditedAt = &now
}

// ValidateDelete gates a sender-initiated delete.
func ValidateDelete(m *models.Message, requesterID string) error {
	if m.IsRecalled {
		return errors.InvalidState("Cannot delete a recalled message")
	}
	if m.IsDeleted {
		return errors.InvalidState("Message is already deleted")
	}
	if !m.SentBy(requesterID) {
		return errors.Unauthorized("Only the sender can delete this message")
	}
	return nil
}

// ValidateRecall gates recall: terminal, sender-only, blocked by delete.
// There is intentionally no time window on recall.
func ValidateRecall(m *models.Message, requesterID string) error {
	if m.IsRecalled {
		return errors.InvalidState("Message is already recalled")
	}
	if m.IsDeleted {
		return errors.InvalidState("Cannot recall a deleted message")
	}
	if !m.SentBy(requesterID) {
		return errors.Unauthorized("Only the sender can recall this message")
	}
	return nil
}

// ApplyRecall replaces content with the fixed placeholder and clears
// reactions. Recall is terminal.
func ApplyRecall(m *models.Message) {
	m.Content = models.RecalledPlaceholder
	m.Reactions = nil
	m.IsRecalled = true
}

// ValidateReact gates reaction mutations: recalled and deleted messages no
// longer accept reactions.
func ValidateReact(m *models.Message) error {
	if m.IsRecalled {
		return errors.InvalidState("Cannot react to a recalled message")
	}
	if m.IsDeleted {
		return errors.InvalidState("Cannot react to a deleted message")
	}
	return nil
}

// AddReaction adds userID under emoji, at most once per (emoji, user) pair.
// Returns the updated aggregate and whether anything changed.
func AddReaction(reactions []models.Reaction, emoji, userID string) ([]models.Reaction, bool) {
	for i, r := range reactions {
		if r.Emoji != emoji {
			continue
		}
		for _, id := range r.UserIDs {
			if id == userID {
				return reactions, false
			}
		}
		reactions[i].UserIDs = append(r.UserIDs, userID)
		return reactions, true
	}
	return append(reactions, models.Reaction{Emoji: emoji, UserIDs: []string{userID}}), true
}

// RemoveReaction removes userID from emoji. Removing the last user drops the
// emoji entry entirely. Removing a missing pair is a no-op, not an error.
func RemoveReaction(reactions []models.Reaction, emoji, userID string) ([]models.Reaction, bool) {
	for i, r := range reactions {
		if r.Emoji != emoji {
			continue
		}
		for j, id := range r.UserIDs {
			if id != userID {
				continue
			}
			r.UserIDs = append(r.UserIDs[:j], r.UserIDs[j+1:]...)
			if len(r.UserIDs) == 0 {
				return append(reactions[:i], reactions[i+1:]...), true
			}
			reactions[i] = r
			return reactions, true
		}
		return reactions, false
	}
	return reactions, false
}
