package rules

import (
	"time"

	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/pkg/errors"
)

// ApplyMembershipFlag mutates a single membership row. The row belongs to one
// user; nothing here can touch other members of the conversation.
func ApplyMembershipFlag(ms *models.ConversationMembership, flag models.MembershipFlag, now time.Time) error {
	switch flag {
	case models.FlagPin:
		ms.IsPinned = true
		ms.PinnedAt = &now
	case models.FlagUnpin:
		ms.IsPinned = false
		ms.PinnedAt = nil
	case models.FlagHide:
		ms.IsHidden = true
		ms.HiddenAt = &now
	case models.FlagUnhide:
		ms.IsHidden = false
		ms.HiddenAt = nil
	case models.FlagDelete:
		ms.DeletedAt = &now
	case models.FlagRestore:
		ms.DeletedAt = nil
	default:
		return errors.BadRequest("Unknown membership flag")
	}
	return nil
}
