package postgres

import (
	"context"
	"time"

	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation, memberships []models.ConversationMembership) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for i := range memberships {
			memberships[i].ConversationID = conv.ID
		}
		if len(memberships) > 0 {
			if err := tx.Create(&memberships).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "Conversation not found")
	}
	return &conv, nil
}

func (s *Store) FindDirectConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	key := models.DirectKeyFor(userA, userB)

	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Where("type = ? AND direct_key = ?", models.ConversationDirect, key).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	// Fallback for legacy direct conversations created before direct_key:
	// a direct conversation whose members are exactly this pair.
	pairSub := s.db.Model(&models.ConversationMembership{}).
		Select("conversation_id").
		Where("user_id IN ?", []string{userA, userB}).
		Group("conversation_id").
		Having("COUNT(DISTINCT user_id) = 2")
	rosterSub := s.db.Model(&models.ConversationMembership{}).
		Select("conversation_id").
		Group("conversation_id").
		Having("COUNT(*) = 2")

	err = s.db.WithContext(ctx).
		Where("type = ? AND direct_key IS NULL", models.ConversationDirect).
		Where("id IN (?)", pairSub).
		Where("id IN (?)", rosterSub).
		First(&conv).Error
	if err != nil {
		return nil, wrapNotFound(err, "Direct conversation not found")
	}
	return &conv, nil
}

func (s *Store) GetMembership(ctx context.Context, conversationID, userID string) (*models.ConversationMembership, error) {
	var ms models.ConversationMembership
	err := s.db.WithContext(ctx).
		First(&ms, "conversation_id = ? AND user_id = ?", conversationID, userID).Error
	if err != nil {
		return nil, wrapNotFound(err, "Membership not found")
	}
	return &ms, nil
}

func (s *Store) SaveMembership(ctx context.Context, ms *models.ConversationMembership) error {
	// Save by composite key: updates the single row owned by this user
	return s.db.WithContext(ctx).Save(ms).Error
}

func (s *Store) AddMembership(ctx context.Context, ms *models.ConversationMembership) error {
	// Keyed by the composite pair: an existing row is success
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ms).Error
}

func (s *Store) RemoveMembership(ctx context.Context, conversationID, userID string) error {
	res := s.db.WithContext(ctx).
		Delete(&models.ConversationMembership{}, "conversation_id = ? AND user_id = ?", conversationID, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.NotFound("Membership not found")
	}
	return nil
}

func (s *Store) ListMembers(ctx context.Context, conversationID string) ([]models.ConversationMembership, error) {
	var members []models.ConversationMembership
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Find(&members).Error
	return members, err
}

func (s *Store) ListUserMemberships(ctx context.Context, userID string) ([]models.ConversationMembership, error) {
	var memberships []models.ConversationMembership
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&memberships).Error
	return memberships, err
}

func (s *Store) TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_message_at", at).Error
}
