package postgres

import (
	"context"
	"time"

	"github.com/crewline/crewline-backend/internal/models"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *Store) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "Message not found")
	}
	return &msg, nil
}

func (s *Store) SaveMessage(ctx context.Context, msg *models.Message) error {
	return s.db.WithContext(ctx).Save(msg).Error
}

func (s *Store) ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	q := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&messages).Error
	return messages, err
}

func (s *Store) CountUnread(ctx context.Context, conversationID, userID string, since *time.Time) (int64, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND is_deleted = ? AND (sender_id IS NULL OR sender_id <> ?)",
			conversationID, false, userID)
	if since != nil {
		q = q.Where("created_at > ?", *since)
	}
	err := q.Count(&count).Error
	return count, err
}

func (s *Store) HideMessage(ctx context.Context, hidden *models.HiddenMessage) error {
	// Upsert: hiding an already-hidden message is a no-op
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(hidden).Error
}

func (s *Store) UnhideMessage(ctx context.Context, userID, messageID string) error {
	return s.db.WithContext(ctx).
		Delete(&models.HiddenMessage{}, "user_id = ? AND message_id = ?", userID, messageID).Error
}

func (s *Store) ListHiddenMessageIDs(ctx context.Context, userID, conversationID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.HiddenMessage{}).
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		Pluck("message_id", &ids).Error
	return ids, err
}
