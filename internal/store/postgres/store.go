// Package postgres is the relational engine. Multi-record operations run in
// transactions; lookups map gorm.ErrRecordNotFound onto the shared NotFound
// kind so callers never see engine-specific errors.
package postgres

import (
	"context"
	stderrors "errors"

	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/internal/routing"
	"github.com/crewline/crewline-backend/pkg/errors"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Engine() routing.Engine {
	return routing.EnginePostgres
}

// Migrate creates the core tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.ConversationMembership{},
		&models.Message{},
		&models.HiddenMessage{},
		&models.Contact{},
		&models.ContactRequest{},
	)
}

func wrapNotFound(err error, msg string) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound(msg)
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "User not found")
	}
	return &user, nil
}

func (s *Store) SetAllowNonFriendMessages(ctx context.Context, userID string, allow bool) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("allow_non_friend_messages", allow)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.NotFound("User not found")
	}
	return nil
}
