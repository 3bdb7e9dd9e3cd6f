package postgres

import (
	"context"

	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/pkg/errors"
	"gorm.io/gorm/clause"
)

func (s *Store) GetContactRequest(ctx context.Context, id string) (*models.ContactRequest, error) {
	var req models.ContactRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "Contact request not found")
	}
	return &req, nil
}

func (s *Store) FindPendingRequest(ctx context.Context, requesterID, recipientID string) (*models.ContactRequest, error) {
	var req models.ContactRequest
	err := s.db.WithContext(ctx).
		Where("requester_id = ? AND recipient_id = ? AND status = ?",
			requesterID, recipientID, models.ContactRequestPending).
		First(&req).Error
	if err != nil {
		return nil, wrapNotFound(err, "Contact request not found")
	}
	return &req, nil
}

func (s *Store) CreateContactRequest(ctx context.Context, req *models.ContactRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *Store) SetContactRequestStatus(ctx context.Context, id string, status models.ContactRequestStatus) error {
	res := s.db.WithContext(ctx).Model(&models.ContactRequest{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.NotFound("Contact request not found")
	}
	return nil
}

func (s *Store) ListIncomingRequests(ctx context.Context, recipientID string) ([]models.ContactRequest, error) {
	var requests []models.ContactRequest
	err := s.db.WithContext(ctx).
		Where("recipient_id = ? AND status = ?", recipientID, models.ContactRequestPending).
		Order("created_at desc").
		Find(&requests).Error
	return requests, err
}

func (s *Store) UpsertContact(ctx context.Context, userID, contactUserID string) error {
	contact := models.Contact{
		UserID:        userID,
		ContactUserID: contactUserID,
	}
	// Existing edge is success, not an error
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "contact_user_id"}},
			DoNothing: true,
		}).
		Create(&contact).Error
}

func (s *Store) GetContact(ctx context.Context, userID, contactUserID string) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.WithContext(ctx).
		First(&contact, "user_id = ? AND contact_user_id = ?", userID, contactUserID).Error
	if err != nil {
		return nil, wrapNotFound(err, "Contact not found")
	}
	return &contact, nil
}

func (s *Store) SaveContact(ctx context.Context, contact *models.Contact) error {
	return s.db.WithContext(ctx).Save(contact).Error
}

func (s *Store) DeleteContact(ctx context.Context, userID, contactUserID string) error {
	res := s.db.WithContext(ctx).
		Delete(&models.Contact{}, "user_id = ? AND contact_user_id = ?", userID, contactUserID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.NotFound("Contact not found")
	}
	return nil
}

func (s *Store) BlockExists(ctx context.Context, userA, userB string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Contact{}).
		Where("((user_id = ? AND contact_user_id = ?) OR (user_id = ? AND contact_user_id = ?)) AND is_blocked = ?",
			userA, userB, userB, userA, true).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) ContactsMutual(ctx context.Context, userA, userB string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Contact{}).
		Where("((user_id = ? AND contact_user_id = ?) OR (user_id = ? AND contact_user_id = ?)) AND is_blocked = ?",
			userA, userB, userB, userA, false).
		Count(&count).Error
	return count == 2, err
}

func (s *Store) HasAcceptedRequest(ctx context.Context, userA, userB string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ContactRequest{}).
		Where("((requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)) AND status = ?",
			userA, userB, userB, userA, models.ContactRequestAccepted).
		Count(&count).Error
	return count > 0, err
}
