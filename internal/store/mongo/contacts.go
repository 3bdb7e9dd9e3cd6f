package mongo

import (
	"context"
	"time"

	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/pkg/errors"
	"github.com/crewline/crewline-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) GetContactRequest(ctx context.Context, id string) (*models.ContactRequest, error) {
	var req models.ContactRequest
	err := s.coll(collContactRequests).FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		return nil, wrapNoDocuments(err, "Contact request not found")
	}
	return &req, nil
}

func (s *Store) FindPendingRequest(ctx context.Context, requesterID, recipientID string) (*models.ContactRequest, error) {
	var req models.ContactRequest
	err := s.coll(collContactRequests).FindOne(ctx, bson.M{
		"requester_id": requesterID,
		"recipient_id": recipientID,
		"status":       models.ContactRequestPending,
	}).Decode(&req)
	if err != nil {
		return nil, wrapNoDocuments(err, "Contact request not found")
	}
	return &req, nil
}

func (s *Store) CreateContactRequest(ctx context.Context, req *models.ContactRequest) error {
	if req.ID == "" {
		req.ID = utils.GenerateID()
	}
	_, err := s.coll(collContactRequests).InsertOne(ctx, req)
	return err
}

func (s *Store) SetContactRequestStatus(ctx context.Context, id string, status models.ContactRequestStatus) error {
	res, err := s.coll(collContactRequests).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.NotFound("Contact request not found")
	}
	return nil
}

func (s *Store) ListIncomingRequests(ctx context.Context, recipientID string) ([]models.ContactRequest, error) {
	cursor, err := s.coll(collContactRequests).Find(ctx,
		bson.M{"recipient_id": recipientID, "status": models.ContactRequestPending},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var requests []models.ContactRequest
	err = cursor.All(ctx, &requests)
	return requests, err
}

func (s *Store) UpsertContact(ctx context.Context, userID, contactUserID string) error {
	// Single-document upsert: retried accepts hit the same edge and succeed
	_, err := s.coll(collContacts).UpdateOne(ctx,
		bson.M{"user_id": userID, "contact_user_id": contactUserID},
		bson.M{"$setOnInsert": bson.M{
			"_id":             utils.GenerateID(),
			"user_id":         userID,
			"contact_user_id": contactUserID,
			"is_favorite":     false,
			"is_blocked":      false,
			"created_at":      time.Now(),
		}},
		options.UpdateOne().SetUpsert(true))
	return err
}

func (s *Store) GetContact(ctx context.Context, userID, contactUserID string) (*models.Contact, error) {
	var contact models.Contact
	err := s.coll(collContacts).
		FindOne(ctx, bson.M{"user_id": userID, "contact_user_id": contactUserID}).
		Decode(&contact)
	if err != nil {
		return nil, wrapNoDocuments(err, "Contact not found")
	}
	return &contact, nil
}

func (s *Store) SaveContact(ctx context.Context, contact *models.Contact) error {
	_, err := s.coll(collContacts).ReplaceOne(ctx,
		bson.M{"user_id": contact.UserID, "contact_user_id": contact.ContactUserID},
		contact,
		options.Replace().SetUpsert(true))
	return err
}

func (s *Store) DeleteContact(ctx context.Context, userID, contactUserID string) error {
	res, err := s.coll(collContacts).
		DeleteOne(ctx, bson.M{"user_id": userID, "contact_user_id": contactUserID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.NotFound("Contact not found")
	}
	return nil
}

func (s *Store) BlockExists(ctx context.Context, userA, userB string) (bool, error) {
	count, err := s.coll(collContacts).CountDocuments(ctx, bson.M{
		"$or": bson.A{
			bson.M{"user_id": userA, "contact_user_id": userB},
			bson.M{"user_id": userB, "contact_user_id": userA},
		},
		"is_blocked": true,
	})
	return count > 0, err
}

func (s *Store) ContactsMutual(ctx context.Context, userA, userB string) (bool, error) {
	count, err := s.coll(collContacts).CountDocuments(ctx, bson.M{
		"$or": bson.A{
			bson.M{"user_id": userA, "contact_user_id": userB},
			bson.M{"user_id": userB, "contact_user_id": userA},
		},
		"is_blocked": false,
	})
	return count == 2, err
}

func (s *Store) HasAcceptedRequest(ctx context.Context, userA, userB string) (bool, error) {
	count, err := s.coll(collContactRequests).CountDocuments(ctx, bson.M{
		"$or": bson.A{
			bson.M{"requester_id": userA, "recipient_id": userB},
			bson.M{"requester_id": userB, "recipient_id": userA},
		},
		"status": models.ContactRequestAccepted,
	})
	return count > 0, err
}
