package mongo

import (
	"context"
	"time"

	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/pkg/errors"
	"github.com/crewline/crewline-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation, memberships []models.ConversationMembership) error {
	if conv.ID == "" {
		conv.ID = utils.GenerateID()
	}
	if _, err := s.coll(collConversations).InsertOne(ctx, conv); err != nil {
		return err
	}

	// No cross-collection transaction: membership inserts are sequential.
	// A failure here leaves a conversation with a short roster; the
	// direct-conversation lookup re-creates missing membership rows, so the
	// next get-or-create returns a usable conversation.
	for i := range memberships {
		memberships[i].ConversationID = conv.ID
		if _, err := s.coll(collMemberships).InsertOne(ctx, memberships[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.coll(collConversations).FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err != nil {
		return nil, wrapNoDocuments(err, "Conversation not found")
	}
	return &conv, nil
}

func (s *Store) FindDirectConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	key := models.DirectKeyFor(userA, userB)

	var conv models.Conversation
	err := s.coll(collConversations).
		FindOne(ctx, bson.M{"type": models.ConversationDirect, "direct_key": key}).
		Decode(&conv)
	if err == nil {
		return &conv, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	// Fallback query for legacy documents without direct_key: intersect the
	// two users' direct memberships and verify the pair is the whole roster.
	idsA, err := s.membershipConversationIDs(ctx, userA)
	if err != nil {
		return nil, err
	}
	idsB, err := s.membershipConversationIDs(ctx, userB)
	if err != nil {
		return nil, err
	}

	inB := map[string]bool{}
	for _, id := range idsB {
		inB[id] = true
	}
	for _, id := range idsA {
		if !inB[id] {
			continue
		}
		err := s.coll(collConversations).
			FindOne(ctx, bson.M{
				"_id":        id,
				"type":       models.ConversationDirect,
				"direct_key": bson.M{"$exists": false},
			}).
			Decode(&conv)
		if err == mongo.ErrNoDocuments {
			continue
		}
		if err != nil {
			return nil, err
		}
		count, err := s.coll(collMemberships).CountDocuments(ctx, bson.M{"conversation_id": id})
		if err != nil {
			return nil, err
		}
		if count == 2 {
			return &conv, nil
		}
	}
	return nil, errors.NotFound("Direct conversation not found")
}

func (s *Store) membershipConversationIDs(ctx context.Context, userID string) ([]string, error) {
	cursor, err := s.coll(collMemberships).Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	var memberships []models.ConversationMembership
	if err := cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(memberships))
	for _, ms := range memberships {
		ids = append(ids, ms.ConversationID)
	}
	return ids, nil
}

func (s *Store) GetMembership(ctx context.Context, conversationID, userID string) (*models.ConversationMembership, error) {
	var ms models.ConversationMembership
	err := s.coll(collMemberships).
		FindOne(ctx, bson.M{"conversation_id": conversationID, "user_id": userID}).
		Decode(&ms)
	if err != nil {
		return nil, wrapNoDocuments(err, "Membership not found")
	}
	return &ms, nil
}

func (s *Store) SaveMembership(ctx context.Context, ms *models.ConversationMembership) error {
	// Single-document replace keyed by the composite pair: naturally atomic,
	// and scoped to this one user's row.
	_, err := s.coll(collMemberships).ReplaceOne(ctx,
		bson.M{"conversation_id": ms.ConversationID, "user_id": ms.UserID},
		ms,
		options.Replace().SetUpsert(true))
	return err
}

func (s *Store) AddMembership(ctx context.Context, ms *models.ConversationMembership) error {
	// Keyed by the composite pair: an existing row is success
	_, err := s.coll(collMemberships).UpdateOne(ctx,
		bson.M{"conversation_id": ms.ConversationID, "user_id": ms.UserID},
		bson.M{"$setOnInsert": ms},
		options.UpdateOne().SetUpsert(true))
	return err
}

func (s *Store) RemoveMembership(ctx context.Context, conversationID, userID string) error {
	res, err := s.coll(collMemberships).
		DeleteOne(ctx, bson.M{"conversation_id": conversationID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.NotFound("Membership not found")
	}
	return nil
}

func (s *Store) ListMembers(ctx context.Context, conversationID string) ([]models.ConversationMembership, error) {
	cursor, err := s.coll(collMemberships).Find(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return nil, err
	}
	var members []models.ConversationMembership
	err = cursor.All(ctx, &members)
	return members, err
}

func (s *Store) ListUserMemberships(ctx context.Context, userID string) ([]models.ConversationMembership, error) {
	cursor, err := s.coll(collMemberships).Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	var memberships []models.ConversationMembership
	err = cursor.All(ctx, &memberships)
	return memberships, err
}

func (s *Store) TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error {
	_, err := s.coll(collConversations).UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"last_message_at": at}})
	return err
}
