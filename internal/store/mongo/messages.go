package mongo

import (
	"context"
	"time"

	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = utils.GenerateID()
	}
	_, err := s.coll(collMessages).InsertOne(ctx, msg)
	return err
}

func (s *Store) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	err := s.coll(collMessages).FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		return nil, wrapNoDocuments(err, "Message not found")
	}
	return &msg, nil
}

func (s *Store) SaveMessage(ctx context.Context, msg *models.Message) error {
	// Whole-document replace. Callers re-fetch immediately before mutating,
	// but two concurrent reaction writes can still interleave here: the
	// aggregate is last-writer-wins on this engine. Accepted limitation.
	_, err := s.coll(collMessages).ReplaceOne(ctx, bson.M{"_id": msg.ID}, msg)
	return err
}

func (s *Store) ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.coll(collMessages).Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	var messages []models.Message
	err = cursor.All(ctx, &messages)
	return messages, err
}

func (s *Store) CountUnread(ctx context.Context, conversationID, userID string, since *time.Time) (int64, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"is_deleted":      false,
		"$or": bson.A{
			bson.M{"sender_id": bson.M{"$exists": false}},
			bson.M{"sender_id": bson.M{"$ne": userID}},
		},
	}
	if since != nil {
		filter["created_at"] = bson.M{"$gt": *since}
	}
	return s.coll(collMessages).CountDocuments(ctx, filter)
}

func (s *Store) HideMessage(ctx context.Context, hidden *models.HiddenMessage) error {
	// Upsert keyed by (user, message): re-hiding is a no-op
	_, err := s.coll(collHiddenMessages).UpdateOne(ctx,
		bson.M{"user_id": hidden.UserID, "message_id": hidden.MessageID},
		bson.M{"$setOnInsert": bson.M{
			"user_id":         hidden.UserID,
			"message_id":      hidden.MessageID,
			"conversation_id": hidden.ConversationID,
			"created_at":      hidden.CreatedAt,
		}},
		options.UpdateOne().SetUpsert(true))
	return err
}

func (s *Store) UnhideMessage(ctx context.Context, userID, messageID string) error {
	_, err := s.coll(collHiddenMessages).
		DeleteOne(ctx, bson.M{"user_id": userID, "message_id": messageID})
	return err
}

func (s *Store) ListHiddenMessageIDs(ctx context.Context, userID, conversationID string) ([]string, error) {
	cursor, err := s.coll(collHiddenMessages).
		Find(ctx, bson.M{"user_id": userID, "conversation_id": conversationID})
	if err != nil {
		return nil, err
	}
	var hidden []models.HiddenMessage
	if err := cursor.All(ctx, &hidden); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(hidden))
	for _, h := range hidden {
		ids = append(ids, h.MessageID)
	}
	return ids, nil
}
