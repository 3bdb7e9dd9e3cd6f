// Package mongo is the document engine. It has no cross-collection
// transactions: every guarantee here is a single-document atomic update, and
// multi-record operations are sequential best-effort writes. The lifecycle
// rules shared with the relational engine live in internal/rules, so observable
// semantics stay identical despite the weaker primitives.
package mongo

import (
	"context"
	stderrors "errors"

	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/internal/routing"
	"github.com/crewline/crewline-backend/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	collUsers           = "users"
	collConversations   = "conversations"
	collMemberships     = "memberships"
	collMessages        = "messages"
	collHiddenMessages  = "hidden_messages"
	collContacts        = "contacts"
	collContactRequests = "contact_requests"
)

type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Engine() routing.Engine {
	return routing.EngineMongo
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func wrapNoDocuments(err error, msg string) error {
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return errors.NotFound(msg)
	}
	return err
}

// EnsureIndexes creates the indexes the engine relies on. The unique sparse
// direct_key index is what makes concurrent direct-conversation creation
// converge to one document despite the lack of transactions.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}

	_, err := db.Collection(collConversations).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "direct_key", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	if err != nil {
		return err
	}

	indexes := map[string]mongo.IndexModel{
		collMemberships:     unique(bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}}),
		collContacts:        unique(bson.D{{Key: "user_id", Value: 1}, {Key: "contact_user_id", Value: 1}}),
		collHiddenMessages:  unique(bson.D{{Key: "user_id", Value: 1}, {Key: "message_id", Value: 1}}),
		collMessages:        {Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}},
		collContactRequests: {Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "status", Value: 1}}},
	}
	for coll, model := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateOne(ctx, model); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.coll(collUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, wrapNoDocuments(err, "User not found")
	}
	// Legacy documents may miss region entirely; decode leaves it empty and
	// the selector handles the fallback.
	return &user, nil
}

func (s *Store) SetAllowNonFriendMessages(ctx context.Context, userID string, allow bool) error {
	res, err := s.coll(collUsers).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"allow_non_friend_messages": allow}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.NotFound("User not found")
	}
	return nil
}
