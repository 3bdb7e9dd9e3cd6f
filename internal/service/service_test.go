package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/crewline/crewline-backend/internal/config"
	"github.com/crewline/crewline-backend/internal/gate"
	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/internal/routing"
	"github.com/crewline/crewline-backend/internal/store"
	pgstore "github.com/crewline/crewline-backend/internal/store/postgres"
	"github.com/crewline/crewline-backend/pkg/errors"
	"github.com/crewline/crewline-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// env wires the full service stack onto an in-memory relational engine. The
// same services run unchanged against either engine, so the scenarios here
// exercise the shared semantics.
type env struct {
	db            *gorm.DB
	conversations *ConversationService
	messages      *MessageService
	contacts      *ContactService
	read          *ReadModel
}

func setupEnv(t *testing.T) *env {
	return setupEnvWith(t, nil)
}

// setupEnvWith lets a test wrap the engine, e.g. to inject storage faults.
func setupEnvWith(t *testing.T, wrap func(store.Store) store.Store) *env {
	logger.Init("development")

	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite rejects concurrent writers; one connection serializes them
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, pgstore.Migrate(db))

	var st store.Store = pgstore.New(db)
	if wrap != nil {
		st = wrap(st)
	}

	cfg := &config.Config{RegionEngineMap: "us=postgres", FallbackEngine: "postgres"}
	selector, err := routing.NewSelector(cfg)
	require.NoError(t, err)

	resolver := &gate.Resolver{
		Directory: st,
		Selector:  selector,
		Registry:  store.NewRegistry(st),
	}
	g := gate.New(resolver)

	conversations := NewConversationService(resolver)
	return &env{
		db:            db,
		conversations: conversations,
		messages:      NewMessageService(resolver, g),
		contacts:      NewContactService(resolver, conversations),
		read:          NewReadModel(resolver),
	}
}

func (e *env) user(t *testing.T, username string, allowNonFriends bool) *models.User {
	u := &models.User{Username: username, Name: username, Region: "us"}
	require.NoError(t, e.db.Create(u).Error)
	// The column default is true, so set the flag explicitly either way
	require.NoError(t, e.db.Model(&models.User{}).
		Where("id = ?", u.ID).
		Update("allow_non_friend_messages", allowNonFriends).Error)
	u.AllowNonFriendMessages = allowNonFriends
	return u
}

func (e *env) countMessages(t *testing.T, conversationID string, msgType models.MessageType) int64 {
	var count int64
	require.NoError(t, e.db.Model(&models.Message{}).
		Where("conversation_id = ? AND type = ?", conversationID, msgType).
		Count(&count).Error)
	return count
}

func TestContactAcceptWorkflow(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", false)
	bob := e.user(t, "bob", false)

	req, err := e.contacts.CreateRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContactRequestPending, req.Status)

	accepted, err := e.contacts.Accept(ctx, req.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContactRequestAccepted, accepted.Status)

	// Both directed edges exist
	var edges int64
	require.NoError(t, e.db.Model(&models.Contact{}).Count(&edges).Error)
	assert.Equal(t, int64(2), edges)

	// Exactly one direct conversation with exactly one welcome message
	conv, created, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), e.countMessages(t, conv.ID, models.MessageSystem))

	// Accepting a terminal request fails without repeating side effects
	_, err = e.contacts.Accept(ctx, req.ID, bob.ID)
	assert.Equal(t, errors.KindAlreadyProcessed, errors.KindOf(err))
	require.NoError(t, e.db.Model(&models.Contact{}).Count(&edges).Error)
	assert.Equal(t, int64(2), edges)
	assert.Equal(t, int64(1), e.countMessages(t, conv.ID, models.MessageSystem))
}

func TestContactAcceptRecipientOnly(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", false)
	bob := e.user(t, "bob", false)

	req, err := e.contacts.CreateRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	// The requester cannot accept their own request
	_, err = e.contacts.Accept(ctx, req.ID, alice.ID)
	assert.Equal(t, errors.KindUnauthorized, errors.KindOf(err))

	// The request is still actionable by the recipient
	_, err = e.contacts.Accept(ctx, req.ID, bob.ID)
	require.NoError(t, err)
}

func TestContactAcceptSkipsWelcomeForExistingConversation(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)

	// The pair already talked before becoming contacts
	conv, created, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, created)

	req, err := e.contacts.CreateRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = e.contacts.Accept(ctx, req.ID, bob.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(0), e.countMessages(t, conv.ID, models.MessageSystem))
}

func TestContactRequestDuplicatePendingReturned(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", false)
	bob := e.user(t, "bob", false)

	first, err := e.contacts.CreateRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	second, err := e.contacts.CreateRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestContactRequestRefusedForExistingContacts(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", false)
	bob := e.user(t, "bob", false)

	req, err := e.contacts.CreateRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = e.contacts.Accept(ctx, req.ID, bob.ID)
	require.NoError(t, err)

	_, err = e.contacts.CreateRequest(ctx, bob.ID, alice.ID)
	assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))
}

func TestGetOrCreateDirectIdempotent(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)

	conv, created, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	// Same pair, either order, converges onto the same conversation
	again, created, err := e.conversations.GetOrCreateDirect(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	_, _, err = e.conversations.GetOrCreateDirect(ctx, alice.ID, alice.ID)
	assert.Equal(t, errors.KindBadRequest, errors.KindOf(err))
}

func TestGetOrCreateDirectConcurrent(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)

	// Both pair orders racing: every caller must converge onto one row, with
	// losers taking the unique direct_key collision path
	const workers = 8
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		caller, peer := alice.ID, bob.ID
		if i%2 == 1 {
			caller, peer = bob.ID, alice.ID
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, _, err := e.conversations.GetOrCreateDirect(ctx, caller, peer)
			if assert.NoError(t, err) {
				ids <- conv.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	first := ""
	seen := 0
	for id := range ids {
		if first == "" {
			first = id
		}
		assert.Equal(t, first, id)
		seen++
	}
	assert.Equal(t, workers, seen)

	var convCount int64
	require.NoError(t, e.db.Model(&models.Conversation{}).
		Where("type = ?", models.ConversationDirect).
		Count(&convCount).Error)
	assert.Equal(t, int64(1), convCount)
	var msCount int64
	require.NoError(t, e.db.Model(&models.ConversationMembership{}).Count(&msCount).Error)
	assert.Equal(t, int64(2), msCount)
}

// partialCreateStore persists the conversation but fails before the
// membership rows once, the way a non-transactional engine can die
// mid-create.
type partialCreateStore struct {
	store.Store
	mu     sync.Mutex
	failed bool
}

func (s *partialCreateStore) CreateConversation(ctx context.Context, conv *models.Conversation, memberships []models.ConversationMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return s.Store.CreateConversation(ctx, conv, memberships)
	}
	s.failed = true
	if err := s.Store.CreateConversation(ctx, conv, nil); err != nil {
		return err
	}
	return fmt.Errorf("connection reset during membership insert")
}

func TestGetOrCreateDirectHealsPartialCreate(t *testing.T) {
	var broken *partialCreateStore
	e := setupEnvWith(t, func(st store.Store) store.Store {
		broken = &partialCreateStore{Store: st}
		return broken
	})
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)

	conv, created, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)
	require.True(t, broken.failed)

	// The roster was repaired: both members exist and can post
	_, err = e.messages.Send(ctx, conv.ID, alice.ID, "hello", models.MessageText, nil)
	require.NoError(t, err)
	_, err = e.messages.Send(ctx, conv.ID, bob.ID, "hi", models.MessageText, nil)
	require.NoError(t, err)

	again, created, err := e.conversations.GetOrCreateDirect(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	var msCount int64
	require.NoError(t, e.db.Model(&models.ConversationMembership{}).
		Where("conversation_id = ?", conv.ID).
		Count(&msCount).Error)
	assert.Equal(t, int64(2), msCount)
}

func TestSendDeniedWhenBlocked(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)

	conv, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, e.contacts.Block(ctx, bob.ID, alice.ID))

	// A block denies regardless of the target's privacy flag
	_, err = e.messages.Send(ctx, conv.ID, alice.ID, "hello", models.MessageText, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindUnauthorized, errors.KindOf(err))
	assert.Contains(t, err.Error(), gate.ReasonBlocked)

	// And in the other direction too
	_, err = e.messages.Send(ctx, conv.ID, bob.ID, "hello", models.MessageText, nil)
	assert.Equal(t, errors.KindUnauthorized, errors.KindOf(err))

	require.NoError(t, e.contacts.Unblock(ctx, bob.ID, alice.ID))
	_, err = e.messages.Send(ctx, conv.ID, alice.ID, "hello", models.MessageText, nil)
	require.NoError(t, err)
}

func TestSendPrivacyRestrictedUntilContacts(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", false)

	conv, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = e.messages.Send(ctx, conv.ID, alice.ID, "hi", models.MessageText, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), gate.ReasonPrivacyRestricted)

	req, err := e.contacts.CreateRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = e.contacts.Accept(ctx, req.ID, bob.ID)
	require.NoError(t, err)

	// The gate re-evaluates on every send, so the next attempt passes
	_, err = e.messages.Send(ctx, conv.ID, alice.ID, "hi", models.MessageText, nil)
	require.NoError(t, err)
}

func TestSendRequiresMembership(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)
	carol := e.user(t, "carol", true)

	conv, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = e.messages.Send(ctx, conv.ID, carol.ID, "hi", models.MessageText, nil)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestRecallLifecycle(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)

	conv, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	msg, err := e.messages.Send(ctx, conv.ID, alice.ID, "secret", models.MessageText, nil)
	require.NoError(t, err)
	_, err = e.messages.AddReaction(ctx, msg.ID, bob.ID, "😮")
	require.NoError(t, err)

	// Only the sender may recall
	_, err = e.messages.Recall(ctx, msg.ID, bob.ID)
	assert.Equal(t, errors.KindUnauthorized, errors.KindOf(err))

	recalled, err := e.messages.Recall(ctx, msg.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, recalled.IsRecalled)
	assert.Equal(t, models.RecalledPlaceholder, recalled.Content)
	assert.Empty(t, recalled.Reactions)

	// Recall is terminal
	_, err = e.messages.Recall(ctx, msg.ID, alice.ID)
	assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))
	_, err = e.messages.Edit(ctx, msg.ID, alice.ID, "rewrite")
	assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))
	_, err = e.messages.AddReaction(ctx, msg.ID, bob.ID, "👍")
	assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))
	err = e.messages.Delete(ctx, msg.ID, alice.ID)
	assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))

	// Recalled messages stay in the read model with placeholder content
	visible, err := e.read.ListMessages(ctx, conv.ID, bob.ID, 0)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, models.RecalledPlaceholder, visible[0].Content)
}

func TestDeleteBlocksRecall(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)

	conv, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	msg, err := e.messages.Send(ctx, conv.ID, alice.ID, "oops", models.MessageText, nil)
	require.NoError(t, err)

	require.NoError(t, e.messages.Delete(ctx, msg.ID, alice.ID))
	_, err = e.messages.Recall(ctx, msg.ID, alice.ID)
	assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))

	// Deleted messages disappear from every viewer's read model
	visible, err := e.read.ListMessages(ctx, conv.ID, bob.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestHideIsPerViewer(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)

	conv, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	first, err := e.messages.Send(ctx, conv.ID, alice.ID, "first", models.MessageText, nil)
	require.NoError(t, err)
	second, err := e.messages.Send(ctx, conv.ID, bob.ID, "second", models.MessageText, nil)
	require.NoError(t, err)

	require.NoError(t, e.messages.Hide(ctx, second.ID, alice.ID))

	aliceView, err := e.read.ListMessages(ctx, conv.ID, alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, aliceView, 1)
	assert.Equal(t, first.ID, aliceView[0].ID)

	bobView, err := e.read.ListMessages(ctx, conv.ID, bob.ID, 0)
	require.NoError(t, err)
	assert.Len(t, bobView, 2)

	// The hidden overlay also moves Alice's last visible message back
	views, err := e.read.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].LastMessage)
	assert.Equal(t, first.ID, views[0].LastMessage.ID)

	require.NoError(t, e.messages.Unhide(ctx, second.ID, alice.ID))
	aliceView, err = e.read.ListMessages(ctx, conv.ID, alice.ID, 0)
	require.NoError(t, err)
	assert.Len(t, aliceView, 2)
}

func TestMembershipFlagsAreIsolated(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)

	conv, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	ms, err := e.conversations.SetMembershipFlag(ctx, conv.ID, alice.ID, models.FlagPin)
	require.NoError(t, err)
	assert.True(t, ms.IsPinned)
	require.NotNil(t, ms.PinnedAt)

	_, err = e.conversations.SetMembershipFlag(ctx, conv.ID, alice.ID, models.FlagDelete)
	require.NoError(t, err)

	// Alice's list is empty, Bob's untouched
	aliceViews, err := e.read.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, aliceViews)

	bobViews, err := e.read.ListConversations(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, bobViews, 1)
	assert.False(t, bobViews[0].Membership.IsPinned)
	assert.Nil(t, bobViews[0].Membership.DeletedAt)

	// Restore brings the conversation back with flags intact
	_, err = e.conversations.SetMembershipFlag(ctx, conv.ID, alice.ID, models.FlagRestore)
	require.NoError(t, err)
	aliceViews, err = e.read.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceViews, 1)
	assert.True(t, aliceViews[0].Membership.IsPinned)
}

func TestMembershipFlagWithoutMembership(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)
	carol := e.user(t, "carol", true)

	conv, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	// Flags never create membership rows
	_, err = e.conversations.SetMembershipFlag(ctx, conv.ID, carol.ID, models.FlagPin)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)

	conv, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = e.messages.Send(ctx, conv.ID, bob.ID, "ping", models.MessageText, nil)
		require.NoError(t, err)
	}

	views, err := e.read.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(3), views[0].UnreadCount)

	// Own messages never count as unread
	bobViews, err := e.read.ListConversations(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bobViews[0].UnreadCount)

	time.Sleep(5 * time.Millisecond)
	_, err = e.conversations.MarkRead(ctx, conv.ID, alice.ID)
	require.NoError(t, err)

	views, err = e.read.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), views[0].UnreadCount)

	time.Sleep(5 * time.Millisecond)
	_, err = e.messages.Send(ctx, conv.ID, bob.ID, "ping", models.MessageText, nil)
	require.NoError(t, err)
	views, err = e.read.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), views[0].UnreadCount)
}

func TestListConversationsPinnedFirst(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)
	carol := e.user(t, "carol", true)

	older, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	newer, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	views, err := e.read.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, newer.ID, views[0].Conversation.ID)

	// Pinning overrides recency
	_, err = e.conversations.SetMembershipFlag(ctx, older.ID, alice.ID, models.FlagPin)
	require.NoError(t, err)
	views, err = e.read.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, views[0].Conversation.ID)
	assert.Equal(t, newer.ID, views[1].Conversation.ID)
}

func TestCallStatusCarveOut(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)
	carol := e.user(t, "carol", true)

	conv, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	call, err := e.messages.Send(ctx, conv.ID, alice.ID, "Voice call", models.MessageSystem,
		map[string]interface{}{models.MetaCallStatus: "initiated", "call_type": "voice"})
	require.NoError(t, err)

	// The callee, not the sender, closes out the call
	updated, err := e.messages.UpdateCallStatus(ctx, call.ID, bob.ID, "ended")
	require.NoError(t, err)
	assert.Equal(t, "ended", updated.Metadata[models.MetaCallStatus])
	// The rest of the metadata survives the merge
	assert.Equal(t, "voice", updated.Metadata["call_type"])

	_, err = e.messages.UpdateCallStatus(ctx, call.ID, bob.ID, "ringing")
	assert.Equal(t, errors.KindBadRequest, errors.KindOf(err))

	_, err = e.messages.UpdateCallStatus(ctx, call.ID, carol.ID, "missed")
	assert.Equal(t, errors.KindUnauthorized, errors.KindOf(err))

	// Ordinary messages never take the carve-out
	text, err := e.messages.Send(ctx, conv.ID, alice.ID, "hello", models.MessageText, nil)
	require.NoError(t, err)
	_, err = e.messages.UpdateCallStatus(ctx, text.ID, bob.ID, "ended")
	assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))
}

func TestReactionsIdempotent(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)

	conv, _, err := e.conversations.GetOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	msg, err := e.messages.Send(ctx, conv.ID, alice.ID, "hello", models.MessageText, nil)
	require.NoError(t, err)

	_, err = e.messages.AddReaction(ctx, msg.ID, bob.ID, "👍")
	require.NoError(t, err)
	updated, err := e.messages.AddReaction(ctx, msg.ID, bob.ID, "👍")
	require.NoError(t, err)
	require.Len(t, updated.Reactions, 1)
	assert.Equal(t, []string{bob.ID}, updated.Reactions[0].UserIDs)

	// Removing the last user drops the emoji entry
	updated, err = e.messages.RemoveReaction(ctx, msg.ID, bob.ID, "👍")
	require.NoError(t, err)
	assert.Empty(t, updated.Reactions)

	// Removing a missing pair is a no-op
	_, err = e.messages.RemoveReaction(ctx, msg.ID, bob.ID, "👍")
	require.NoError(t, err)
}

func TestGroupJoinAndLeave(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)
	carol := e.user(t, "carol", true)

	group, err := e.conversations.CreateGroup(ctx, alice.ID, models.ConversationGroup,
		"backend", "", false, []string{bob.ID})
	require.NoError(t, err)

	ms, err := e.conversations.Join(ctx, group.ID, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, ms.Role)

	// Joining twice is idempotent
	_, err = e.conversations.Join(ctx, group.ID, carol.ID)
	require.NoError(t, err)

	// The owner cannot walk away from the group
	err = e.conversations.Leave(ctx, group.ID, alice.ID)
	assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))
	require.NoError(t, e.conversations.Leave(ctx, group.ID, carol.ID))

	private, err := e.conversations.CreateGroup(ctx, alice.ID, models.ConversationChannel,
		"announcements", "", true, nil)
	require.NoError(t, err)
	_, err = e.conversations.Join(ctx, private.ID, carol.ID)
	assert.Equal(t, errors.KindUnauthorized, errors.KindOf(err))
}
