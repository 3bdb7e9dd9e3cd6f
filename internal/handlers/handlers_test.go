package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crewline/crewline-backend/internal/config"
	"github.com/crewline/crewline-backend/internal/gate"
	"github.com/crewline/crewline-backend/internal/middleware"
	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/internal/routing"
	"github.com/crewline/crewline-backend/internal/service"
	"github.com/crewline/crewline-backend/internal/store"
	pgstore "github.com/crewline/crewline-backend/internal/store/postgres"
	"github.com/crewline/crewline-backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testServer struct {
	db     *gorm.DB
	router *gin.Engine
}

// setupServer builds a router with the real error middleware and a stub auth
// middleware that trusts the X-Test-User header.
func setupServer(t *testing.T) *testServer {
	logger.Init("development")
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:http_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, pgstore.Migrate(db))
	st := pgstore.New(db)

	cfg := &config.Config{RegionEngineMap: "us=postgres", FallbackEngine: "postgres"}
	selector, err := routing.NewSelector(cfg)
	require.NoError(t, err)
	resolver := &gate.Resolver{Directory: st, Selector: selector, Registry: store.NewRegistry(st)}
	g := gate.New(resolver)

	conversations := service.NewConversationService(resolver)
	messages := service.NewMessageService(resolver, g)
	contacts := service.NewContactService(resolver, conversations)
	readModel := service.NewReadModel(resolver)
	h := New(resolver, g, conversations, messages, contacts, readModel)

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware())
	router.Use(func(c *gin.Context) {
		c.Set("userId", c.GetHeader("X-Test-User"))
		c.Next()
	})

	api := router.Group("/api")
	api.POST("/conversations/direct", h.GetOrCreateDirect)
	api.GET("/conversations", h.ListConversations)
	api.POST("/conversations/:id/messages", h.SendMessage)
	api.PATCH("/conversations/:id/membership", h.UpdateMembership)
	api.PATCH("/messages/:id", h.EditMessage)
	api.POST("/contacts/requests", h.CreateContactRequest)
	api.POST("/contacts/requests/:id/accept", h.AcceptContactRequest)

	return &testServer{db: db, router: router}
}

func (s *testServer) user(t *testing.T, username string) *models.User {
	u := &models.User{Username: username, Name: username, Region: "us"}
	require.NoError(t, s.db.Create(u).Error)
	return u
}

func (s *testServer) request(t *testing.T, method, path, userID string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", userID)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestDirectConversationEnvelope(t *testing.T) {
	s := setupServer(t)
	alice := s.user(t, "alice")
	bob := s.user(t, "bob")

	w, resp := s.request(t, http.MethodPost, "/api/conversations/direct", alice.ID,
		gin.H{"peerId": bob.ID})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["created"])
	conv := data["conversation"].(map[string]interface{})
	assert.Equal(t, "direct", conv["type"])

	// Second call finds the same conversation
	_, resp = s.request(t, http.MethodPost, "/api/conversations/direct", bob.ID,
		gin.H{"peerId": alice.ID})
	again := resp["data"].(map[string]interface{})
	assert.Equal(t, false, again["created"])
	assert.Equal(t, conv["id"], again["conversation"].(map[string]interface{})["id"])
}

func TestErrorEnvelopeCarriesKind(t *testing.T) {
	s := setupServer(t)
	alice := s.user(t, "alice")

	// Self-conversation is refused with a typed envelope
	w, resp := s.request(t, http.MethodPost, "/api/conversations/direct", alice.ID,
		gin.H{"peerId": alice.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
	errBody := resp["error"].(map[string]interface{})
	assert.Equal(t, "bad_request", errBody["kind"])
	assert.NotEmpty(t, errBody["message"])
}

func TestSendDeniedEnvelope(t *testing.T) {
	s := setupServer(t)
	alice := s.user(t, "alice")
	bob := s.user(t, "bob")
	require.NoError(t, s.db.Model(&models.User{}).
		Where("id = ?", bob.ID).
		Update("allow_non_friend_messages", false).Error)

	_, resp := s.request(t, http.MethodPost, "/api/conversations/direct", alice.ID,
		gin.H{"peerId": bob.ID})
	convID := resp["data"].(map[string]interface{})["conversation"].(map[string]interface{})["id"].(string)

	w, resp := s.request(t, http.MethodPost, "/api/conversations/"+convID+"/messages", alice.ID,
		gin.H{"content": "hello"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	errBody := resp["error"].(map[string]interface{})
	assert.Equal(t, "unauthorized", errBody["kind"])
	assert.Contains(t, errBody["message"], gate.ReasonPrivacyRestricted)
}

func TestContactAcceptOverHTTP(t *testing.T) {
	s := setupServer(t)
	alice := s.user(t, "alice")
	bob := s.user(t, "bob")

	_, resp := s.request(t, http.MethodPost, "/api/contacts/requests", alice.ID,
		gin.H{"recipientId": bob.ID})
	reqID := resp["data"].(map[string]interface{})["request"].(map[string]interface{})["id"].(string)

	w, resp := s.request(t, http.MethodPost, "/api/contacts/requests/"+reqID+"/accept", bob.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	accepted := resp["data"].(map[string]interface{})["request"].(map[string]interface{})
	assert.Equal(t, "accepted", accepted["status"])

	// Replay hits the terminal-state guard
	w, resp = s.request(t, http.MethodPost, "/api/contacts/requests/"+reqID+"/accept", bob.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_processed", resp["error"].(map[string]interface{})["kind"])
}

func TestCallStatusOverEditEndpoint(t *testing.T) {
	s := setupServer(t)
	alice := s.user(t, "alice")
	bob := s.user(t, "bob")

	_, resp := s.request(t, http.MethodPost, "/api/conversations/direct", alice.ID,
		gin.H{"peerId": bob.ID})
	convID := resp["data"].(map[string]interface{})["conversation"].(map[string]interface{})["id"].(string)

	_, resp = s.request(t, http.MethodPost, "/api/conversations/"+convID+"/messages", alice.ID,
		gin.H{"content": "Voice call", "type": "system",
			"metadata": gin.H{models.MetaCallStatus: "initiated"}})
	msgID := resp["data"].(map[string]interface{})["message"].(map[string]interface{})["id"].(string)

	w, resp := s.request(t, http.MethodPatch, "/api/messages/"+msgID, bob.ID,
		gin.H{"callStatus": "missed"})
	assert.Equal(t, http.StatusOK, w.Code)
	msg := resp["data"].(map[string]interface{})["message"].(map[string]interface{})
	meta := msg["metadata"].(map[string]interface{})
	assert.Equal(t, "missed", meta[models.MetaCallStatus])
}

func TestUnknownMembershipFlagRejected(t *testing.T) {
	s := setupServer(t)
	alice := s.user(t, "alice")
	bob := s.user(t, "bob")

	_, resp := s.request(t, http.MethodPost, "/api/conversations/direct", alice.ID,
		gin.H{"peerId": bob.ID})
	convID := resp["data"].(map[string]interface{})["conversation"].(map[string]interface{})["id"].(string)

	w, resp := s.request(t, http.MethodPatch, "/api/conversations/"+convID+"/membership", alice.ID,
		gin.H{"flag": "archive"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", resp["error"].(map[string]interface{})["kind"])
}
