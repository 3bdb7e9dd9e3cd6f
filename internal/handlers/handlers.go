// Package handlers adapts the service layer to the HTTP surface. Handlers
// only bind input and shape the response envelope; every rule lives below.
package handlers

import (
	"net/http"

	"github.com/crewline/crewline-backend/internal/gate"
	"github.com/crewline/crewline-backend/internal/service"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	Resolver      *gate.Resolver
	Gate          *gate.Gate
	Conversations *service.ConversationService
	Messages      *service.MessageService
	Contacts      *service.ContactService
	ReadModel     *service.ReadModel
}

func New(resolver *gate.Resolver, g *gate.Gate, conversations *service.ConversationService, messages *service.MessageService, contacts *service.ContactService, readModel *service.ReadModel) *Handler {
	return &Handler{
		Resolver:      resolver,
		Gate:          g,
		Conversations: conversations,
		Messages:      messages,
		Contacts:      contacts,
		ReadModel:     readModel,
	}
}

func currentUser(c *gin.Context) string {
	return c.MustGet("userId").(string)
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// fail hands the error to the error middleware, which maps AppError kinds
// onto the envelope.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
