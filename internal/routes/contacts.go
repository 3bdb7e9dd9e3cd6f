package routes

import (
	"github.com/crewline/crewline-backend/internal/handlers"
	"github.com/gin-gonic/gin"
)

func RegisterContactRoutes(rg *gin.RouterGroup, h *handlers.Handler, auth gin.HandlerFunc) {
	contacts := rg.Group("/contacts")
	contacts.Use(auth)

	contacts.GET("/requests", h.ListContactRequests)
	contacts.POST("/requests", h.CreateContactRequest)
	contacts.POST("/requests/:id/accept", h.AcceptContactRequest)
	contacts.POST("/requests/:id/reject", h.RejectContactRequest)
	contacts.POST("/:userId/block", h.BlockUser)
	contacts.DELETE("/:userId/block", h.UnblockUser)
	contacts.POST("/:userId/favorite", h.SetFavorite)

	users := rg.Group("/users")
	users.Use(auth)
	users.PATCH("/me/privacy", h.UpdatePrivacy)
}
