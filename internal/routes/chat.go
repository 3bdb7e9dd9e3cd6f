package routes

import (
	"time"

	"github.com/crewline/crewline-backend/internal/handlers"
	"github.com/crewline/crewline-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Chat messages: 30 per minute per IP
var chatLimiter = middleware.NewIPRateLimiter(rate.Limit(30.0/60.0), 10)

func RegisterChatRoutes(rg *gin.RouterGroup, h *handlers.Handler, auth gin.HandlerFunc, rdb *redis.Client) {
	conversations := rg.Group("/conversations")
	conversations.Use(auth)

	conversations.GET("", h.ListConversations)
	conversations.POST("", h.CreateConversation)
	conversations.POST("/direct", h.GetOrCreateDirect)
	conversations.GET("/:id/messages", h.ListMessages)
	conversations.POST("/:id/messages",
		middleware.RateLimitMiddleware(chatLimiter),
		middleware.SendRateLimitMiddleware(rdb, 30, time.Minute),
		h.SendMessage)
	conversations.PATCH("/:id/membership", h.UpdateMembership)
	conversations.POST("/:id/read", h.MarkRead)
	conversations.POST("/:id/join", h.JoinConversation)
	conversations.POST("/:id/leave", h.LeaveConversation)

	messages := rg.Group("/messages")
	messages.Use(auth)

	messages.PATCH("/:id", h.EditMessage)
	messages.DELETE("/:id", h.DeleteMessage)
	messages.POST("/:id/recall", h.RecallMessage)
	messages.POST("/:id/hide", h.HideMessage)
	messages.DELETE("/:id/hide", h.UnhideMessage)
	messages.POST("/:id/reactions", h.AddReaction)
	messages.DELETE("/:id/reactions", h.RemoveReaction)
}
