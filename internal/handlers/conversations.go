package handlers

import (
	"strconv"

	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ListConversations returns the caller's conversation list, pinned first.
func (h *Handler) ListConversations(c *gin.Context) {
	views, err := h.ReadModel.ListConversations(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"conversations": views})
}

// CreateConversation creates a group or channel.
func (h *Handler) CreateConversation(c *gin.Context) {
	var req struct {
		Type        string   `json:"type" binding:"required"`
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		IsPrivate   bool     `json:"isPrivate"`
		MemberIDs   []string `json:"memberIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.ErrInvalidRequest)
		return
	}

	conv, err := h.Conversations.CreateGroup(c.Request.Context(), currentUser(c),
		models.ConversationType(req.Type), req.Name, req.Description, req.IsPrivate, req.MemberIDs)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"conversation": conv})
}

// GetOrCreateDirect opens (or finds) the direct conversation with a peer.
func (h *Handler) GetOrCreateDirect(c *gin.Context) {
	var req struct {
		PeerID string `json:"peerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.ErrInvalidRequest)
		return
	}

	conv, created, err := h.Conversations.GetOrCreateDirect(c.Request.Context(), currentUser(c), req.PeerID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"conversation": conv, "created": created})
}

// ListMessages returns the conversation as seen by the caller.
func (h *Handler) ListMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	messages, err := h.ReadModel.ListMessages(c.Request.Context(), c.Param("id"), currentUser(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"messages": messages})
}

// SendMessage posts a message into a conversation.
func (h *Handler) SendMessage(c *gin.Context) {
	var req struct {
		Content  string                 `json:"content" binding:"required"`
		Type     string                 `json:"type"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.ErrInvalidRequest)
		return
	}
	if req.Type == "" {
		req.Type = string(models.MessageText)
	}

	msg, err := h.Messages.Send(c.Request.Context(), c.Param("id"), currentUser(c),
		req.Content, models.MessageType(req.Type), req.Metadata)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": msg})
}

// UpdateMembership applies one per-user flag to the caller's membership row.
func (h *Handler) UpdateMembership(c *gin.Context) {
	var req struct {
		Flag string `json:"flag" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.ErrInvalidRequest)
		return
	}
	flag := models.MembershipFlag(req.Flag)
	if !models.ValidMembershipFlag(flag) {
		fail(c, errors.BadRequest("Unknown membership flag"))
		return
	}

	ms, err := h.Conversations.SetMembershipFlag(c.Request.Context(), c.Param("id"), currentUser(c), flag)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"membership": ms})
}

// MarkRead stamps the caller's last-read time with server time.
func (h *Handler) MarkRead(c *gin.Context) {
	readAt, err := h.Conversations.MarkRead(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"readAt": readAt})
}

// JoinConversation adds the caller to a public group/channel.
func (h *Handler) JoinConversation(c *gin.Context) {
	ms, err := h.Conversations.Join(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"membership": ms})
}

// LeaveConversation removes the caller's membership.
func (h *Handler) LeaveConversation(c *gin.Context) {
	if err := h.Conversations.Leave(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"left": true})
}
