package handlers

import (
	"github.com/crewline/crewline-backend/pkg/errors"
	"github.com/gin-gonic/gin"
)

// EditMessage updates content, or the call status when callStatus is set
// (the one edit the non-sender participant may perform).
func (h *Handler) EditMessage(c *gin.Context) {
	var req struct {
		Content    string `json:"content"`
		CallStatus string `json:"callStatus"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.ErrInvalidRequest)
		return
	}

	if req.CallStatus != "" {
		msg, err := h.Messages.UpdateCallStatus(c.Request.Context(), c.Param("id"), currentUser(c), req.CallStatus)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"message": msg})
		return
	}

	if req.Content == "" {
		fail(c, errors.BadRequest("Content is required"))
		return
	}
	msg, err := h.Messages.Edit(c.Request.Context(), c.Param("id"), currentUser(c), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": msg})
}

// DeleteMessage soft-deletes for everyone (sender only).
func (h *Handler) DeleteMessage(c *gin.Context) {
	if err := h.Messages.Delete(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"deleted": true})
}

// RecallMessage erases content terminally (sender only, no time window).
func (h *Handler) RecallMessage(c *gin.Context) {
	msg, err := h.Messages.Recall(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": msg})
}

// HideMessage suppresses the message in the caller's view only.
func (h *Handler) HideMessage(c *gin.Context) {
	if err := h.Messages.Hide(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"hidden": true})
}

func (h *Handler) UnhideMessage(c *gin.Context) {
	if err := h.Messages.Unhide(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"hidden": false})
}

// AddReaction adds (emoji, caller) to the message's aggregate.
func (h *Handler) AddReaction(c *gin.Context) {
	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.ErrInvalidRequest)
		return
	}

	msg, err := h.Messages.AddReaction(c.Request.Context(), c.Param("id"), currentUser(c), req.Emoji)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": msg})
}

// RemoveReaction removes the caller's reaction; missing pairs are a no-op.
func (h *Handler) RemoveReaction(c *gin.Context) {
	emoji := c.Query("emoji")
	if emoji == "" {
		fail(c, errors.BadRequest("emoji query parameter required"))
		return
	}

	msg, err := h.Messages.RemoveReaction(c.Request.Context(), c.Param("id"), currentUser(c), emoji)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": msg})
}
