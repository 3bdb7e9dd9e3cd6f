package handlers

import (
	"github.com/crewline/crewline-backend/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ListContactRequests returns the caller's pending incoming requests.
func (h *Handler) ListContactRequests(c *gin.Context) {
	requests, err := h.Contacts.ListIncoming(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"requests": requests})
}

// CreateContactRequest opens a pending request to another user.
func (h *Handler) CreateContactRequest(c *gin.Context) {
	var req struct {
		RecipientID string `json:"recipientId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.ErrInvalidRequest)
		return
	}

	request, err := h.Contacts.CreateRequest(c.Request.Context(), currentUser(c), req.RecipientID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"request": request})
}

// AcceptContactRequest runs the accept workflow (recipient only).
func (h *Handler) AcceptContactRequest(c *gin.Context) {
	request, err := h.Contacts.Accept(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"request": request})
}

// RejectContactRequest flips the request to rejected (recipient only).
func (h *Handler) RejectContactRequest(c *gin.Context) {
	request, err := h.Contacts.Reject(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"request": request})
}

// BlockUser sets the block flag on the caller's edge to the target.
func (h *Handler) BlockUser(c *gin.Context) {
	if err := h.Contacts.Block(c.Request.Context(), currentUser(c), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"blocked": true})
}

func (h *Handler) UnblockUser(c *gin.Context) {
	if err := h.Contacts.Unblock(c.Request.Context(), currentUser(c), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"blocked": false})
}

// SetFavorite toggles the favorite flag on the caller's contact edge.
func (h *Handler) SetFavorite(c *gin.Context) {
	var req struct {
		Favorite *bool `json:"favorite" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.ErrInvalidRequest)
		return
	}

	if err := h.Contacts.SetFavorite(c.Request.Context(), currentUser(c), c.Param("userId"), *req.Favorite); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"favorite": *req.Favorite})
}

// UpdatePrivacy flips the caller's allow-non-friend-messages flag, the one
// user field this core mutates.
func (h *Handler) UpdatePrivacy(c *gin.Context) {
	var req struct {
		AllowNonFriendMessages *bool `json:"allowNonFriendMessages" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.ErrInvalidRequest)
		return
	}

	userID := currentUser(c)
	st, _, err := h.Resolver.StoreFor(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := st.SetAllowNonFriendMessages(c.Request.Context(), userID, *req.AllowNonFriendMessages); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"allowNonFriendMessages": *req.AllowNonFriendMessages})
}
