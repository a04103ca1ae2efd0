package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/zentat/internal/session"
)

// CreateSessionRequest carries the initial document of a session
type CreateSessionRequest struct {
	HTML     string `json:"html" binding:"required"`
	Hostname string `json:"hostname"`
}

// MutateRequest carries document changes for a session
type MutateRequest struct {
	Ops []session.Op `json:"ops" binding:"required,min=1,dive"`
}

// CreateSession starts a live session
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "html required"})
		return
	}
	snap, err := h.sessions.Create(c.Request.Context(), req.HTML, req.Hostname)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// ListSessions lists live session ids
func (h *Handlers) ListSessions(c *gin.Context) {
	ids := h.sessions.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": ids,
		"count":    len(ids),
	})
}

// GetSession renders a session
func (h *Handlers) GetSession(c *gin.Context) {
	snap, err := h.sessions.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// MutateSession applies document changes and returns the converted result
func (h *Handlers) MutateSession(c *gin.Context) {
	var req MutateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mutation request"})
		return
	}
	snap, err := h.sessions.Mutate(c.Request.Context(), c.Param("id"), req.Ops)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// RevertSession restores a session's original markup
func (h *Handlers) RevertSession(c *gin.Context) {
	id := c.Param("id")
	restored, err := h.sessions.Revert(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return
	}
	snap, err := h.sessions.Snapshot(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"restored": restored,
		"session":  snap,
	})
}

// DeleteSession closes a session
func (h *Handlers) DeleteSession(c *gin.Context) {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
