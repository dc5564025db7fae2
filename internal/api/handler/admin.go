package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AllocateCode returns a code that is free right now, for display before a
// room exists. The code is not held.
func (h *Handler) AllocateCode(c *gin.Context) {
	code, err := h.Hub.AllocateCode()
	if err != nil {
		h.Log.Error("admin.allocate_failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hub.Stats())
}

// ExpireRoom ends a live room now, exactly as if its deadline had passed.
func (h *Handler) ExpireRoom(c *gin.Context) {
	code := c.Param("code")
	if !h.Hub.ExpireRoom(code) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	h.Log.Info("admin.room_expired", "code", code)
	c.JSON(http.StatusOK, gin.H{"code": code, "expired": true})
}
