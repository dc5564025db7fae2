package handler

import (
	"duocall/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ServeWebSocket upgrades the request and hands the connection to the hub.
// Each connection gets a fresh opaque identity.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.Log.Debug("ws.upgrade_failed", "err", err)
		return
	}

	client := chathub.NewWebSocketClient(uuid.NewString(), conn, h.Hub)
	select {
	case h.Hub.RegisterCh <- client:
	case <-h.Hub.Done():
		conn.Close()
		return
	}
	client.Run()
}
