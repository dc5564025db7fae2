package chathub

import (
	"encoding/json"
	"log/slog"
	"time"

	"duocall/backend/internal/config"
	"duocall/backend/internal/models"
	"duocall/backend/internal/rooms"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = config.MaxFrameBytes
	sendBuffer     = 64
)

// WebSocketClient implements Client over a gorilla websocket.
type WebSocketClient struct {
	ConnID   string
	RoomCode string
	Conn     *websocket.Conn
	Hub      *ManagerService
	Send     chan models.OutboundEvent
	Log      *slog.Logger
}

// NewWebSocketClient wraps conn for hub.
func NewWebSocketClient(connID string, conn *websocket.Conn, hub *ManagerService) *WebSocketClient {
	return &WebSocketClient{
		ConnID: connID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.OutboundEvent, sendBuffer),
		Log:    hub.log.With("conn", connID),
	}
}

func (c *WebSocketClient) GetConnID() string                           { return c.ConnID }
func (c *WebSocketClient) GetRoomCode() string                         { return c.RoomCode }
func (c *WebSocketClient) SetRoomCode(code string)                     { c.RoomCode = code }
func (c *WebSocketClient) GetSendChannel() chan<- models.OutboundEvent { return c.Send }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which makes writePump send a close frame and exit.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump decodes frames and hands them to the hub in arrival order.
func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.Hub.UnregisterCh <- c:
		case <-c.Hub.Done():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Log.Debug("ws.read_error", "err", err)
			}
			return
		}

		var ev models.InboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			// Nothing the hub needs to see; answer directly and keep reading.
			select {
			case c.Send <- models.OutboundEvent{Type: models.EventError, Payload: models.ErrorPayload{Message: rooms.ErrBadPayload.Error()}}:
			default:
			}
			continue
		}

		select {
		case c.Hub.IncomingCh <- Inbound{Client: c, Event: ev}:
		case <-c.Hub.Done():
			return
		}
	}
}

// writePump writes one JSON frame per outbound event and keeps the
// connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				c.Log.Debug("ws.write_error", "type", ev.Type, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
