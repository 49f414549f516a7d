package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only send small control events
	maxMessageSize = 1024
)

var pongFrame, _ = json.Marshal(model.WSEvent{Type: model.WSEventPong})

// Client represents a single WebSocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	UserID uuid.UUID
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		UserID: userID,
	}
}

// ReadPump reads client events until the connection closes.
// Runs in a per-client goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var event model.WSEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("Error parsing WebSocket message: %v", err)
			continue
		}
		c.handle(event)
	}
}

// handle answers application-level pings; the board is read-only otherwise
func (c *Client) handle(event model.WSEvent) {
	switch event.Type {
	case model.WSEventPing:
		c.reply(pongFrame)
	default:
		log.Printf("Unknown WebSocket event type from %s: %s", c.UserID, event.Type)
	}
}

func (c *Client) reply(data []byte) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	// the hub closes send when it drops the client
	if !c.hub.clients[c.UserID][c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
// Each event is written as its own text frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
