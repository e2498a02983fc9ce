package notifications

import (
	"sync"
	"time"

	"faithfulcity/internal/middleware"
	"faithfulcity/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Feed clients only send control frames.
	maxMessageSize = 4096

	sendBufferSize = 32
)

// WSHub is the part of a hub a client needs to detach itself.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is a middleman between one websocket connection and its hub.
type Client struct {
	Hub WSHub

	// The websocket connection. Nil in tests that never touch the wire.
	Conn *websocket.Conn

	// Buffered channel of outbound frames.
	Send chan []byte

	UserID   string
	FamilyID string

	// Callback for handling incoming messages
	IncomingHandler func(*Client, []byte)

	closeOnce sync.Once
}

// NewClient creates a new Client instance
func NewClient(hub WSHub, conn *websocket.Conn, userID, familyID string) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		UserID:   userID,
		FamilyID: familyID,
		Send:     make(chan []byte, sendBufferSize),
	}
}

// CloseSend closes the outbound channel, which makes WritePump send a close
// frame and exit. Safe to call more than once.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// ReadPump reads from the connection until it fails, then unregisters the
// client. It blocks, so handlers run it on their own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("feed websocket read failed",
					"user_id", c.UserID, "family_id", c.FamilyID, "error", err)
			}
			return
		}

		if c.IncomingHandler != nil {
			c.IncomingHandler(c, message)
		}
	}
}

// WritePump pumps frames from Send to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues a frame without blocking. A full buffer drops the frame;
// feed frames are full snapshots so the next one supersedes it.
func (c *Client) TrySend(message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		middleware.Logger.Warn("feed client buffer full, dropped frame",
			"user_id", c.UserID, "family_id", c.FamilyID, "hub", c.Hub.Name())
		return false
	}
}
