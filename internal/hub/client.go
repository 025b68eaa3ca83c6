package hub

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is one websocket connection attached to the hub. Identity
// (user ID) lives in the registry, not here; the client only knows its
// connection ID.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	connID string
	send   chan []byte
}

// NewClient creates a Client with a fresh connection ID.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		connID: uuid.NewString(),
		send:   make(chan []byte, 256),
	}
}

// ConnID returns the client's connection identifier.
func (c *Client) ConnID() string { return c.connID }

// CloseConn closes the underlying websocket connection.
func (c *Client) CloseConn() { c.conn.Close() }

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump pumps frames from the websocket to the hub. It runs in its
// own goroutine and requests unregistration on exit.
func (c *Client) ReadPump() {
	defer func() {
		unregister := HubMessage{Type: TypeUnregister, Client: c}
		select {
		case c.hub.messageChan <- unregister:
		case <-time.After(1 * time.Second):
			logrus.WithField("conn_id", c.connID).Warn("Timeout sending unregister to hub channel")
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithField("conn_id", c.connID)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("Websocket read error (unexpected close)")
			} else {
				logCtx.Debug("Websocket connection closed")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		frame := HubMessage{Type: TypeFrame, Client: c, RawData: message}
		select {
		case c.hub.messageChan <- frame:
		default:
			logrus.WithField("conn_id", c.connID).Warn("Hub message channel full, dropping client frame")
		}
	}
}

// WritePump pumps events from the send channel to the websocket and
// keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel during unregister.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithField("conn_id", c.connID).WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
