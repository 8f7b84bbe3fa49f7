package signaling

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 64 KB is enough for WebRTC
	// SDP payloads.
	maxMessageSize = 64 * 1024

	// Outbound buffer per connection. A peer that falls further behind than
	// this has its messages dropped (fire-and-forget signaling).
	sendBufferSize = 256
)

// Client wraps a single websocket connection participating in voice
// signaling.
type Client struct {
	Hub *Hub

	Conn *websocket.Conn

	// PeerID is assigned by the hub on registration, before any message
	// from this connection is processed.
	PeerID string

	// Send is the outbound message queue, drained by WritePump. The hub
	// closes it on unregister.
	Send chan any
}

// NewClient prepares a client for the given connection. The caller registers
// it with the hub and starts the pumps.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		Hub:  hub,
		Conn: conn,
		Send: make(chan any, sendBufferSize),
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// One ReadPump goroutine runs per connection, keeping all reads on a single
// goroutine. Malformed frames are dropped here; only transport errors end
// the connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
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
				zap.L().Warn("websocket read failed",
					zap.String("peerId", c.PeerID),
					zap.Error(err))
			}
			break
		}

		msg, err := decode(data)
		if err != nil {
			// Protocol error: log and drop, connection stays open.
			zap.L().Warn("dropping bad message",
				zap.String("peerId", c.PeerID),
				zap.Error(err))
			continue
		}

		c.Hub.inbound <- inboundMessage{client: c, msg: msg}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// One WritePump goroutine runs per connection, keeping all writes on a
// single goroutine. It owns the connection: it closes it when the hub closes
// Send or when a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				zap.L().Warn("websocket write failed",
					zap.String("peerId", c.PeerID),
					zap.Error(err))
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

// enqueue hands a message to the client's write pump without blocking the
// hub. Messages to a peer that has stopped draining its queue are dropped.
func (c *Client) enqueue(message any) {
	select {
	case c.Send <- message:
	default:
		zap.L().Warn("send queue full, dropping message",
			zap.String("peerId", c.PeerID))
	}
}
