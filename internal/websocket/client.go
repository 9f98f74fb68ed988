// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Viewers only send pings; anything larger is a misbehaving client.
	maxMessageSize = 4 * 1024

	// DefaultSendBuffer is the per-client queue of undelivered messages.
	DefaultSendBuffer = 64
)

// clientIDCounter hands out increasing ids so broadcasts visit clients in a
// stable order.
var clientIDCounter atomic.Uint64

// Client is a middleman between one websocket connection and the hub.
//
// Only the hub closes send. The read side queues pong replies on pong, which
// is never closed, so a viewer the hub has already dropped can still ping
// safely.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message
	pong chan struct{}
}

// NewClient creates a client with DefaultSendBuffer.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, DefaultSendBuffer),
		pong: make(chan struct{}, 1),
	}
}

// ID returns the client's ordering id.
func (c *Client) ID() uint64 {
	return c.id
}

// readPump reads until the connection fails, answering ping messages.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		metrics.WSErrors.WithLabelValues("read_deadline").Inc()
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("unexpected_close").Inc()
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close")
			}
			return
		}

		if msg.Type == MessageTypePing {
			// A pending pong already answers this ping.
			select {
			case c.pong <- struct{}{}:
			default:
			}
		}
	}
}

// writePump writes queued messages and keepalive pings. It exits when the
// hub closes the send channel or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				metrics.WSErrors.WithLabelValues("write_deadline").Inc()
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("websocket write failed")
				return
			}

		case <-c.pong:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				metrics.WSErrors.WithLabelValues("write_deadline").Inc()
				return
			}
			if err := c.conn.WriteJSON(Message{Type: MessageTypePong}); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				metrics.WSErrors.WithLabelValues("write_deadline").Inc()
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start runs the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
