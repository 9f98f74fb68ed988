// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/metrics"
	"github.com/tomtom215/capturehub/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during
	// shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types sent to viewers.
const (
	MessageTypeNewMedia      = "newMedia"
	MessageTypeMediaDeleted  = "mediaDeleted"
	MessageTypeMediaUpdated  = "mediaUpdated"
	MessageTypeAlbumsUpdated = "albumsUpdated"
	MessageTypeSessionState  = "sessionState"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
)

// Drop reasons recorded in metrics.
const (
	dropHubFull    = "hub_buffer_full"
	dropClientFull = "client_buffer_full"
)

// DefaultBroadcastBuffer is the hub's pending broadcast capacity.
const DefaultBroadcastBuffer = 256

// Message is the envelope of every real-time event.
//
//	{"type": "mediaDeleted", "data": {"id": "0f8fad5b-..."}}
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// MediaDeletedData is the payload of mediaDeleted.
type MediaDeletedData struct {
	ID string `json:"id"`
}

// Hub fans catalog events out to connected viewers. It implements
// catalog.Notifier: every Broadcast call is non-blocking, so a slow or dead
// viewer never delays a catalog mutation. There is no replay; viewers that
// connect later fetch the current state over HTTP.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	// done is closed once RunWithContext returns.
	done     chan struct{}
	doneOnce sync.Once
}

// NewHub creates a hub with DefaultBroadcastBuffer.
func NewHub() *Hub {
	return NewHubWithBuffer(DefaultBroadcastBuffer)
}

// NewHubWithBuffer creates a hub holding up to size pending broadcasts.
func NewHubWithBuffer(size int) *Hub {
	if size <= 0 {
		size = DefaultBroadcastBuffer
	}
	return &Hub{
		broadcast:  make(chan Message, size),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// register hands client to the running hub. It returns false when the hub
// has stopped.
func (h *Hub) register(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// unregister removes client, or returns at once if the hub has stopped.
func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err(). Lifecycle events are handled before
// broadcasts so a client registered before an event receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client disconnected")
}

// shutdown closes all clients and logs why. ctx.Err() is not logged as an
// error since cancellation is the expected path.
func (h *Hub) shutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()
	h.doneOnce.Do(func() { close(h.done) })

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// sortedClients returns clients in id order. Must be called with mu held.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients delivers message to every client in id order. A client
// whose send buffer is full is disconnected; the others are unaffected.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	for _, client := range h.sortedClients() {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		close(client.send)
		delete(h.clients, client)
		metrics.RecordBroadcastDropped(dropClientFull)
		logging.Warn().
			Uint64("client_id", client.id).
			Str("message_type", message.Type).
			Msg("websocket client too slow, disconnecting")
	}
	if len(slow) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
}

// Broadcast queues a message for all clients. It never blocks: when the hub
// buffer is full the message is dropped.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		metrics.RecordBroadcastDropped(dropHubFull)
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// MediaAdded broadcasts newMedia.
func (h *Hub) MediaAdded(entry *models.MediaEntry) {
	h.Broadcast(MessageTypeNewMedia, entry)
}

// MediaDeleted broadcasts mediaDeleted.
func (h *Hub) MediaDeleted(id string) {
	h.Broadcast(MessageTypeMediaDeleted, MediaDeletedData{ID: id})
}

// MediaUpdated broadcasts mediaUpdated.
func (h *Hub) MediaUpdated(entry *models.MediaEntry) {
	h.Broadcast(MessageTypeMediaUpdated, entry)
}

// AlbumsChanged broadcasts albumsUpdated with the full album map.
func (h *Hub) AlbumsChanged(albums models.Albums) {
	h.Broadcast(MessageTypeAlbumsUpdated, albums)
}

// SessionState broadcasts sessionState.
func (h *Hub) SessionState(status models.SessionStatus) {
	h.Broadcast(MessageTypeSessionState, status)
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
