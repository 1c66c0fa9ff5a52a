// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/memberhub/internal/logging"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types
const (
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
	MessageTypeChatMessage    = "chat_message"
	MessageTypeChatRead       = "chat_read"
	MessageTypeEventPublished = "event_published"
)

// Message is the wire format for every frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// directMessage targets every connection of one member.
type directMessage struct {
	memberID string
	message  Message
}

// Hub maintains the set of active clients, indexed by member.
type Hub struct {
	clients    map[*Client]bool
	byMember   map[string]map[*Client]bool
	broadcast  chan Message
	direct     chan directMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	// done is closed when the hub stops so late unregisters do not block.
	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		direct:     make(chan directMessage, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		byMember:   make(map[string]map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err().
//
// DETERMINISM: lifecycle events are drained before messages so a client
// registered before a send always receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case message := <-h.broadcast:
			h.deliver(h.sortedClients(nil), message)
		case dm := <-h.direct:
			h.deliver(h.sortedClients(&dm.memberID), dm.message)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	set := h.byMember[client.memberID]
	if set == nil {
		set = make(map[*Client]bool)
		h.byMember[client.memberID] = set
	}
	set[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	logging.Info().
		Str("member_id", client.memberID).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	removed := h.removeLocked(client)
	total := len(h.clients)
	h.mu.Unlock()

	if removed {
		logging.Info().
			Str("member_id", client.memberID).
			Int("total_clients", total).
			Msg("websocket client disconnected")
	}
}

// removeLocked drops client and closes its send channel. Caller holds h.mu.
func (h *Hub) removeLocked(client *Client) bool {
	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)
	if set := h.byMember[client.memberID]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.byMember, client.memberID)
		}
	}
	close(client.send)
	return true
}

// sortedClients returns all clients, or only memberID's, in ID order.
func (h *Hub) sortedClients(memberID *string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	source := h.clients
	if memberID != nil {
		source = h.byMember[*memberID]
	}
	clients := make([]*Client, 0, len(source))
	for client := range source {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// deliver queues message on each client; slow clients are dropped.
func (h *Hub) deliver(clients []*Client, message Message) {
	if len(clients) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range clients {
		if !h.clients[client] {
			continue
		}
		select {
		case client.send <- message:
		default:
			logging.Warn().Str("member_id", client.memberID).Msg("websocket client too slow, disconnecting")
			h.removeLocked(client)
		}
	}
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()
	h.stopOnce.Do(func() { close(h.done) })

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

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.byMember = make(map[string]map[*Client]bool)
}

// SendTo queues a message for every connection of memberID. It never blocks;
// the message is dropped when the queue is full.
func (h *Hub) SendTo(memberID, messageType string, data interface{}) {
	select {
	case h.direct <- directMessage{memberID: memberID, message: Message{Type: messageType, Data: data}}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("direct channel full, dropping message")
	}
}

// BroadcastJSON sends a message to all connected clients.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// IsOnline reports whether memberID has at least one open connection.
func (h *Hub) IsOnline(memberID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byMember[memberID]) > 0
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
