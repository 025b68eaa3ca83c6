// Package hub maintains the set of live websocket clients and their
// room subscriptions, and delivers outbound events to them.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Dispatcher handles inbound frames from clients. Implemented by the
// websocket command dispatcher; injected to keep the hub transport
// only.
type Dispatcher interface {
	Dispatch(client *Client, raw []byte)
	// Disconnected is invoked after a client is unregistered so
	// higher layers can drop their registry binding.
	Disconnected(connID string)
}

// Message types flowing through the hub's channel.
const (
	TypeRegister   = "register"
	TypeUnregister = "unregister"
	TypeFrame      = "frame"
)

// HubMessage is the envelope passed on the hub's internal channel.
type HubMessage struct {
	Type    string
	Client  *Client
	RawData []byte
}

// Hub coordinates client registration and room broadcast groups. It
// implements game.Broadcaster.
type Hub struct {
	messageChan chan HubMessage
	dispatcher  Dispatcher

	mu      sync.RWMutex
	clients map[string]*Client         // connID -> client
	rooms   map[string]map[string]bool // roomCode -> set of connIDs
}

// NewHub creates a Hub. The dispatcher is attached later via
// SetDispatcher because the coordinator needs the hub first.
func NewHub() *Hub {
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		clients:     make(map[string]*Client),
		rooms:       make(map[string]map[string]bool),
	}
}

// SetDispatcher attaches the inbound-frame handler. Must be called
// before Run.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

// Run processes the hub's internal channel. It should run in its own
// goroutine and exits when the channel is closed.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running")

	for msg := range h.messageChan {
		switch msg.Type {
		case TypeRegister:
			h.registerClient(msg.Client)
		case TypeUnregister:
			h.unregisterClient(msg.Client)
		case TypeFrame:
			if h.dispatcher != nil {
				// Handled off the hub loop so one slow store call
				// cannot stall every room's traffic.
				go h.dispatcher.Dispatch(msg.Client, msg.RawData)
			}
		default:
			log.Warnf("Unknown hub message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down")
}

// QueueMessage enqueues a message for the hub loop without blocking.
// It reports whether the message was accepted.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// Close shuts down the hub loop.
func (h *Hub) Close() {
	close(h.messageChan)
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		return
	}
	h.mu.Lock()
	h.clients[client.ConnID()] = client
	h.mu.Unlock()
	logrus.WithField("conn_id", client.ConnID()).Debug("Client registered to hub")
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		return
	}
	connID := client.ConnID()

	h.mu.Lock()
	if _, ok := h.clients[connID]; ok {
		delete(h.clients, connID)
		close(client.send)
	}
	for code, conns := range h.rooms {
		if conns[connID] {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(h.rooms, code)
			}
		}
	}
	h.mu.Unlock()

	if h.dispatcher != nil {
		h.dispatcher.Disconnected(connID)
	}
	logrus.WithField("conn_id", connID).Info("Client unregistered from hub")
}

// Subscribe adds a connection to a room's broadcast group.
func (h *Hub) Subscribe(roomCode, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	if _, ok := h.rooms[roomCode]; !ok {
		h.rooms[roomCode] = make(map[string]bool)
	}
	h.rooms[roomCode][connID] = true
}

// Unsubscribe removes a connection from a room's broadcast group,
// synchronously with the membership mutation that triggered it.
func (h *Hub) Unsubscribe(roomCode, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomCode]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.rooms, roomCode)
		}
	}
}

// Broadcast sends an event to every subscriber of a room. Non-blocking
// per client: a full send buffer drops the message for that client.
func (h *Hub) Broadcast(roomCode string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).WithField("room_code", roomCode).Error("Failed to marshal broadcast event")
		return
	}

	// Sends stay under the read lock: unregisterClient closes
	// client.send under the write lock, so a broadcast racing a
	// disconnect must not send after release. The sends are
	// non-blocking, the lock is never held on a slow client.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.rooms[roomCode] {
		client, ok := h.clients[connID]
		if !ok {
			continue
		}
		select {
		case client.send <- payload:
		default:
			logrus.WithField("conn_id", connID).Warn("Client send buffer full, dropping broadcast")
		}
	}
}

// SendTo sends an event to a single connection.
func (h *Hub) SendTo(connID string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).WithField("conn_id", connID).Error("Failed to marshal direct event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case client.send <- payload:
	default:
		logrus.WithField("conn_id", connID).Warn("Client send buffer full, dropping direct message")
	}
}
