package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cafe-app/utils"
)

// Broadcaster accepts events for fan-out. Emit never blocks the caller.
type Broadcaster interface {
	Emit(e Event)
}

// NopBroadcaster discards every event.
type NopBroadcaster struct{}

func (NopBroadcaster) Emit(Event) {}

// Hub delivers events to the websocket clients subscribed to their rooms.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}

	queue   chan Event
	metrics *Metrics
}

func NewHub(queueSize int, metrics *Metrics) *Hub {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		queue:   make(chan Event, queueSize),
		metrics: metrics,
	}
}

// Emit queues e for delivery. When the queue is full the event is dropped;
// clients recover it on their next refetch.
func (h *Hub) Emit(e Event) {
	if err := e.Validate(); err != nil {
		utils.ErrorLogger.Errorf("Dropping invalid event: %v", err)
		h.metrics.drop("invalid")
		return
	}
	if len(e.Rooms) == 0 {
		e.Rooms = OrderRooms(e.OrderID)
	}
	select {
	case h.queue <- e:
		h.metrics.emit(e.Type)
	default:
		utils.ErrorLogger.WithField("order_id", e.OrderID).Warn("Broadcast queue full, dropping event")
		h.metrics.drop("queue_full")
	}
}

// Run drains the queue until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case e := <-h.queue:
			h.deliver(e)
		}
	}
}

func (h *Hub) deliver(e Event) {
	rooms := e.Rooms
	e.Rooms = nil
	frame, err := json.Marshal(e)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling event: %v", err)
		return
	}

	h.mu.RLock()
	targets := make(map[*Client]struct{})
	for _, room := range rooms {
		for c := range h.rooms[room] {
			targets[c] = struct{}{}
		}
	}
	for c := range h.rooms[Global] {
		targets[c] = struct{}{}
	}
	h.mu.RUnlock()

	for c := range targets {
		if c.enqueue(frame) {
			h.metrics.deliver()
		} else {
			h.metrics.drop("client_buffer_full")
		}
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"type":     e.Type,
		"order_id": e.OrderID,
		"clients":  len(targets),
	}).Debug("event delivered")
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.connected(1)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.removeFromRoom(c, room)
	}
	h.mu.Unlock()

	c.close()
	h.metrics.connected(-1)
}

// Join subscribes c to room if its role allows it.
func (h *Hub) Join(c *Client, room string) bool {
	if !CanJoin(c.role, room) {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
	return true
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(c, room)
}

// removeFromRoom expects h.mu to be held.
func (h *Hub) removeFromRoom(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.unregister(c)
	}
}
