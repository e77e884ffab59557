package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/cafe-app/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 20 * time.Second
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// ControlMessage is what a client sends to change its subscriptions.
type ControlMessage struct {
	Action string `json:"action"` // join or leave
	Room   string `json:"room"`
}

type controlReply struct {
	Type  string `json:"type"`
	Room  string `json:"room,omitempty"`
	Error string `json:"error,omitempty"`
}

// Client is one websocket connection. Its rooms set is guarded by the hub lock.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	role  string
	rooms map[string]struct{}

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// Serve registers conn with the hub, joins the permitted initial rooms and
// runs the read and write pumps. It returns once the connection is closed.
func (h *Hub) Serve(conn *websocket.Conn, role string, rooms []string) {
	c := &Client{
		hub:   h,
		conn:  conn,
		role:  role,
		rooms: make(map[string]struct{}),
		send:  make(chan []byte, sendBuffer),
	}
	h.register(c)
	for _, room := range rooms {
		if room == "" {
			continue
		}
		if h.Join(c, room) {
			c.reply(controlReply{Type: "joined", Room: room})
		} else {
			c.reply(controlReply{Type: "error", Room: room, Error: "not allowed to join room"})
		}
	}

	go c.writePump()
	c.readPump()
}

func (c *Client) Role() string {
	return c.role
}

func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) reply(r controlReply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *Client) readPump() {
	defer c.hub.unregister(c)

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
				utils.ErrorLogger.Errorf("WebSocket error: %v", err)
			}
			return
		}
		c.handle(message)
	}
}

func (c *Client) handle(message []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.reply(controlReply{Type: "error", Error: "malformed message"})
		return
	}
	switch msg.Action {
	case "join":
		if c.hub.Join(c, msg.Room) {
			c.reply(controlReply{Type: "joined", Room: msg.Room})
		} else {
			c.reply(controlReply{Type: "error", Room: msg.Room, Error: "not allowed to join room"})
		}
	case "leave":
		c.hub.Leave(c, msg.Room)
		c.reply(controlReply{Type: "left", Room: msg.Room})
	default:
		c.reply(controlReply{Type: "error", Error: "unknown action"})
	}
}

func (c *Client) writePump() {
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
