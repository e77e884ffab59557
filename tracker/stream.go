package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/cafe-app/realtime"
)

// Stream delivers pushed events until the connection drops or ctx ends.
type Stream interface {
	Run(ctx context.Context, handle func(realtime.Event), connected func(bool)) error
}

// WSStream subscribes to the server's websocket endpoint. Every joined room
// is joined again after a reconnect.
type WSStream struct {
	URL         string // ws://host/ws
	Token       string
	DialTimeout time.Duration
	ReadTimeout time.Duration

	mu    sync.Mutex
	rooms []string
	conn  *websocket.Conn
}

func NewWSStream(rawURL, token string, opts Options) *WSStream {
	opts = opts.withDefaults()
	return &WSStream{
		URL:         rawURL,
		Token:       token,
		DialTimeout: opts.DialTimeout,
		ReadTimeout: opts.ReadTimeout,
	}
}

// Join adds room to the subscription set, sending the join right away when
// connected.
func (s *WSStream) Join(room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r == room {
			return nil
		}
	}
	s.rooms = append(s.rooms, room)
	if s.conn != nil {
		return s.conn.WriteJSON(realtime.ControlMessage{Action: "join", Room: room})
	}
	return nil
}

func (s *WSStream) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.rooms...)
}

func (s *WSStream) Run(ctx context.Context, handle func(realtime.Event), connected func(bool)) error {
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("parse stream url: %w", err)
	}
	if s.Token != "" {
		q := u.Query()
		q.Set("token", s.Token)
		u.RawQuery = q.Encode()
	}

	dialer := websocket.Dialer{HandshakeTimeout: s.DialTimeout}
	dctx, cancel := context.WithTimeout(ctx, s.DialTimeout)
	conn, _, err := dialer.DialContext(dctx, u.String(), nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.URL, err)
	}

	s.mu.Lock()
	s.conn = conn
	for _, room := range s.rooms {
		if err := conn.WriteJSON(realtime.ControlMessage{Action: "join", Room: room}); err != nil {
			s.conn = nil
			s.mu.Unlock()
			conn.Close()
			return fmt.Errorf("join %s: %w", room, err)
		}
	}
	s.mu.Unlock()

	connected(true)
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
		connected(false)
	}()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
		s.mu.Lock()
		defer s.mu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))

		ev, ok := decodeEvent(data)
		if ok {
			handle(ev)
		}
	}
}

// decodeEvent accepts canonical and legacy payloads and skips control replies.
func decodeEvent(data []byte) (realtime.Event, bool) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return realtime.Event{}, false
	}
	typ, _ := raw["type"].(string)
	if typ == "" {
		typ, _ = raw["event"].(string)
	}
	switch realtime.EventType(strings.TrimSpace(typ)) {
	case realtime.EventNewOrder, realtime.EventOrderUpdated, realtime.EventPaymentUpdated:
	default:
		return realtime.Event{}, false
	}
	ev, err := realtime.NormalizePayload(realtime.EventType(typ), raw)
	if err != nil {
		return realtime.Event{}, false
	}
	return ev, true
}
