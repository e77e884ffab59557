package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePayload_LegacyKeys(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]interface{}
	}{
		{"canonical", map[string]interface{}{"orderId": "ORD-1", "status": "ready"}},
		{"internal id", map[string]interface{}{"internalOrderId": "ORD-1", "status": "ready"}},
		{"snake case", map[string]interface{}{"order_id": "ORD-1", "status": "ready"}},
		{"bare id", map[string]interface{}{"id": "ORD-1", "status": "ready"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := NormalizePayload(EventOrderUpdated, tc.raw)
			require.NoError(t, err)
			assert.Equal(t, "ORD-1", e.OrderID)
			assert.Equal(t, "ready", e.Status)
			assert.Equal(t, OrderRooms("ORD-1"), e.Rooms)
		})
	}

	e, err := NormalizePayload(EventPaymentUpdated, map[string]interface{}{
		"internalOrderId": "ORD-2",
		"payment_status":  "paid",
		"payment_method":  "gcash",
	})
	require.NoError(t, err)
	assert.Equal(t, "paid", e.PaymentStatus)
	assert.Equal(t, "gcash", e.PaymentMethod)
	assert.Empty(t, e.Status)

	_, err = NormalizePayload(EventOrderUpdated, map[string]interface{}{"status": "ready"})
	assert.ErrorIs(t, err, ErrMissingOrderID)
}

func TestEventJSON_OmitsUnchangedFields(t *testing.T) {
	e := Event{Type: EventOrderUpdated, OrderID: "ORD-1", Status: "ready"}
	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "ORD-1", m["orderId"])
	assert.NotContains(t, m, "paymentStatus")
	assert.NotContains(t, m, "paymentMethod")
}

func TestCanJoin(t *testing.T) {
	assert.True(t, CanJoin(RoleGuest, OrderRoom("ORD-1")))
	assert.False(t, CanJoin(RoleGuest, "order-"))
	assert.False(t, CanJoin(RoleGuest, StaffRoom))
	assert.False(t, CanJoin(RoleGuest, AdminRoom))
	assert.True(t, CanJoin(RoleStaff, StaffRoom))
	assert.False(t, CanJoin(RoleStaff, AdminRoom))
	assert.True(t, CanJoin(RoleAdmin, AdminRoom))
	assert.True(t, CanJoin(RoleAdmin, StaffRoom))
	assert.True(t, CanJoin(RoleAdmin, Global))
	assert.False(t, CanJoin(RoleAdmin, "lobby"))
}

func TestHub_EmitDoesNotBlockWhenQueueFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	hub := NewHub(1, metrics)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			hub.Emit(NewEvent(EventOrderUpdated, "ORD-1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full queue")
	}
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.dropped.WithLabelValues("queue_full")))
}

func TestHub_RejectsEventWithoutOrderID(t *testing.T) {
	hub := NewHub(4, nil)
	hub.Emit(Event{Type: EventOrderUpdated})
	assert.Len(t, hub.queue, 0)
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(16, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var rooms []string
		if v := r.URL.Query().Get("rooms"); v != "" {
			rooms = strings.Split(v, ",")
		}
		hub.Serve(conn, r.URL.Query().Get("role"), rooms)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil skips control replies and returns the next order event.
func readUntil(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var probe map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &probe))
		if _, ok := probe["orderId"]; !ok {
			continue
		}
		var e Event
		require.NoError(t, json.Unmarshal(data, &e))
		return e
	}
}

func waitForRoom(t *testing.T, hub *Hub, room string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.RoomSize(room) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_DeliversToOrderAndRoleRooms(t *testing.T) {
	hub, srv := startHub(t)

	guest := dial(t, srv, "role=guest&rooms=order-ORD-1")
	other := dial(t, srv, "role=guest&rooms=order-ORD-2")
	staff := dial(t, srv, "role=staff&rooms=staff-room")
	waitForRoom(t, hub, OrderRoom("ORD-1"), 1)
	waitForRoom(t, hub, OrderRoom("ORD-2"), 1)
	waitForRoom(t, hub, StaffRoom, 1)

	e := NewEvent(EventOrderUpdated, "ORD-1")
	e.Status = "ready"
	hub.Emit(e)

	got := readUntil(t, guest)
	assert.Equal(t, "ORD-1", got.OrderID)
	assert.Equal(t, "ready", got.Status)
	assert.Empty(t, got.Rooms)

	got = readUntil(t, staff)
	assert.Equal(t, EventOrderUpdated, got.Type)

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	for {
		_, data, err := other.ReadMessage()
		if err != nil {
			break
		}
		assert.NotContains(t, string(data), "ORD-1")
	}
}

func TestHub_JoinAndLeaveOverSocket(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv, "role=guest")
	require.NoError(t, conn.WriteJSON(ControlMessage{Action: "join", Room: StaffRoom}))
	require.NoError(t, conn.WriteJSON(ControlMessage{Action: "join", Room: OrderRoom("ORD-9")}))
	waitForRoom(t, hub, OrderRoom("ORD-9"), 1)
	assert.Equal(t, 0, hub.RoomSize(StaffRoom))

	require.NoError(t, conn.WriteJSON(ControlMessage{Action: "leave", Room: OrderRoom("ORD-9")}))
	waitForRoom(t, hub, OrderRoom("ORD-9"), 0)
}

type memoryRelay struct {
	mu       sync.Mutex
	handlers []func(Event)
	fail     bool
	ready    chan struct{}
}

func (m *memoryRelay) Publish(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return assert.AnError
	}
	for _, h := range m.handlers {
		h(e)
	}
	return nil
}

func (m *memoryRelay) Subscribe(ctx context.Context, handle func(Event)) error {
	m.mu.Lock()
	m.handlers = append(m.handlers, handle)
	m.mu.Unlock()
	close(m.ready)
	<-ctx.Done()
	return nil
}

func (m *memoryRelay) Close() error { return nil }

func TestRelayBroadcaster_FeedsLocalHub(t *testing.T) {
	for _, fail := range []bool{false, true} {
		relay := &memoryRelay{fail: fail, ready: make(chan struct{})}
		hub := NewHub(8, nil)
		b := NewRelayBroadcaster(relay, hub, 8, nil)

		ctx, cancel := context.WithCancel(context.Background())
		go b.Run(ctx)
		<-relay.ready

		e := NewEvent(EventPaymentUpdated, "ORD-5")
		e.PaymentStatus = "paid"
		b.Emit(e)

		select {
		case got := <-hub.queue:
			assert.Equal(t, "ORD-5", got.OrderID)
			assert.Equal(t, "paid", got.PaymentStatus)
		case <-time.After(2 * time.Second):
			t.Fatalf("event not delivered (publish failing=%v)", fail)
		}
		cancel()
	}
}

// flakyRelay refuses the first subscriptions, then behaves like memoryRelay.
type flakyRelay struct {
	memoryRelay
	failures int
	attempts atomic.Int32
}

func (f *flakyRelay) Subscribe(ctx context.Context, handle func(Event)) error {
	if int(f.attempts.Add(1)) <= f.failures {
		return errors.New("redis channel closed")
	}
	return f.memoryRelay.Subscribe(ctx, handle)
}

func TestRelayBroadcaster_SubscribeFailureKeepsRunning(t *testing.T) {
	relay := &flakyRelay{memoryRelay: memoryRelay{ready: make(chan struct{})}, failures: 2}
	hub := NewHub(8, nil)
	b := NewRelayBroadcaster(relay, hub, 8, nil)
	b.retryMin, b.retryMax = 10*time.Millisecond, 20*time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	select {
	case <-relay.ready:
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay was never resubscribed")
	}
	assert.GreaterOrEqual(t, int(relay.attempts.Load()), 3)

	e := NewEvent(EventOrderUpdated, "ORD-6")
	e.Status = "ready"
	b.Emit(e)
	select {
	case got := <-hub.queue:
		assert.Equal(t, "ORD-6", got.OrderID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered after resubscribe")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestRelayBroadcaster_DeliversLocallyWhileSubscriptionDown(t *testing.T) {
	relay := &flakyRelay{memoryRelay: memoryRelay{ready: make(chan struct{})}, failures: 1000}
	hub := NewHub(8, nil)
	b := NewRelayBroadcaster(relay, hub, 8, nil)
	b.retryMin, b.retryMax = time.Hour, time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)
	require.Eventually(t, func() bool {
		return relay.attempts.Load() >= 1 && !b.live.Load()
	}, 2*time.Second, 5*time.Millisecond)

	e := NewEvent(EventPaymentUpdated, "ORD-7")
	e.PaymentStatus = "paid"
	b.Emit(e)
	select {
	case got := <-hub.queue:
		assert.Equal(t, "ORD-7", got.OrderID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered locally")
	}
}
