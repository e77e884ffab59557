package tracker

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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cafe-app/realtime"
)

type countingFetcher struct {
	calls  atomic.Int32
	mu     sync.Mutex
	orders []Order
}

func (f *countingFetcher) Fetch(context.Context) ([]Order, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Order(nil), f.orders...), nil
}

func (f *countingFetcher) set(orders ...Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = orders
}

// sequenceFetcher serves its pages in order and then repeats the last one.
type sequenceFetcher struct {
	mu    sync.Mutex
	calls int
	pages [][]Order
}

func (f *sequenceFetcher) Fetch(context.Context) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.pages) {
		i = len(f.pages) - 1
	}
	f.calls++
	return f.pages[i], nil
}

type downStream struct{ attempts atomic.Int32 }

func (s *downStream) Run(context.Context, func(realtime.Event), func(bool)) error {
	s.attempts.Add(1)
	return errors.New("connection refused")
}

// scriptedStream connects, replays its events, then stays up until ctx ends.
type scriptedStream struct {
	events []realtime.Event
}

func (s *scriptedStream) Run(ctx context.Context, handle func(realtime.Event), connected func(bool)) error {
	connected(true)
	defer connected(false)
	for _, ev := range s.events {
		handle(ev)
	}
	<-ctx.Done()
	return nil
}

func fastOptions() Options {
	opts := DefaultOptions()
	opts.RefetchDelay = 20 * time.Millisecond
	opts.PollInterval = 30 * time.Millisecond
	opts.TickInterval = 10 * time.Millisecond
	return opts
}

func TestRunner_PollsWhileDisconnected(t *testing.T) {
	fetcher := &countingFetcher{}
	fetcher.set(pendingOrder("ORD-1"))
	stream := &downStream{}
	engine := NewEngine(fastOptions())
	r := NewRunner(engine, fetcher, stream, fastOptions(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	assert.GreaterOrEqual(t, fetcher.calls.Load(), int32(4))
	assert.GreaterOrEqual(t, stream.attempts.Load(), int32(1))
	assert.False(t, r.Connected())
	assert.Equal(t, 1, engine.Len())
}

func TestRunner_UnknownOrderEventTriggersRefetch(t *testing.T) {
	fetcher := &sequenceFetcher{pages: [][]Order{
		{pendingOrder("ORD-1")},
		{pendingOrder("ORD-1"), pendingOrder("ORD-2")},
	}}

	ev := realtime.Event{Type: realtime.EventNewOrder, OrderID: "ORD-2", Status: "pending"}
	opts := fastOptions()
	opts.PollInterval = time.Hour
	engine := NewEngine(opts)

	var mu sync.Mutex
	var refreshes int
	r := NewRunner(engine, fetcher, &scriptedStream{events: []realtime.Event{ev}}, opts, func(u Update) {
		if u.Refreshed {
			mu.Lock()
			refreshes++
			mu.Unlock()
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return engine.Len() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, r.Connected())
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, refreshes, 2)
}

func TestRunner_CollapsesBurstIntoOneRefetch(t *testing.T) {
	fetcher := &countingFetcher{}
	fetcher.set(pendingOrder("ORD-1"))

	var burst []realtime.Event
	for i := 0; i < 5; i++ {
		burst = append(burst, realtime.Event{Type: realtime.EventOrderUpdated, OrderID: "ORD-1", Status: "pending"})
	}
	opts := fastOptions()
	opts.PollInterval = time.Hour
	opts.RefetchDelay = 50 * time.Millisecond
	r := NewRunner(NewEngine(opts), fetcher, &scriptedStream{events: burst}, opts, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	// initial load plus one debounced refetch, maybe one more for the connect
	assert.LessOrEqual(t, fetcher.calls.Load(), int32(3))
	assert.GreaterOrEqual(t, fetcher.calls.Load(), int32(2))
}

func TestWSStream_JoinsRoomsOnEveryConnect(t *testing.T) {
	hub := realtime.NewHub(16, nil)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, realtime.RoleGuest, nil)
	}))
	defer srv.Close()

	stream := NewWSStream("ws"+strings.TrimPrefix(srv.URL, "http"), "", DefaultOptions())
	require.NoError(t, stream.Join(realtime.OrderRoom("ORD-1")))
	room := realtime.OrderRoom("ORD-1")

	for round := 0; round < 2; round++ {
		got := make(chan realtime.Event, 1)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- stream.Run(ctx, func(ev realtime.Event) { got <- ev }, func(bool) {})
		}()

		require.Eventually(t, func() bool { return hub.RoomSize(room) == 1 }, 2*time.Second, 10*time.Millisecond)

		ev := realtime.NewEvent(realtime.EventOrderUpdated, "ORD-1")
		ev.Status = "ready"
		hub.Emit(ev)
		select {
		case e := <-got:
			assert.Equal(t, "ready", e.Status)
		case <-time.After(2 * time.Second):
			t.Fatalf("round %d: event not received", round)
		}

		cancel()
		require.NoError(t, <-done)
		require.Eventually(t, func() bool { return hub.RoomSize(room) == 0 }, 2*time.Second, 10*time.Millisecond)
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/orders":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			assert.Equal(t, "preparing", r.URL.Query().Get("status"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"orders":  []Order{{OrderID: "ORD-1", Status: "preparing"}},
			})
		case r.URL.Path == "/orders/ORD-2":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"order":   Order{OrderID: "ORD-2", Status: "ready", PaymentStatus: "paid"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "Order not found"})
		}
	}))
	defer srv.Close()

	list := &HTTPFetcher{BaseURL: srv.URL, Token: "tok", Query: map[string][]string{"status": {"preparing"}}}
	orders, err := list.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ORD-1", orders[0].OrderID)

	single := &HTTPFetcher{BaseURL: srv.URL + "/", OrderIDs: []string{"ORD-2"}}
	orders, err = single.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "paid", orders[0].PaymentStatus)

	missing := &HTTPFetcher{BaseURL: srv.URL, OrderIDs: []string{"ORD-404"}}
	_, err = missing.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
}
