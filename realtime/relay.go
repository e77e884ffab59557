package realtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yeremiapane/cafe-app/utils"
)

// Relay carries events between server instances. Every instance, including
// the publisher, receives each published event through Subscribe.
type Relay interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(ctx context.Context, handle func(Event)) error
	Close() error
}

// RelayBroadcaster publishes through a Relay and feeds whatever the relay
// delivers into the local hub. If publishing fails, or the subscription is
// down, the event is delivered locally so this instance's clients still see
// it.
type RelayBroadcaster struct {
	relay    Relay
	local    *Hub
	pending  chan Event
	timeout  time.Duration
	metrics  *Metrics
	retryMin time.Duration
	retryMax time.Duration
	live     atomic.Bool
}

func NewRelayBroadcaster(relay Relay, local *Hub, queueSize int, metrics *Metrics) *RelayBroadcaster {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &RelayBroadcaster{
		relay:    relay,
		local:    local,
		pending:  make(chan Event, queueSize),
		timeout:  2 * time.Second,
		metrics:  metrics,
		retryMin: time.Second,
		retryMax: 30 * time.Second,
	}
}

func (b *RelayBroadcaster) Emit(e Event) {
	if err := e.Validate(); err != nil {
		utils.ErrorLogger.Errorf("Dropping invalid event: %v", err)
		b.metrics.drop("invalid")
		return
	}
	if len(e.Rooms) == 0 {
		e.Rooms = OrderRooms(e.OrderID)
	}
	select {
	case b.pending <- e:
	default:
		b.metrics.drop("relay_queue_full")
	}
}

// Run publishes queued events and consumes the relay until ctx is done. A
// failing subscription is retried with backoff and never ends Run.
func (b *RelayBroadcaster) Run(ctx context.Context) error {
	go b.subscribeLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-b.pending:
			pctx, cancel := context.WithTimeout(ctx, b.timeout)
			err := b.relay.Publish(pctx, e)
			cancel()
			switch {
			case err != nil:
				utils.ErrorLogger.Errorf("Relay publish failed for %s, delivering locally: %v", e.OrderID, err)
				b.metrics.drop("relay_publish")
				b.local.Emit(e)
			case !b.live.Load():
				b.local.Emit(e)
			}
		}
	}
}

func (b *RelayBroadcaster) subscribeLoop(ctx context.Context) {
	backoff := b.retryMin
	for {
		started := time.Now()
		b.live.Store(true)
		err := b.relay.Subscribe(ctx, b.local.Emit)
		b.live.Store(false)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > b.retryMax {
			backoff = b.retryMin
		}
		utils.ErrorLogger.Errorf("Relay subscription lost, retrying in %s: %v", backoff, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > b.retryMax {
			backoff = b.retryMax
		}
	}
}
