package tracker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yeremiapane/cafe-app/realtime"
	"github.com/yeremiapane/cafe-app/utils"
	"golang.org/x/sync/errgroup"
)

// Update is reported to the view after anything changed the engine.
type Update struct {
	Alerts    []Alert
	Refreshed bool
	Connected bool
}

// Runner keeps an Engine fresh: it applies pushed events, re-fetches shortly
// after each one, and polls while the push channel is down. Correctness only
// depends on the fetches; the stream lowers latency.
type Runner struct {
	engine  *Engine
	fetcher Fetcher
	stream  Stream
	opts    Options
	notify  func(Update)

	connected atomic.Bool
	refetch   chan struct{}
}

func NewRunner(engine *Engine, fetcher Fetcher, stream Stream, opts Options, notify func(Update)) *Runner {
	if notify == nil {
		notify = func(Update) {}
	}
	return &Runner{
		engine:  engine,
		fetcher: fetcher,
		stream:  stream,
		opts:    opts.withDefaults(),
		notify:  notify,
		refetch: make(chan struct{}, 1),
	}
}

func (r *Runner) Connected() bool {
	return r.connected.Load()
}

func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.fetchLoop(ctx) })
	if r.stream != nil {
		g.Go(func() error { return r.streamLoop(ctx) })
	}
	return g.Wait()
}

// RequestRefetch schedules a fetch after RefetchDelay. Requests arriving
// before it fires collapse into one.
func (r *Runner) RequestRefetch() {
	select {
	case r.refetch <- struct{}{}:
	default:
	}
}

func (r *Runner) handleEvent(ev realtime.Event) {
	res := r.engine.ApplyEvent(ev)
	if res.NeedsRefresh {
		utils.InfoLogger.WithField("order_id", ev.OrderID).Debug("event for unknown order, refetching")
	}
	if len(res.Alerts) > 0 {
		r.notify(Update{Alerts: res.Alerts, Connected: r.Connected()})
	}
	r.RequestRefetch()
}

func (r *Runner) fetchLoop(ctx context.Context) error {
	r.fetch(ctx)

	poll := time.NewTicker(r.opts.PollInterval)
	defer poll.Stop()
	tick := time.NewTicker(r.opts.TickInterval)
	defer tick.Stop()

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.refetch:
			if debounce == nil {
				debounce = time.NewTimer(r.opts.RefetchDelay)
				fire = debounce.C
			}
		case <-fire:
			debounce, fire = nil, nil
			r.fetch(ctx)
		case <-poll.C:
			if !r.Connected() {
				r.fetch(ctx)
			}
		case <-tick.C:
			if alerts := r.engine.Tick(); len(alerts) > 0 {
				r.notify(Update{Alerts: alerts, Connected: r.Connected()})
			}
		}
	}
}

func (r *Runner) fetch(ctx context.Context) {
	orders, err := r.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			utils.ErrorLogger.Errorf("Order refresh failed: %v", err)
		}
		return
	}
	alerts := r.engine.ApplySnapshot(orders)
	r.notify(Update{Alerts: alerts, Refreshed: true, Connected: r.Connected()})
}

func (r *Runner) streamLoop(ctx context.Context) error {
	backoff := time.Second
	for {
		err := r.stream.Run(ctx, r.handleEvent, func(up bool) {
			r.connected.Store(up)
			if up {
				backoff = time.Second
				// catch up on anything missed while disconnected
				r.RequestRefetch()
			}
		})
		r.connected.Store(false)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			utils.ErrorLogger.Errorf("Push channel down, polling every %s: %v", r.opts.PollInterval, err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > r.opts.PollInterval {
			backoff = r.opts.PollInterval
		}
	}
}
