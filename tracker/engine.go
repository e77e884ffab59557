package tracker

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yeremiapane/cafe-app/lifecycle"
	"github.com/yeremiapane/cafe-app/realtime"
)

type AlertKind string

const (
	AlertProgress  AlertKind = "progress"
	AlertStatus    AlertKind = "status"
	AlertFirstSeen AlertKind = "first_seen"
)

type Alert struct {
	Kind         AlertKind
	OrderID      string
	FromStatus   string
	ToStatus     string
	FromProgress int
	ToProgress   int
}

type ApplyResult struct {
	Matched bool
	OrderID string
	// NeedsRefresh is set when the event could not be placed locally.
	NeedsRefresh bool
	Alerts       []Alert
}

type entry struct {
	order       Order
	confirmedAt time.Time
	lastEventAt time.Time
	seq         int

	seen         bool
	lastDisplay  string
	lastProgress int
}

// Engine is the local order cache of one client view. It is a reducer over
// pushed events and full snapshots; all methods are safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	opts    Options
	entries map[string]*entry
	nextSeq int
	notes   *notificationSet
}

func NewEngine(opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		opts:    opts,
		entries: make(map[string]*entry),
		notes:   newNotificationSet(opts.NotificationTTL),
	}
}

// ApplyEvent merges a pushed event into the matching order. Fields absent
// from the event keep their local value.
func (e *Engine) ApplyEvent(ev realtime.Event) ApplyResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.opts.Clock()
	ent := e.match(ev.OrderID)
	if ent == nil {
		return ApplyResult{NeedsRefresh: true}
	}

	prev := ent.order
	merged := prev
	if ev.Status != "" {
		merged.Status = string(lifecycle.NormalizeStatus(ev.Status))
	}
	if ev.PaymentStatus != "" {
		merged.PaymentStatus = string(lifecycle.NormalizePaymentStatus(ev.PaymentStatus))
	}
	if ev.PaymentMethod != "" {
		merged.PaymentMethod = string(lifecycle.NormalizePaymentMethod(ev.PaymentMethod))
	}

	if !prev.paid() && merged.paid() && !pastConfirmation(prev.Status) {
		ent.confirmedAt = now
		if !pastConfirmation(merged.Status) {
			merged.Status = string(lifecycle.StatusPaymentConfirmed)
		}
	}

	ent.order = merged
	if ev.Timestamp.After(ent.lastEventAt) {
		ent.lastEventAt = ev.Timestamp
	}

	res := ApplyResult{Matched: true, OrderID: ent.order.OrderID}
	if a, ok := e.observe(ent, now); ok {
		res.Alerts = append(res.Alerts, a)
	}
	return res
}

// ApplySnapshot replaces the tracked set with an authoritative fetch. Orders
// missing from the snapshot are dropped. A snapshot older than the last
// applied event may not move an order backwards.
func (e *Engine) ApplySnapshot(orders []Order) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.opts.Clock()
	keep := make(map[string]struct{}, len(orders))
	var alerts []Alert

	for _, o := range orders {
		if o.OrderID == "" {
			continue
		}
		o.Status = string(lifecycle.NormalizeStatus(o.Status))
		o.PaymentStatus = string(lifecycle.NormalizePaymentStatus(o.PaymentStatus))
		o.PaymentMethod = string(lifecycle.NormalizePaymentMethod(o.PaymentMethod))
		keep[o.OrderID] = struct{}{}

		ent, ok := e.entries[o.OrderID]
		if !ok {
			e.nextSeq++
			ent = &entry{order: o, seq: e.nextSeq}
			e.entries[o.OrderID] = ent
		} else {
			if regresses(ent.order, o) && o.UpdatedAt.Before(ent.lastEventAt) {
				o.Status = ent.order.Status
				o.PaymentStatus = ent.order.PaymentStatus
			}
			if !ent.order.paid() && o.paid() && !pastConfirmation(ent.order.Status) {
				ent.confirmedAt = now
			}
			ent.order = o
		}
		if a, ok := e.observe(ent, now); ok {
			alerts = append(alerts, a)
		}
	}

	for id := range e.entries {
		if _, ok := keep[id]; !ok {
			delete(e.entries, id)
		}
	}
	return alerts
}

// Tick re-evaluates every order against the clock so the synthetic advance
// after the confirmation window is noticed, and expires old notifications.
func (e *Engine) Tick() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.opts.Clock()
	e.notes.prune(now)
	var alerts []Alert
	for _, ent := range e.sorted() {
		if a, ok := e.observe(ent, now); ok {
			alerts = append(alerts, a)
		}
	}
	return alerts
}

func (e *Engine) Views() []View {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.opts.Clock()
	sorted := e.sorted()
	views := make([]View, 0, len(sorted))
	for _, ent := range sorted {
		views = append(views, project(ent.order, ent.confirmedAt, now, e.opts.ConfirmWindow))
	}
	return views
}

func (e *Engine) View(orderID string) (View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent := e.match(orderID)
	if ent == nil {
		return View{}, false
	}
	return project(ent.order, ent.confirmedAt, e.opts.Clock(), e.opts.ConfirmWindow), true
}

func (e *Engine) Notifications() []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notes.prune(e.opts.Clock())
	return e.notes.active()
}

func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// observe compares the current projection with the last one shown and
// reports at most one alert. It expects e.mu to be held.
func (e *Engine) observe(ent *entry, now time.Time) (Alert, bool) {
	v := project(ent.order, ent.confirmedAt, now, e.opts.ConfirmWindow)
	a := Alert{
		OrderID:      ent.order.OrderID,
		FromStatus:   ent.lastDisplay,
		ToStatus:     v.DisplayStatus,
		FromProgress: ent.lastProgress,
		ToProgress:   v.Progress,
	}

	first := !ent.seen
	changed := ent.lastDisplay != v.DisplayStatus
	increased := v.Progress > ent.lastProgress
	ent.seen = true
	ent.lastDisplay = v.DisplayStatus
	ent.lastProgress = v.Progress

	if first {
		if isDefaultStatus(v.DisplayStatus) {
			return a, false
		}
		a.Kind = AlertFirstSeen
		return a, true
	}
	if changed {
		e.notes.add(Notification{
			OrderID: ent.order.OrderID,
			Status:  v.DisplayStatus,
			Message: notificationMessage(ent.order, v),
		}, now)
	}
	switch {
	case increased:
		a.Kind = AlertProgress
	case changed:
		a.Kind = AlertStatus
	default:
		return a, false
	}
	return a, true
}

// match finds an order by id or short code. Exact matches win; after that
// an incoming id may wrap the local id (e.g. "order-ORD-...") or be a prefix
// fragment of it. A short code is never searched for inside an id.
func (e *Engine) match(id string) *entry {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	if ent, ok := e.entries[id]; ok {
		return ent
	}
	sorted := e.sorted()
	for _, ent := range sorted {
		if ent.order.OrderNumber != "" && strings.EqualFold(ent.order.OrderNumber, id) {
			return ent
		}
	}
	for _, ent := range sorted {
		if strings.Contains(id, ent.order.OrderID) || strings.Contains(ent.order.OrderID, id) {
			return ent
		}
	}
	return nil
}

func (e *Engine) sorted() []*entry {
	out := make([]*entry, 0, len(e.entries))
	for _, ent := range e.entries {
		out = append(out, ent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func pastConfirmation(status string) bool {
	switch lifecycle.NormalizeStatus(status) {
	case lifecycle.StatusPreparing, lifecycle.StatusReady, lifecycle.StatusCompleted, lifecycle.StatusCancelled:
		return true
	}
	return false
}

func isDefaultStatus(status string) bool {
	s := lifecycle.NormalizeStatus(status)
	return s == "" || s.AwaitingPayment()
}

// regresses reports whether incoming would move local backwards.
func regresses(local, incoming Order) bool {
	if local.paid() && !incoming.paid() {
		return true
	}
	ls, is := lifecycle.NormalizeStatus(local.Status), lifecycle.NormalizeStatus(incoming.Status)
	if ls == lifecycle.StatusCancelled || is == lifecycle.StatusCancelled {
		return false
	}
	return is.Rank() < ls.Rank()
}

func notificationMessage(o Order, v View) string {
	name := o.OrderNumber
	if name == "" {
		name = o.OrderID
	}
	return fmt.Sprintf("Order %s: %s", name, v.Label)
}
