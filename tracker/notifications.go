package tracker

import "time"

type Notification struct {
	OrderID   string
	Status    string
	Message   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// notificationSet holds the visible notifications, at most one per
// (order, status) pair while it is active.
type notificationSet struct {
	ttl   time.Duration
	items []Notification
}

func newNotificationSet(ttl time.Duration) *notificationSet {
	return &notificationSet{ttl: ttl}
}

func (s *notificationSet) add(n Notification, now time.Time) bool {
	s.prune(now)
	for _, existing := range s.items {
		if existing.OrderID == n.OrderID && existing.Status == n.Status {
			return false
		}
	}
	n.CreatedAt = now
	n.ExpiresAt = now.Add(s.ttl)
	s.items = append(s.items, n)
	return true
}

func (s *notificationSet) prune(now time.Time) {
	kept := s.items[:0]
	for _, n := range s.items {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	s.items = kept
}

func (s *notificationSet) active() []Notification {
	return append([]Notification(nil), s.items...)
}
