package tracker

import "time"

type Options struct {
	// ConfirmWindow is how long a freshly paid order shows payment_confirmed
	// before it is displayed as preparing.
	ConfirmWindow   time.Duration
	RefetchDelay    time.Duration
	PollInterval    time.Duration
	NotificationTTL time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	TickInterval    time.Duration
	Clock           func() time.Time
}

func DefaultOptions() Options {
	return Options{
		ConfirmWindow:   4 * time.Second,
		RefetchDelay:    time.Second,
		PollInterval:    10 * time.Second,
		NotificationTTL: 8 * time.Second,
		DialTimeout:     15 * time.Second,
		ReadTimeout:     30 * time.Second,
		TickInterval:    250 * time.Millisecond,
		Clock:           time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ConfirmWindow <= 0 {
		o.ConfirmWindow = d.ConfirmWindow
	}
	if o.RefetchDelay <= 0 {
		o.RefetchDelay = d.RefetchDelay
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.NotificationTTL <= 0 {
		o.NotificationTTL = d.NotificationTTL
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = d.DialTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = d.ReadTimeout
	}
	if o.TickInterval <= 0 {
		o.TickInterval = d.TickInterval
	}
	if o.Clock == nil {
		o.Clock = d.Clock
	}
	return o
}
