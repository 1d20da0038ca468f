package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config provides limiter configuration. A zero max disables that window.
type Config struct {
	MaxPerSecond int // Maximum admissions per second window (0 = unlimited)
	MaxPerMinute int // Maximum admissions per minute window (0 = unlimited)
	MaxPerDay    int // Maximum admissions per day window (0 = unlimited)

	// Window durations. Overridable so tests can run sub-second windows;
	// production code leaves these zero and gets second/minute/day.
	SecondWindow time.Duration
	MinuteWindow time.Duration
	DayWindow    time.Duration
}

// DefaultConfig returns the limits used for SharpFlow's external credentials
// when a plan does not specify its own quotas.
func DefaultConfig() Config {
	return Config{
		MaxPerSecond: 5,
		MaxPerMinute: 100,
		MaxPerDay:    2000,
	}
}

// window is one fixed window: count admissions until resetAt, then start over
type window struct {
	name     string
	max      int
	duration time.Duration
	count    int
	resetAt  time.Time
}

// Limiter tracks admission across the configured fixed windows.
// Safe for concurrent use; one instance per external credential scope.
type Limiter struct {
	mu      sync.Mutex
	windows []*window
	now     func() time.Time

	admitted uint64
	waits    uint64
}

// New creates a limiter from cfg. Windows with a zero max are not tracked.
func New(cfg Config) *Limiter {
	if cfg.SecondWindow <= 0 {
		cfg.SecondWindow = time.Second
	}
	if cfg.MinuteWindow <= 0 {
		cfg.MinuteWindow = time.Minute
	}
	if cfg.DayWindow <= 0 {
		cfg.DayWindow = 24 * time.Hour
	}

	l := &Limiter{now: time.Now}
	add := func(name string, max int, d time.Duration) {
		if max > 0 {
			l.windows = append(l.windows, &window{name: name, max: max, duration: d})
		}
	}
	add("second", cfg.MaxPerSecond, cfg.SecondWindow)
	add("minute", cfg.MaxPerMinute, cfg.MinuteWindow)
	add("day", cfg.MaxPerDay, cfg.DayWindow)

	return l
}

// rollover resets every window whose boundary has passed. Caller holds mu.
func (l *Limiter) rollover(now time.Time) {
	for _, w := range l.windows {
		if w.resetAt.IsZero() || !now.Before(w.resetAt) {
			w.count = 0
			w.resetAt = now.Add(w.duration)
		}
	}
}

// tryAdmit rolls over expired windows and, if every window has room,
// increments all counters. Otherwise it returns the resetAt of the first
// exhausted window. Caller holds mu.
func (l *Limiter) tryAdmit(now time.Time) (time.Time, bool) {
	l.rollover(now)

	for _, w := range l.windows {
		if w.count >= w.max {
			return w.resetAt, false
		}
	}
	for _, w := range l.windows {
		w.count++
	}
	l.admitted++
	return time.Time{}, true
}

// Wait blocks until one admission is granted or ctx is done. A blocked call
// sleeps until the exhausted window rolls over and then re-checks every
// window, since another granularity may also have reached its boundary.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		resetAt, ok := l.tryAdmit(now)
		if ok {
			l.mu.Unlock()
			return nil
		}
		l.waits++
		l.mu.Unlock()

		timer := time.NewTimer(resetAt.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limit wait cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// Allow reports whether one admission is available right now, consuming it
// when it is. It never blocks.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.tryAdmit(l.now())
	return ok
}

// WindowUsage describes one window's current state for introspection.
type WindowUsage struct {
	Name    string    `json:"name"`
	Used    int       `json:"used"`
	Max     int       `json:"max"`
	ResetAt time.Time `json:"reset_at"`
}

// Usage returns a snapshot of every tracked window after rolling over any
// expired ones.
func (l *Limiter) Usage() []WindowUsage {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover(l.now())
	usage := make([]WindowUsage, 0, len(l.windows))
	for _, w := range l.windows {
		usage = append(usage, WindowUsage{Name: w.name, Used: w.count, Max: w.max, ResetAt: w.resetAt})
	}
	return usage
}

// Stats returns total admissions and total throttled waits since creation.
func (l *Limiter) Stats() (admitted, waits uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.admitted, l.waits
}
