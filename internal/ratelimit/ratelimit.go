// Package ratelimit tracks timestamped usage events per user and
// evaluates sliding-window quotas against them.
package ratelimit

import (
	"sync"
	"time"
)

// Quota is a sliding-window cap: at most MaxPoints may be consumed
// within Window. Multiple quotas on one action are evaluated as a
// logical AND of "not limited".
type Quota struct {
	Window    time.Duration
	MaxPoints int
}

// event is a single recorded usage.
type event struct {
	at     time.Time
	points int
	tags   []string
}

func (e event) hasTag(tag string) bool {
	for _, t := range e.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// bucket holds one user's events. Each bucket carries its own lock so
// unrelated chats sharing a sender id cannot race on append/read.
type bucket struct {
	mu sync.Mutex

	events []event

	// maxWindow is the largest window this bucket has been evaluated
	// against; events older than that are safe to prune.
	maxWindow time.Duration
}

// Limiter records usage events and answers sliding-window quota checks.
// Safe for concurrent use.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	// now is the clock; replaceable in tests.
	now func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the limiter's clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter creates an empty limiter.
func NewLimiter(opts ...Option) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends a usage event for the user at the current time.
// Side-effect only; never fails. Tags scope the event for later
// tag-filtered quota checks (e.g. "cmd:ping", "plugin:ai").
func (l *Limiter) Record(userID string, points int, tags ...string) {
	if points <= 0 {
		points = 1
	}

	b := l.bucket(userID)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	b.events = append(b.events, event{at: now, points: points, tags: tags})

	// Opportunistic pruning; correctness depends only on the window
	// comparison in Limited.
	if b.maxWindow > 0 {
		b.prune(now)
	}
}

// Limited reports whether any quota is breached for the user. Events
// are filtered to the given tag unless tag is empty. The next action
// is blocked once any single quota's in-window sum reaches MaxPoints.
func (l *Limiter) Limited(userID string, quotas []Quota, tag string) bool {
	if len(quotas) == 0 {
		return false
	}

	b := l.bucket(userID)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	for _, q := range quotas {
		if q.Window > b.maxWindow {
			b.maxWindow = q.Window
		}
		if q.Window <= 0 || q.MaxPoints <= 0 {
			continue
		}

		cutoff := now.Add(-q.Window)
		sum := 0
		for _, e := range b.events {
			if e.at.Before(cutoff) {
				continue
			}
			if tag != "" && !e.hasTag(tag) {
				continue
			}
			sum += e.points
		}
		if sum >= q.MaxPoints {
			return true
		}
	}
	return false
}

// Reset drops all recorded events for a user.
func (l *Limiter) Reset(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, userID)
}

// bucket returns the user's bucket, creating it if needed.
func (l *Limiter) bucket(userID string) *bucket {
	l.mu.RLock()
	b, ok := l.buckets[userID]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.buckets[userID]; ok {
		return b
	}
	b = &bucket{}
	l.buckets[userID] = b
	return b
}

// prune drops events older than the largest window seen.
// Must be called with b.mu held.
func (b *bucket) prune(now time.Time) {
	cutoff := now.Add(-b.maxWindow)
	keep := b.events[:0]
	for _, e := range b.events {
		if !e.at.Before(cutoff) {
			keep = append(keep, e)
		}
	}
	b.events = keep
}
