// Package interaction holds pending multi-turn command continuations
// keyed by conversation.
//
// The runtime's message handling is request/response: each inbound
// message is one invocation. "Pause and wait for the next message" is
// therefore reified as data - a Pending value naming the resume handler
// and carrying whatever opaque state it needs - rather than as
// suspended control flow.
package interaction

import (
	"sync"
	"time"
)

// Pending is a stored continuation. The next message from Key is routed
// to the named interaction handler instead of normal command lookup.
type Pending struct {
	// Key is the conversation identity (sender + chat).
	Key string

	// PluginID and Name reference the resume handler.
	PluginID string
	Name     string

	// State is the opaque payload handed back on resume.
	State []byte

	CreatedAt time.Time
}

// Store maps conversation keys to pending continuations. At most one
// Pending exists per key; Set overwrites. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	pending map[string]*Pending

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		pending: make(map[string]*Pending),
		now:     time.Now,
	}
}

// Set stores or overwrites the pending continuation for key.
func (s *Store) Set(key string, p Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Key = key
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.pending[key] = &p
}

// Take atomically reads and removes the entry for key, so two
// concurrently arriving messages for the same key cannot both consume
// it. Returns nil if none exists.
func (s *Store) Take(key string) *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[key]
	if !ok {
		return nil
	}
	delete(s.pending, key)
	return p
}

// Len returns the number of pending continuations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
