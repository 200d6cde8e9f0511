// ABOUTME: In-memory publish/subscribe state store shared across screens.
// ABOUTME: Subscribers receive read-only copies; the last patch per entity is retained.

package statestore

import (
	"sync"

	"github.com/2389/studio/internal/session"
)

type subscriber struct {
	id int
	fn func(patch map[string]any)
}

// Store is a process-wide entity-keyed pub/sub store. Publishing retains the
// patch so late subscribers can read the current state, and fans a copy out
// to every subscriber of that entity.
type Store struct {
	mu      sync.Mutex
	nextID  int
	current map[string]map[string]any
	subs    map[string][]subscriber
}

func New() *Store {
	return &Store{
		current: make(map[string]map[string]any),
		subs:    make(map[string][]subscriber),
	}
}

// Publish stores patch as entityID's current state and notifies subscribers.
// Each subscriber gets its own deep copy; mutating it cannot leak back.
func (s *Store) Publish(entityID string, patch map[string]any) {
	s.mu.Lock()
	s.current[entityID] = session.CloneMap(patch)
	targets := make([]subscriber, len(s.subs[entityID]))
	copy(targets, s.subs[entityID])
	s.mu.Unlock()

	for _, sub := range targets {
		sub.fn(session.CloneMap(patch))
	}
}

// Subscribe registers fn for entityID and returns an unsubscribe func.
// Unsubscribing twice is harmless.
func (s *Store) Subscribe(entityID string, fn func(patch map[string]any)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[entityID] = append(s.subs[entityID], subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.subs[entityID]
		for i, sub := range list {
			if sub.id == id {
				s.subs[entityID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(s.subs[entityID]) == 0 {
			delete(s.subs, entityID)
		}
	}
}

// Current returns a copy of the last published patch for entityID, or nil.
func (s *Store) Current(entityID string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session.CloneMap(s.current[entityID])
}
