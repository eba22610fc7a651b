package events

import (
	"sync"
)

// Store is the in-memory ordered collection of display events. Insertion
// order is display order: a fetched batch keeps its order, appended
// events go to the end.
type Store struct {
	mu       sync.RWMutex
	events   []DisplayEvent
	revision uint64
}

// NewStore returns an empty store at revision zero.
func NewStore() *Store {
	return &Store{}
}

// ReplaceAll swaps the entire contents for the given events. The swap is
// atomic with respect to readers: a reader observes either the previous
// contents or the new ones, never a partial mix. The input slice is
// copied.
func (s *Store) ReplaceAll(events []DisplayEvent) {
	next := make([]DisplayEvent, len(events))
	copy(next, events)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = next
	s.revision++
}

// Append adds an event at the end of the collection. When an event with
// the same id is already present, the existing entry is replaced at its
// current position instead of being duplicated.
func (s *Store) Append(event DisplayEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == event.ID {
			s.events[i] = event
			s.revision++
			return
		}
	}
	s.events = append(s.events, event)
	s.revision++
}

// Clear removes all events. Clearing an already empty store leaves the
// revision untouched.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return
	}
	s.events = nil
	s.revision++
}

// All returns a copied snapshot of the current contents in display order.
func (s *Store) All() []DisplayEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DisplayEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Snapshot returns the contents together with the revision they belong
// to, for handlers that need both consistently.
func (s *Store) Snapshot() ([]DisplayEvent, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DisplayEvent, len(s.events))
	copy(out, s.events)
	return out, s.revision
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Revision returns a counter that increases with every mutation, for
// cheap change detection by pollers.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}
