// Package content is a typed publish/subscribe store for marketing
// content changes (banners, site themes). Subscribers get explicit typed
// events instead of ambient global notifications.
package content

import "sync"

// Kind of content that changed.
type Kind string

const (
	KindBanner Kind = "banner"
	KindTheme  Kind = "theme"
)

// Op is what happened to the content item.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Event is one content change.
type Event struct {
	Kind Kind   `json:"kind"`
	Op   Op     `json:"op"`
	ID   string `json:"id"`
}

// Store fans content events out to subscribers for the application
// lifetime.
type Store struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{subs: make(map[int]func(Event))}
}

// Subscribe registers fn for every future event and returns an
// unsubscribe function.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Publish delivers the event to every subscriber.
func (s *Store) Publish(e Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
