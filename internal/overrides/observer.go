package overrides

import (
	"sort"
	"sync"

	"github.com/dyluth/folio/pkg/site"
)

// Observer receives every store change after it has been applied.
// Implementations must not write to the store from OverrideChanged.
type Observer interface {
	OverrideChanged(ev site.ChangeEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev site.ChangeEvent)

// OverrideChanged calls f(ev).
func (f ObserverFunc) OverrideChanged(ev site.ChangeEvent) { f(ev) }

// Subscribe registers o and returns a function that unregisters it.
func (s *Store) Subscribe(o Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = o
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

func (s *Store) notify(events []site.ChangeEvent) {
	if len(events) == 0 {
		return
	}

	s.obsMu.Lock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	observers := make([]Observer, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		observers = append(observers, s.observers[id])
	}
	s.obsMu.Unlock()

	for _, ev := range events {
		for _, o := range observers {
			o.OverrideChanged(ev)
		}
	}
}

// Recorder is an Observer that keeps every event it receives, in order.
// The CLI drains it after an operation to publish and persist the changes.
type Recorder struct {
	mu     sync.Mutex
	events []site.ChangeEvent
}

// OverrideChanged appends ev.
func (r *Recorder) OverrideChanged(ev site.ChangeEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Drain returns the recorded events and forgets them.
func (r *Recorder) Drain() []site.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
