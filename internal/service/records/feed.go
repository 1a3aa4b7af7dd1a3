package records

import (
	"sync"
)

const (
	CollectionPatients  = "patients"
	CollectionIncidents = "incidents"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one committed mutation. Cascade lists incident ids removed
// together with a deleted patient.
type Change struct {
	Version    uint64   `json:"version"`
	Collection string   `json:"collection"`
	Op         Op       `json:"op"`
	ID         string   `json:"id"`
	Cascade    []string `json:"cascade,omitempty"`
}

type feed struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Change)
}

func (f *feed) subscribe(fn func(Change)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[int]func(Change))
	}
	id := f.next
	f.next++
	f.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

func (f *feed) publish(c Change) {
	f.mu.Lock()
	fns := make([]func(Change), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// release unlocks the write lock and publishes change. Holding pubMu across
// the handover keeps delivery in Version order.
func (s *Service) release(change Change) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Unlock()
	s.feed.publish(change)
}

// Subscribe registers fn to be called after every committed mutation, in
// Version order and outside the store's write lock. fn must not mutate the
// store synchronously. The returned func unsubscribes.
func (s *Service) Subscribe(fn func(Change)) (unsubscribe func()) {
	return s.feed.subscribe(fn)
}
