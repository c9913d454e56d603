package controller

import (
	"sync"

	"k8s.io/apimachinery/pkg/types"

	"github.com/pollwatch/pollwatch/poll"
)

// Store holds the latest event observed for each resource UID. Handlers can
// use it to look up the last-observed state of other resources while
// processing an event. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	latest map[types.UID]poll.Event
	order  []types.UID
}

func newStore() *Store {
	return &Store{latest: map[types.UID]poll.Event{}}
}

// Latest returns the most recent event recorded for uid.
func (s *Store) Latest(uid types.UID) (poll.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.latest[uid]
	return ev, ok
}

// List returns the most recent event for every tracked UID, in first-seen
// order.
func (s *Store) List() []poll.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]poll.Event, 0, len(s.order))
	for _, uid := range s.order {
		if ev, ok := s.latest[uid]; ok {
			out = append(out, ev)
		}
	}
	return out
}

func (s *Store) put(uid types.UID, ev poll.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.latest[uid]; !seen {
		s.order = append(s.order, uid)
	}
	s.latest[uid] = ev
}

func (s *Store) forget(uid types.UID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, uid)
	for i, u := range s.order {
		if u == uid {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
