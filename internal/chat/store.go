package chat

import "sync"

// Store serializes dispatches onto the reducer and notifies subscribers.
// All methods are thread-safe.
type Store struct {
	mu          sync.Mutex
	state       State
	subscribers map[int]func(State)
	nextSub     int
}

// NewStore creates a store with the sidebar closed and no conversations.
func NewStore() *Store {
	return &Store{subscribers: make(map[int]func(State))}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies actions in order as one update and notifies subscribers
// once with the result.
func (s *Store) Dispatch(actions ...Action) {
	s.mu.Lock()
	for _, a := range actions {
		s.state = Reduce(s.state, a)
	}
	state := s.state
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

// Subscribe registers fn for state changes. The returned function removes it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}
