package client

import "sync"

// Signal is a broadcast event with no payload. The client raises it on every
// 401 response; the session store subscribes to it and logs out. Decoupling
// the two means no caller has to handle 401s itself.
type Signal struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func()
}

// NewSignal creates a signal with no subscribers.
func NewSignal() *Signal {
	return &Signal{handlers: make(map[int]func())}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Signal) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.handlers, id)
		})
	}
}

// Raise calls every subscriber once, outside the lock so handlers may
// subscribe or unsubscribe.
func (s *Signal) Raise() {
	s.mu.Lock()
	handlers := make([]func(), 0, len(s.handlers))
	for _, fn := range s.handlers {
		handlers = append(handlers, fn)
	}
	s.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}
