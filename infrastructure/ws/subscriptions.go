package ws

import "sync"

// subscriptions maps channel names to the handlers bound on this process.
type subscriptions struct {
	mu       sync.RWMutex
	nextId   uint64
	handlers map[string]map[uint64]Handler
	order    map[string][]uint64
}

func newSubscriptions() *subscriptions {
	return &subscriptions{
		handlers: make(map[string]map[uint64]Handler),
		order:    make(map[string][]uint64),
	}
}

func (s *subscriptions) add(channel string, handler Handler) func() {
	s.mu.Lock()
	s.nextId++
	id := s.nextId
	if _, ok := s.handlers[channel]; !ok {
		s.handlers[channel] = make(map[uint64]Handler)
	}
	s.handlers[channel][id] = handler
	s.order[channel] = append(s.order[channel], id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(channel, id) })
	}
}

func (s *subscriptions) remove(channel string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.handlers[channel], id)
	ids := s.order[channel]
	for i, existing := range ids {
		if existing == id {
			s.order[channel] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.handlers[channel]) == 0 {
		delete(s.handlers, channel)
		delete(s.order, channel)
	}
}

// dispatch calls every handler bound to the event's channel in subscription
// order. Handlers run outside the lock so they may unsubscribe themselves.
func (s *subscriptions) dispatch(event Event) {
	s.mu.RLock()
	ids := s.order[event.Channel]
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, s.handlers[event.Channel][id])
	}
	s.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (s *subscriptions) count(channel string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers[channel])
}
