package ws

import (
	"context"
	"log"
	"sync"
)

// Hub is the single-server Channel Bus. Publish delivers synchronously to the
// handlers bound on this process, so events from one publisher on one channel
// reach every subscriber in publish order.
type Hub struct {
	subs       *subscriptions
	clients    map[*UserClient]bool
	mu         sync.RWMutex
	Register   chan *UserClient
	Unregister chan *UserClient
	done       chan struct{}
	closeOnce  sync.Once
}

func NewHub() *Hub {
	return &Hub{
		subs:       newSubscriptions(),
		clients:    make(map[*UserClient]bool),
		Register:   make(chan *UserClient),
		Unregister: make(chan *UserClient),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// Bind before counting the client so a visible client is a live one.
			for _, channel := range client.Channels {
				client.bind(h.Subscribe(channel, client.deliver))
			}
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("%s is connected", client.UserId)

		case client := <-h.Unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			delete(h.clients, client)
			h.mu.Unlock()
			if ok {
				client.close()
				log.Printf("%s is disconnected", client.UserId)
			}

		case <-h.done:
			return
		}
	}
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) Publish(ctx context.Context, channel, event string, payload any) error {
	e, err := newEvent(channel, event, payload)
	if err != nil {
		return err
	}
	h.subs.dispatch(e)
	return nil
}

func (h *Hub) Subscribe(channel string, handler Handler) func() {
	return h.subs.add(channel, handler)
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RegisterClient(client *UserClient) {
	h.Register <- client
}

func (h *Hub) UnregisterClient(client *UserClient) {
	select {
	case h.Unregister <- client:
	case <-h.done:
		client.close()
	}
}

// deliverLocal hands an already-encoded event to local subscribers.
func (h *Hub) deliverLocal(event Event) {
	h.subs.dispatch(event)
}
