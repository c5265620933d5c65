package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"boardtalk/infrastructure/ws"
	"boardtalk/internal/entity"
	"boardtalk/internal/usecase"
)

// Subscriber is the part of the Channel Bus a session needs. *ws.Hub,
// *ws.RedisHub and *Remote all satisfy it.
type Subscriber interface {
	Subscribe(channel string, handler ws.Handler) (unsubscribe func())
}

// MessageSender performs the server-side send for Session.Send.
type MessageSender interface {
	Send(ctx context.Context, senderId string, req entity.SendMessageRequest) (entity.Message, error)
}

// Session binds a State to the user's two channels.
type Session struct {
	sub Subscriber

	mu       sync.Mutex
	state    State
	cancels  []func()
	onChange func(State)
}

func NewSession(selfId string, sub Subscriber) *Session {
	return &Session{
		sub:   sub,
		state: New(selfId),
	}
}

// OnChange registers fn to be called with every new state. fn runs with the
// session lock held and must not call back into the session.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mount subscribes to the personal and notification channels. Mounting an
// already mounted session is a no-op.
func (s *Session) Mount() {
	s.mu.Lock()
	if s.cancels != nil {
		s.mu.Unlock()
		return
	}
	selfId := s.state.SelfId
	s.cancels = []func(){}
	s.mu.Unlock()

	cancels := []func(){
		s.sub.Subscribe(entity.UserChannel(selfId), s.handle),
		s.sub.Subscribe(entity.NotificationChannel(selfId), s.handle),
	}

	s.mu.Lock()
	s.cancels = cancels
	s.mu.Unlock()
}

// Unmount unbinds every handler registered by Mount.
func (s *Session) Unmount() {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Update applies a local transition.
func (s *Session) Update(transition func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = transition(s.state)
	if s.onChange != nil {
		s.onChange(s.state)
	}
	return s.state
}

// Send shows the message immediately, then settles it with the result of
// sender. On failure the entry stays in the view marked with the error.
func (s *Session) Send(ctx context.Context, sender MessageSender, recipientId string, content *string) (string, error) {
	var clientId string
	s.Update(func(st State) State {
		next, id := st.OptimisticAppend(recipientId, content, nil, time.Now())
		clientId = id
		return next
	})

	message, err := sender.Send(ctx, s.State().SelfId, entity.SendMessageRequest{RecipientId: recipientId, Content: content})
	if err != nil {
		s.Update(func(st State) State { return st.ReconcileFailure(clientId, usecase.MessageOf(err)) })
		return clientId, err
	}

	s.Update(func(st State) State { return st.ReconcileSuccess(clientId, message) })
	return clientId, nil
}

func (s *Session) handle(event ws.Event) {
	switch event.Name {
	case entity.EventNewMessage:
		var payload entity.NewMessageEvent
		if !decode(event, &payload) {
			return
		}
		s.Update(func(st State) State { return st.ApplyPushedMessage(payload.Message()) })

	case entity.EventMessageRead:
		var payload entity.MessageReadEvent
		if !decode(event, &payload) {
			return
		}
		s.Update(func(st State) State { return st.ApplyReadReceipt(payload) })

	case entity.EventNewNotification:
		var payload entity.NewNotificationEvent
		if !decode(event, &payload) {
			return
		}
		s.Update(func(st State) State { return st.ApplyNewNotification(payload.Notification) })

	case entity.EventNotificationUpdated:
		var payload entity.NotificationUpdatedEvent
		if !decode(event, &payload) {
			return
		}
		s.Update(func(st State) State { return st.ApplyNotificationUpdate(payload) })
	}
}

func decode(event ws.Event, dst any) bool {
	if err := json.Unmarshal(event.Data, dst); err != nil {
		log.Printf("Decode %s on %s error: %v", event.Name, event.Channel, err)
		return false
	}
	return true
}
