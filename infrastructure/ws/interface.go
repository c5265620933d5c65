package ws

import (
	"context"
	"encoding/json"
)

// Event is the frame delivered to channel subscribers and websocket clients.
type Event struct {
	Channel string          `json:"channel"`
	Name    string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

type Handler func(event Event)

type IHub interface {
	Run()
	Close()
	Publish(ctx context.Context, channel, event string, payload any) error
	Subscribe(channel string, handler Handler) (unsubscribe func())
	RegisterClient(client *UserClient)
	UnregisterClient(client *UserClient)
	GetClientCount() int
}

func newEvent(channel, name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Channel: channel, Name: name, Data: data}, nil
}
