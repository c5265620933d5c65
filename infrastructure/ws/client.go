package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// UserClient is one websocket connection. A user with several tabs open has
// one UserClient per tab, each bound to the same channels.
type UserClient struct {
	UserId   string
	Channels []string

	hub  IHub
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	closed  bool
	cancels []func()
}

func NewClient(userId string, channels []string, hub IHub, conn *websocket.Conn) *UserClient {
	return &UserClient{
		UserId:   userId,
		Channels: channels,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
	}
}

func (c *UserClient) bind(cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		cancel()
		return
	}
	c.cancels = append(c.cancels, cancel)
}

// deliver queues an event for the write pump. A full buffer drops the event;
// the client recovers through its next fetch.
func (c *UserClient) deliver(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Marshal event error: %v", err)
		return
	}
	c.enqueue(event.Name, payload)
}

// Reply writes a frame to this connection only, bypassing the hub.
func (c *UserClient) Reply(frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("Marshal reply error: %v", err)
		return
	}
	c.enqueue("reply", payload)
}

func (c *UserClient) enqueue(name string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		log.Printf("Failed to send %s to client: %s", name, c.UserId)
	}
}

// close unbinds every channel handler and stops the write pump.
func (c *UserClient) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancels := c.cancels
	c.cancels = nil
	close(c.send)
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// ReadPump consumes inbound frames until the connection drops, then
// unregisters the client. Inbound payloads are passed to onMessage.
func (c *UserClient) ReadPump(onMessage func(data []byte)) {
	defer func() {
		c.hub.UnregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Read error for %s: %v", c.UserId, err)
			}
			return
		}
		if onMessage != nil {
			onMessage(data)
		}
	}
}

func (c *UserClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Write error for %s: %v", c.UserId, err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
