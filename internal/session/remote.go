package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"sync"

	"boardtalk/infrastructure/ws"
	wsDelivery "boardtalk/internal/delivery/websocket"
	"boardtalk/internal/entity"
	"boardtalk/internal/usecase"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrRemoteClosed = errors.New("remote session closed")

// Remote is a websocket connection to the server's /ws endpoint. The server
// binds the connection to the user's channels; Remote fans the received
// events out to local handlers and carries sends over the same socket.
type Remote struct {
	conn  *websocket.Conn
	local *ws.Hub

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan wsDelivery.AckFrame
	closed  bool
	done    chan struct{}
}

// Dial connects to endpoint (ws:// or wss:// URL of /ws) as the holder of token.
func Dial(ctx context.Context, endpoint, token string) (*Remote, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, usecase.ErrUnauthorized
		}
		return nil, err
	}

	r := &Remote{
		conn:    conn,
		local:   ws.NewHub(),
		pending: map[string]chan wsDelivery.AckFrame{},
		done:    make(chan struct{}),
	}
	go r.readLoop()
	return r, nil
}

func (r *Remote) Subscribe(channel string, handler ws.Handler) func() {
	return r.local.Subscribe(channel, handler)
}

// Done is closed once the connection has dropped.
func (r *Remote) Done() <-chan struct{} {
	return r.done
}

func (r *Remote) Close() error {
	r.writeMu.Lock()
	_ = r.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	r.writeMu.Unlock()
	return r.conn.Close()
}

// Send writes a send frame and waits for its ack. senderId is ignored; the
// server sends as the token holder.
func (r *Remote) Send(ctx context.Context, senderId string, req entity.SendMessageRequest) (entity.Message, error) {
	ack, err := r.roundTrip(ctx, wsDelivery.IncomingFrame{
		Type:        wsDelivery.FrameSend,
		RecipientId: req.RecipientId,
		Content:     req.Content,
	})
	if err != nil {
		return entity.Message{}, err
	}
	if ack.Message == nil {
		return entity.Message{}, &usecase.Error{Kind: usecase.ErrorKind(ack.Kind), Message: ack.Error}
	}
	return *ack.Message, nil
}

// MarkAsRead asks the server to mark counterpartId's messages read.
func (r *Remote) MarkAsRead(ctx context.Context, counterpartId string) (entity.ReadResult, error) {
	ack, err := r.roundTrip(ctx, wsDelivery.IncomingFrame{
		Type:          wsDelivery.FrameRead,
		CounterpartId: counterpartId,
	})
	if err != nil {
		return entity.ReadResult{}, err
	}
	if ack.Read == nil {
		return entity.ReadResult{}, &usecase.Error{Kind: usecase.ErrorKind(ack.Kind), Message: ack.Error}
	}
	return *ack.Read, nil
}

func (r *Remote) roundTrip(ctx context.Context, frame wsDelivery.IncomingFrame) (wsDelivery.AckFrame, error) {
	frame.ClientId = uuid.New().String()
	wait := make(chan wsDelivery.AckFrame, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return wsDelivery.AckFrame{}, ErrRemoteClosed
	}
	r.pending[frame.ClientId] = wait
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, frame.ClientId)
		r.mu.Unlock()
	}()

	r.writeMu.Lock()
	err := r.conn.WriteJSON(frame)
	r.writeMu.Unlock()
	if err != nil {
		return wsDelivery.AckFrame{}, err
	}

	select {
	case ack := <-wait:
		return ack, nil
	case <-r.done:
		return wsDelivery.AckFrame{}, ErrRemoteClosed
	case <-ctx.Done():
		return wsDelivery.AckFrame{}, ctx.Err()
	}
}

type inboundFrame struct {
	Type string `json:"type"`
	ws.Event
}

func (r *Remote) readLoop() {
	defer func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.done)
	}()

	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Remote read error: %v", err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("Remote frame error: %v", err)
			continue
		}

		if frame.Type == wsDelivery.FrameAck {
			r.settle(data)
			continue
		}
		if frame.Channel == "" || frame.Name == "" {
			continue
		}
		_ = r.local.Publish(context.Background(), frame.Channel, frame.Name, frame.Data)
	}
}

func (r *Remote) settle(data []byte) {
	var ack wsDelivery.AckFrame
	if err := json.Unmarshal(data, &ack); err != nil {
		log.Printf("Remote ack error: %v", err)
		return
	}

	r.mu.Lock()
	wait, ok := r.pending[ack.ClientId]
	r.mu.Unlock()
	if ok {
		wait <- ack
	}
}
