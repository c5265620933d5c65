package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"boardtalk/infrastructure/ws"
	"boardtalk/internal/entity"
	"boardtalk/internal/usecase"

	"github.com/gorilla/websocket"
)

const frameTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebsocketHandler struct {
	hub       ws.IHub
	authUc    usecase.AuthUsecase
	messageUc usecase.MessageUsecase
}

func NewWebsocketHandler(hub ws.IHub, authUc usecase.AuthUsecase, messageUc usecase.MessageUsecase) *WebsocketHandler {
	return &WebsocketHandler{
		hub:       hub,
		authUc:    authUc,
		messageUc: messageUc,
	}
}

// ServeHTTP binds the connection to the caller's personal and notification
// channels for as long as it stays open.
func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.authUc.ValidateAccessToken(token(r))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized"}` + "\n"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade error: %v", err)
		return
	}

	channels := []string{
		entity.UserChannel(claims.UserId),
		entity.NotificationChannel(claims.UserId),
	}
	client := ws.NewClient(claims.UserId, channels, h.hub, conn)
	h.hub.RegisterClient(client)

	go client.WritePump()
	client.ReadPump(func(data []byte) {
		h.handleFrame(client, data)
	})
}

func token(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func (h *WebsocketHandler) handleFrame(client *ws.UserClient, data []byte) {
	var frame IncomingFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("Unknown frame from %s: %v", client.UserId, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	ack := AckFrame{Type: FrameAck, ClientId: frame.ClientId}

	switch frame.Type {
	case FrameSend:
		message, err := h.messageUc.Send(ctx, client.UserId, frame.sendRequest())
		if err != nil {
			ack.Error, ack.Kind = usecase.MessageOf(err), string(usecase.KindOf(err))
			break
		}
		ack.Message = &message

	case FrameRead:
		result, err := h.messageUc.MarkAsRead(ctx, client.UserId, frame.CounterpartId)
		if err != nil {
			ack.Error, ack.Kind = usecase.MessageOf(err), string(usecase.KindOf(err))
			break
		}
		ack.Read = &result

	default:
		ack.Error, ack.Kind = "unknown frame type", string(usecase.KindValidation)
	}

	client.Reply(ack)
}
