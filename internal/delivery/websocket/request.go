package websocket

import "boardtalk/internal/entity"

const (
	FrameSend = "send"
	FrameRead = "read"
)

// IncomingFrame is what a connected client may write. ClientId is echoed
// back in the ack so the client can settle its provisional entry.
type IncomingFrame struct {
	Type          string  `json:"type"`
	ClientId      string  `json:"clientId,omitempty"`
	RecipientId   string  `json:"recipientId,omitempty"`
	Content       *string `json:"content,omitempty"`
	CounterpartId string  `json:"counterpartId,omitempty"`
}

func (f IncomingFrame) sendRequest() entity.SendMessageRequest {
	return entity.SendMessageRequest{RecipientId: f.RecipientId, Content: f.Content}
}
