package websocket

import "boardtalk/internal/entity"

const FrameAck = "ack"

type AckFrame struct {
	Type     string             `json:"type"`
	ClientId string             `json:"clientId,omitempty"`
	Message  *entity.Message    `json:"message,omitempty"`
	Read     *entity.ReadResult `json:"read,omitempty"`
	Error    string             `json:"error,omitempty"`
	Kind     string             `json:"kind,omitempty"`
}
