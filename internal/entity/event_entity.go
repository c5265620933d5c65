package entity

import (
	"fmt"
	"time"
)

const (
	EventNewMessage          = "new-message"
	EventMessageRead         = "message-read"
	EventNewNotification     = "new-notification"
	EventNotificationUpdated = "notification-updated"
)

func UserChannel(userId string) string {
	return fmt.Sprintf("user-%s", userId)
}

func NotificationChannel(userId string) string {
	return fmt.Sprintf("notifications-%s", userId)
}

type NewMessageEvent struct {
	MessageId        string    `json:"messageId"`
	SenderId         string    `json:"senderId"`
	RecipientId      string    `json:"recipientId"`
	SenderName       string    `json:"senderName"`
	Content          *string   `json:"content"`
	FileId           *string   `json:"fileId"`
	OriginalFileName *string   `json:"originalFileName"`
	FileType         *string   `json:"fileType"`
	CreatedAt        time.Time `json:"createdAt"`
}

func NewMessageEventFrom(message Message, senderName string) NewMessageEvent {
	event := NewMessageEvent{
		MessageId:   message.Id,
		SenderId:    message.SenderId,
		RecipientId: message.RecipientId,
		SenderName:  senderName,
		Content:     message.Content,
		CreatedAt:   message.CreatedAt,
	}
	if a := message.Attachment; a != nil {
		event.FileId = &a.FileId
		event.OriginalFileName = &a.OriginalFileName
		event.FileType = &a.FileType
	}
	return event
}

// Message rebuilds the unread message carried by the event.
func (e NewMessageEvent) Message() Message {
	message := Message{
		Id:          e.MessageId,
		SenderId:    e.SenderId,
		RecipientId: e.RecipientId,
		Content:     e.Content,
		CreatedAt:   e.CreatedAt,
	}
	if e.FileId != nil {
		message.Attachment = &Attachment{FileId: *e.FileId}
		if e.OriginalFileName != nil {
			message.Attachment.OriginalFileName = *e.OriginalFileName
		}
		if e.FileType != nil {
			message.Attachment.FileType = *e.FileType
		}
	}
	return message
}

type MessageReadEvent struct {
	MessageIds    []string `json:"messageIds"`
	ReaderId      string   `json:"readerId"`
	CounterpartId string   `json:"counterpartId"`
}

type NotificationUpdatedEvent struct {
	Id     string `json:"id"`
	IsRead bool   `json:"isRead"`
}

type NewNotificationEvent struct {
	Notification Notification `json:"notification"`
}
