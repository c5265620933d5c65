package entity

import "time"

type NotificationKind string

const (
	NotificationKindMessage  NotificationKind = "message"
	NotificationKindDeadline NotificationKind = "deadline"
)

// Notification is the stored row. Callers that render or route a notification
// should go through View instead of probing the optional fields.
type Notification struct {
	Id        string           `bson:"_id" json:"id"`
	UserId    string           `bson:"userId" json:"userId"`
	Kind      NotificationKind `bson:"kind" json:"kind"`
	SenderId  string           `bson:"senderId,omitempty" json:"senderId,omitempty"`
	OrgId     string           `bson:"orgId,omitempty" json:"orgId,omitempty"`
	CardId    string           `bson:"cardId,omitempty" json:"cardId,omitempty"`
	Message   string           `bson:"message" json:"message"`
	IsRead    bool             `bson:"isRead" json:"isRead"`
	ReadBatch string           `bson:"readBatch,omitempty" json:"-"`
	CreatedAt time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// NotificationView is one of MessageNotification or DeadlineNotification.
type NotificationView interface {
	NotificationID() string
	isNotificationView()
}

type MessageNotification struct {
	Kind      NotificationKind `json:"kind"`
	Id        string           `json:"id"`
	UserId    string           `json:"userId"`
	SenderId  string           `json:"senderId"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

type DeadlineNotification struct {
	Kind      NotificationKind `json:"kind"`
	Id        string           `json:"id"`
	UserId    string           `json:"userId"`
	OrgId     string           `json:"orgId"`
	CardId    string           `json:"cardId"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (n MessageNotification) NotificationID() string  { return n.Id }
func (n DeadlineNotification) NotificationID() string { return n.Id }
func (MessageNotification) isNotificationView()       {}
func (DeadlineNotification) isNotificationView()      {}

// View resolves the row into its kind-specific shape. Rows written before
// kinds existed fall back on the presence of a card id.
func (n Notification) View() NotificationView {
	kind := n.Kind
	if kind == "" {
		kind = NotificationKindMessage
		if n.CardId != "" {
			kind = NotificationKindDeadline
		}
	}

	switch kind {
	case NotificationKindDeadline:
		return DeadlineNotification{
			Kind:      NotificationKindDeadline,
			Id:        n.Id,
			UserId:    n.UserId,
			OrgId:     n.OrgId,
			CardId:    n.CardId,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		}
	default:
		return MessageNotification{
			Kind:      NotificationKindMessage,
			Id:        n.Id,
			UserId:    n.UserId,
			SenderId:  n.SenderId,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		}
	}
}
