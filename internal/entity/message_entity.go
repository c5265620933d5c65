package entity

import "time"

// Attachment references a file held by the blob store.
type Attachment struct {
	FileId           string `bson:"fileId" json:"fileId"`
	OriginalFileName string `bson:"originalFileName" json:"originalFileName"`
	FileType         string `bson:"fileType" json:"fileType"`
}

type Message struct {
	Id          string      `bson:"_id" json:"id"`
	SenderId    string      `bson:"senderId" json:"senderId"`
	RecipientId string      `bson:"recipientId" json:"recipientId"`
	Content     *string     `bson:"content,omitempty" json:"content,omitempty"`
	Attachment  *Attachment `bson:"attachment,omitempty" json:"attachment,omitempty"`
	CreatedAt   time.Time   `bson:"createdAt" json:"createdAt"`
	IsRead      bool        `bson:"isRead" json:"isRead"`
	ReadAt      *time.Time  `bson:"readAt,omitempty" json:"-"`
	ReadBatch   string      `bson:"readBatch,omitempty" json:"-"`
}

// FileUpload is a raw attachment received from a caller before it is stored.
type FileUpload struct {
	Name     string
	MimeType string
	Data     []byte
}

type SendMessageRequest struct {
	RecipientId string  `json:"recipientId"`
	Content     *string `json:"content,omitempty" validate:"omitempty,max=4000"`
}

type ReadResult struct {
	UpdatedCount int64 `json:"updatedCount"`
	UnreadCount  int64 `json:"unreadCount"`
}

type UnreadSummary struct {
	Total    int64            `json:"total"`
	BySender map[string]int64 `json:"bySender"`
}
