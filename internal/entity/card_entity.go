package entity

import "time"

// Card is the subset of a board card the deadline scanner needs.
type Card struct {
	Id        string     `bson:"_id" json:"id"`
	Title     string     `bson:"title" json:"title"`
	ListId    string     `bson:"listId" json:"listId"`
	BoardId   string     `bson:"boardId" json:"boardId"`
	OrgId     string     `bson:"orgId" json:"orgId"`
	DueDate   *time.Time `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type Member struct {
	OrgId  string `bson:"orgId" json:"orgId"`
	UserId string `bson:"userId" json:"userId"`
	Role   string `bson:"role" json:"role"`
}

type ScanResult struct {
	NotificationsCreated int `json:"notificationsCreated"`
}
