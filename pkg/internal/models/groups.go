package models

import "time"

const (
	GroupStatusPublic  = "public"
	GroupStatusPrivate = "private"
	GroupStatusHidden  = "hidden"
)

type Group struct {
	BaseModel

	Name           string        `json:"name"`
	Alias          string        `json:"alias" gorm:"uniqueIndex"`
	Description    string        `json:"description"`
	Status         string        `json:"status"`
	EnableForum    bool          `json:"enable_forum"`
	Forums         []Forum       `json:"forums,omitempty"`
	Members        []GroupMember `json:"members,omitempty"`
	LastActivityAt *time.Time    `json:"last_activity_at"`
}

type GroupMember struct {
	BaseModel

	GroupID     uint    `json:"group_id" gorm:"uniqueIndex:idx_group_member"`
	AccountID   uint    `json:"account_id" gorm:"uniqueIndex:idx_group_member"`
	Account     Account `json:"account"`
	IsAdmin     bool    `json:"is_admin"`
	EmailNotify bool    `json:"email_notify"`
}

type Forum struct {
	BaseModel

	Name         string     `json:"name"`
	Alias        string     `json:"alias" gorm:"uniqueIndex"`
	Description  string     `json:"description"`
	GroupID      *uint      `json:"group_id" gorm:"index"`
	ParentID     *uint      `json:"parent_id"`
	TopicCount   int        `json:"topic_count"`
	ReplyCount   int        `json:"reply_count"`
	LastTopicID  uint       `json:"last_topic_id"`
	LastActiveAt *time.Time `json:"last_active_at"`
}
