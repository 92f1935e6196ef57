package models

import (
	"time"

	"gorm.io/datatypes"
)

type Topic struct {
	BaseModel

	ForumID     uint                        `json:"forum_id" gorm:"index"`
	AccountID   uint                        `json:"account_id"`
	Title       string                      `json:"title"`
	Content     string                      `json:"content"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Language    string                      `json:"language"`
	Attachments []Attachment                `json:"attachments,omitempty"`

	ReplyCount       int        `json:"reply_count"`
	HiddenReplyCount int        `json:"hidden_reply_count"`
	VoiceCount       int        `json:"voice_count"`
	LastReplyID      uint       `json:"last_reply_id"`
	LastActiveID     uint       `json:"last_active_id"`
	LastActiveAt     *time.Time `json:"last_active_at"`
}

// Attachment points at stored file bytes by reference.
// Copies made for a cross-posted topic share the same FileURL.
type Attachment struct {
	BaseModel

	TopicID  uint              `json:"topic_id" gorm:"index"`
	FileURL  string            `json:"file_url"`
	MimeType string            `json:"mime_type"`
	Title    string            `json:"title"`
	Metadata datatypes.JSONMap `json:"metadata"`
}
