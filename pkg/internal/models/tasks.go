package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	FanoutTaskPending = "pending"
	FanoutTaskRunning = "running"
	FanoutTaskDone    = "done"
	FanoutTaskFailed  = "failed"
)

// FanoutTask carries one cross-post request from the submitting request to the worker.
// TopicID is unique so a topic can only be fanned out once.
type FanoutTask struct {
	BaseModel

	TopicID   uint                      `json:"topic_id" gorm:"uniqueIndex"`
	AccountID uint                      `json:"account_id"`
	GroupIDs  datatypes.JSONSlice[uint] `json:"group_ids"`
	Title     string                    `json:"-"`
	Content   string                    `json:"-"`
	Tags      string                    `json:"-"`
	Held      datatypes.JSON            `json:"-"`

	Status     string     `json:"status" gorm:"index"`
	Result     string     `json:"result"`
	Error      string     `json:"error"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}
