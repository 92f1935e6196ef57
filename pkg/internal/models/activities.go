package models

const (
	ActivityComponentGroups = "groups"
	ActivityTypeTopicCreate = "bbp_topic_create"
)

// Activity is one entry of the social feed.
// For topic creations ItemID is the group and SecondaryItemID is the topic.
type Activity struct {
	BaseModel

	Component       string `json:"component" gorm:"index:idx_activity_kind"`
	Type            string `json:"type" gorm:"index:idx_activity_kind"`
	AccountID       uint   `json:"account_id"`
	ItemID          uint   `json:"item_id" gorm:"index"`
	SecondaryItemID uint   `json:"secondary_item_id" gorm:"index"`
	Action          string `json:"action"`
	ActorLink       string `json:"actor_link"`
	Content         string `json:"content"`
	PrimaryLink     string `json:"primary_link"`
}
