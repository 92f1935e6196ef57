package models

const (
	MetaObjectTopic    = "topic"
	MetaObjectActivity = "activity"
)

// Meta is a key/value pair attached to a topic or an activity.
// A key may hold several rows, they are read back in insertion order.
type Meta struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	ObjectType string `json:"object_type" gorm:"index:idx_meta_object;index:idx_meta_lookup"`
	ObjectID   uint   `json:"object_id" gorm:"index:idx_meta_object"`
	Key        string `json:"key" gorm:"column:meta_key;index:idx_meta_object;index:idx_meta_lookup"`
	Value      string `json:"value" gorm:"column:meta_value;index:idx_meta_lookup"`
}
