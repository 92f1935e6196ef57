package models

// Account is the local projection of a platform user.
// The gateway authenticates requests, this service only reads the record.
type Account struct {
	BaseModel

	Name        string `json:"name" gorm:"uniqueIndex"`
	Nick        string `json:"nick"`
	Email       string `json:"email"`
	IsModerator bool   `json:"is_moderator"`
}
