package models

import (
	"time"
)

// User represents a mini-program user in the system.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OpenID    string    `gorm:"column:open_id;uniqueIndex;not null;size:128" json:"open_id"`
	Nickname  string    `gorm:"size:255" json:"nickname"`
	AvatarURL string    `gorm:"type:text" json:"avatar_url"`
	Timezone  string    `gorm:"size:64" json:"timezone"`
	Active    bool      `gorm:"default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}
