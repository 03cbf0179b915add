package models

import (
	"encoding/json"
	"time"
)

// Post represents a community post created by sharing a checkin.
type Post struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AuthorID    uint            `gorm:"not null;index" json:"author_id"`
	HabitID     uint            `gorm:"not null;index" json:"habit_id"`
	CheckinDate time.Time       `gorm:"type:date;not null" json:"checkin_date"`
	Caption     string          `gorm:"type:text" json:"caption"`
	PhotoURLs   json.RawMessage `gorm:"type:jsonb" json:"photo_urls,omitempty"`
	LikeCount   int             `gorm:"default:0" json:"like_count"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Post model.
func (Post) TableName() string {
	return "posts"
}
