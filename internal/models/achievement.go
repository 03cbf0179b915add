package models

import (
	"time"
)

// AchievementUnlock records that a user has unlocked a catalog achievement.
// Rows are immutable once written: later checkin edits never revoke an
// unlock, they only affect future evaluations.
type AchievementUnlock struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OwnerID        uint      `gorm:"not null;index:idx_unlocks_owner_key,unique" json:"owner_id"`
	AchievementKey string    `gorm:"not null;size:100;index:idx_unlocks_owner_key,unique" json:"achievement_key"`
	UnlockedAt     time.Time `gorm:"not null" json:"unlocked_at"`
}

// TableName specifies the table name for AchievementUnlock model.
func (AchievementUnlock) TableName() string {
	return "achievement_unlocks"
}
