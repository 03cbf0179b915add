package models

import (
	"time"
)

// Challenge represents a time-bounded goal tied to a target habit.
type Challenge struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"not null;size:255" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	TargetHabitID uint      `gorm:"not null;index" json:"target_habit_id"`
	TargetCount   int       `gorm:"not null" json:"target_count"`
	RequireStreak bool      `gorm:"default:false" json:"require_streak"`
	MinStreakDays int       `gorm:"default:0" json:"min_streak_days"`
	StartDate     time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate       time.Time `gorm:"type:date;not null" json:"end_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for Challenge model.
func (Challenge) TableName() string {
	return "challenges"
}

// ChallengeParticipant represents a user's membership in a challenge.
type ChallengeParticipant struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChallengeID uint      `gorm:"not null;index:idx_challenge_participants,unique" json:"challenge_id"`
	UserID      uint      `gorm:"not null;index:idx_challenge_participants,unique" json:"user_id"`
	JoinedAt    time.Time `gorm:"not null" json:"joined_at"`
}

// TableName specifies the table name for ChallengeParticipant model.
func (ChallengeParticipant) TableName() string {
	return "challenge_participants"
}
