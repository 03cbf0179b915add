// Package models defines domain models for the habit tracking system.
package models

import (
	"encoding/json"
	"time"
)

// Mood is the self-reported mood attached to a checkin.
type Mood string

// Mood values.
const (
	MoodGreat    Mood = "great"
	MoodGood     Mood = "good"
	MoodNeutral  Mood = "neutral"
	MoodBad      Mood = "bad"
	MoodTerrible Mood = "terrible"
)

// Valid reports whether the mood is one of the five enumerated values.
func (m Mood) Valid() bool {
	switch m {
	case MoodGreat, MoodGood, MoodNeutral, MoodBad, MoodTerrible:
		return true
	}
	return false
}

// Difficulty bounds for a checkin.
const (
	DifficultyMin = 1
	DifficultyMax = 5
)

// Checkin represents a single day's record for a habit. At most one row
// exists per (owner, habit, date); the date column carries no time component.
type Checkin struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OwnerID         uint            `gorm:"not null;index:idx_checkins_owner_habit_date,unique" json:"owner_id"`
	HabitID         uint            `gorm:"not null;index:idx_checkins_owner_habit_date,unique" json:"habit_id"`
	Date            time.Time       `gorm:"type:date;not null;index:idx_checkins_owner_habit_date,unique" json:"date"`
	Completed       bool            `gorm:"not null;default:false" json:"completed"`
	DurationMinutes *int            `json:"duration_minutes,omitempty"`
	Mood            *Mood           `gorm:"size:16" json:"mood,omitempty"`
	Difficulty      *int            `json:"difficulty,omitempty"`
	Note            *string         `gorm:"type:text" json:"note,omitempty"`
	PhotoURLs       json.RawMessage `gorm:"type:jsonb" json:"photo_urls,omitempty"` // JSON array of URLs
	Latitude        *float64        `json:"latitude,omitempty"`
	Longitude       *float64        `json:"longitude,omitempty"`
	PostID          *uint           `gorm:"index" json:"post_id,omitempty"` // link to a shared community post
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Checkin model.
func (Checkin) TableName() string {
	return "checkins"
}

// CheckinFields carries the mutable attributes of a checkin. Nil pointers
// mean "leave unchanged" when merging into an existing record.
type CheckinFields struct {
	Completed       *bool           `json:"completed,omitempty"`
	DurationMinutes *int            `json:"duration_minutes,omitempty"`
	Mood            *Mood           `json:"mood,omitempty"`
	Difficulty      *int            `json:"difficulty,omitempty"`
	Note            *string         `json:"note,omitempty"`
	PhotoURLs       json.RawMessage `json:"photo_urls,omitempty"`
	Latitude        *float64        `json:"latitude,omitempty"`
	Longitude       *float64        `json:"longitude,omitempty"`
	PostID          *uint           `json:"post_id,omitempty"`
}

// DateOnly truncates t to its calendar day in UTC. Checkin identity and all
// streak arithmetic operate on values normalized this way.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
