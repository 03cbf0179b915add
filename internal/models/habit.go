package models

import (
	"strconv"
	"strings"
	"time"
)

// Frequency units for a habit schedule.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// Habit represents a habit a user is tracking.
type Habit struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OwnerID       uint      `gorm:"not null;index" json:"owner_id"`
	Name          string    `gorm:"not null;size:255" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Icon          string    `gorm:"size:50" json:"icon"`
	FrequencyUnit string    `gorm:"size:16;not null;default:'daily'" json:"frequency_unit"`
	Weekdays      string    `gorm:"size:32" json:"weekdays"` // comma-separated weekday numbers (0=Sunday), weekly habits only
	Archived      bool      `gorm:"default:false;index" json:"archived"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for Habit model.
func (Habit) TableName() string {
	return "habits"
}

// Schedule returns the occurrence schedule for the habit. Weekly habits with
// no parseable weekday set fall back to daily so streak math never divides by
// an empty schedule.
func (h *Habit) Schedule() Schedule {
	if h.FrequencyUnit != FrequencyWeekly {
		return Schedule{}
	}

	var days [7]bool
	any := false
	for _, part := range strings.Split(h.Weekdays, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		days[n] = true
		any = true
	}
	if !any {
		return Schedule{}
	}
	return Schedule{weekly: true, weekdays: days}
}

// Schedule describes which calendar days a habit is due. The zero value is a
// daily schedule. Consecutiveness for streaks is defined over scheduled
// occurrences, not raw calendar days.
type Schedule struct {
	weekly   bool
	weekdays [7]bool
}

// DailySchedule returns a schedule where every day is due.
func DailySchedule() Schedule {
	return Schedule{}
}

// WeeklySchedule returns a schedule restricted to the given weekdays.
func WeeklySchedule(days ...time.Weekday) Schedule {
	s := Schedule{weekly: true}
	for _, d := range days {
		s.weekdays[int(d)] = true
	}
	return s
}

// DueOn reports whether the habit is scheduled on the given day.
func (s Schedule) DueOn(date time.Time) bool {
	if !s.weekly {
		return true
	}
	return s.weekdays[int(date.Weekday())]
}

// PrevDue returns the latest scheduled day strictly before date.
func (s Schedule) PrevDue(date time.Time) time.Time {
	d := DateOnly(date).AddDate(0, 0, -1)
	for !s.DueOn(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// LatestDueOnOrBefore returns the latest scheduled day at or before date.
func (s Schedule) LatestDueOnOrBefore(date time.Time) time.Time {
	d := DateOnly(date)
	for !s.DueOn(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
