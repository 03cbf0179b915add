// Package streak derives streak state from checkin history. Everything here
// is a pure computation over ordered dates: state is always re-derivable
// from the ledger and never hand-edited.
package streak

import (
	"time"

	"github.com/haoyudev/habitloop/internal/models"
)

// State is the derived streak snapshot for one (owner, habit) pair.
type State struct {
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	LastCompletedDate *time.Time `json:"last_completed_date,omitempty"`
}

// Compute derives streak state from a habit's checkin records as of a
// reference date. Consecutiveness is defined over the habit's scheduled
// occurrences: for a daily habit that is every calendar day, for a weekly
// habit only its configured weekdays. Strictly consecutive: a single missed
// scheduled day breaks the run; there is no grace day.
//
// Idempotent and read-only: identical inputs yield identical results.
func Compute(checkins []models.Checkin, schedule models.Schedule, asOf time.Time) State {
	asOfDay := models.DateOnly(asOf)

	// Completed scheduled days at or before asOf. Completions logged on
	// non-scheduled days count toward totals elsewhere but not toward chains.
	completed := make(map[time.Time]bool, len(checkins))
	var last *time.Time
	for i := range checkins {
		c := &checkins[i]
		if !c.Completed {
			continue
		}
		day := models.DateOnly(c.Date)
		if day.After(asOfDay) || !schedule.DueOn(day) {
			continue
		}
		completed[day] = true
		if last == nil || day.After(*last) {
			d := day
			last = &d
		}
	}

	if len(completed) == 0 {
		return State{}
	}

	state := State{LastCompletedDate: last}

	// Current streak: walk scheduled occurrences backward from asOf. The
	// occurrence containing asOf may still be pending, so a miss there does
	// not break the run; the walk just starts one occurrence earlier.
	cursor := schedule.LatestDueOnOrBefore(asOfDay)
	if !completed[cursor] {
		cursor = schedule.PrevDue(cursor)
	}
	for completed[cursor] {
		state.CurrentStreak++
		cursor = schedule.PrevDue(cursor)
	}

	// Longest streak: maximal run of consecutive scheduled completions over
	// the full history.
	run := 0
	for day := earliest(completed); !day.After(*last); day = nextDue(schedule, day) {
		if completed[day] {
			run++
			if run > state.LongestStreak {
				state.LongestStreak = run
			}
		} else {
			run = 0
		}
	}

	return state
}

func earliest(days map[time.Time]bool) time.Time {
	var min time.Time
	first := true
	for d := range days {
		if first || d.Before(min) {
			min = d
			first = false
		}
	}
	return min
}

func nextDue(schedule models.Schedule, day time.Time) time.Time {
	d := day.AddDate(0, 0, 1)
	for !schedule.DueOn(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
