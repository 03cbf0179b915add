// Package challenge projects a participant's checkin history against a
// challenge's requirements to produce a progress snapshot. Progress is a
// derived, disposable view: it is recomputed from the ledger on demand and
// never stored authoritatively.
package challenge

import (
	"errors"
	"fmt"

	"github.com/haoyudev/habitloop/internal/models"
	"github.com/haoyudev/habitloop/internal/service/streak"
)

// ErrInvalidRequirement is returned for a challenge configured with a
// non-positive target count.
var ErrInvalidRequirement = errors.New("invalid challenge requirement")

// Progress is the derived progress snapshot for one participant.
type Progress struct {
	ChallengeID    uint    `json:"challenge_id"`
	TargetCount    int     `json:"target_count"`
	CompletedCount int     `json:"completed_count"`
	LongestStreak  int     `json:"longest_streak"`
	CompletionRate float64 `json:"completion_rate"` // clamped to [0, 1]
	Qualifying     bool    `json:"qualifying"`
}

// ComputeProgress maps checkin history against the challenge requirements.
// Only checkins whose date falls within [StartDate, EndDate] inclusive
// count; the streak is computed over the same window. Pure and idempotent.
func ComputeProgress(ch *models.Challenge, schedule models.Schedule, checkins []models.Checkin) (Progress, error) {
	if ch.TargetCount <= 0 {
		return Progress{}, fmt.Errorf("%w: target count %d must be positive", ErrInvalidRequirement, ch.TargetCount)
	}

	start := models.DateOnly(ch.StartDate)
	end := models.DateOnly(ch.EndDate)

	var inRange []models.Checkin
	completedCount := 0
	for i := range checkins {
		day := models.DateOnly(checkins[i].Date)
		if day.Before(start) || day.After(end) {
			continue
		}
		inRange = append(inRange, checkins[i])
		if checkins[i].Completed {
			completedCount++
		}
	}

	state := streak.Compute(inRange, schedule, end)

	rate := float64(completedCount) / float64(ch.TargetCount)
	if rate > 1 {
		rate = 1
	}
	if rate < 0 {
		rate = 0
	}

	progress := Progress{
		ChallengeID:    ch.ID,
		TargetCount:    ch.TargetCount,
		CompletedCount: completedCount,
		LongestStreak:  state.LongestStreak,
		CompletionRate: rate,
	}

	// A streak-gated challenge needs both the count and the in-range streak;
	// otherwise the count alone decides.
	if ch.RequireStreak {
		progress.Qualifying = completedCount >= ch.TargetCount && state.LongestStreak >= ch.MinStreakDays
	} else {
		progress.Qualifying = completedCount >= ch.TargetCount
	}

	return progress, nil
}
