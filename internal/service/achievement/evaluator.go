package achievement

import (
	"github.com/haoyudev/habitloop/internal/service/challenge"
	"github.com/haoyudev/habitloop/internal/service/streak"
)

// Snapshot is the derived activity state one user is evaluated against.
// Building it is the service's job; evaluating it is pure.
type Snapshot struct {
	// TotalCompleted counts completed checkins across all habits.
	TotalCompleted int
	// Streaks holds per-habit streak state keyed by habit ID.
	Streaks map[uint]streak.State
	// ChallengeProgress holds progress for every challenge the user joined.
	ChallengeProgress []challenge.Progress
}

// Evaluate returns the catalog keys newly satisfied by the snapshot, in
// catalog order. Keys already in unlocked are skipped, so a second run over
// an unchanged snapshot returns nothing. Pure: no I/O, no persistence.
func Evaluate(catalog *Catalog, snapshot Snapshot, unlocked map[string]bool) []string {
	var newly []string
	for i := range catalog.Achievements {
		a := &catalog.Achievements[i]
		if unlocked[a.Key] {
			continue
		}
		if satisfies(&a.Rule, snapshot) {
			newly = append(newly, a.Key)
		}
	}
	return newly
}

func satisfies(rule *Rule, snapshot Snapshot) bool {
	switch rule.Kind {
	case RuleTotalCountThreshold:
		return snapshot.TotalCompleted >= rule.Threshold
	case RuleStreakThreshold:
		// Any habit's longest streak reaching the bar unlocks it. Longest
		// rather than current: an unlock must survive the streak ending.
		for _, state := range snapshot.Streaks {
			if state.LongestStreak >= rule.Threshold {
				return true
			}
		}
		return false
	case RuleChallengeQualification:
		threshold := rule.Threshold
		if threshold <= 0 {
			threshold = 1
		}
		qualifying := 0
		for i := range snapshot.ChallengeProgress {
			if snapshot.ChallengeProgress[i].Qualifying {
				qualifying++
			}
		}
		return qualifying >= threshold
	default:
		return false
	}
}
