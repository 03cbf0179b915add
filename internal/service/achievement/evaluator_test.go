package achievement

import (
	"reflect"
	"testing"

	"github.com/haoyudev/habitloop/internal/service/challenge"
	"github.com/haoyudev/habitloop/internal/service/streak"
)

func testCatalog() *Catalog {
	return &Catalog{
		Achievements: []Achievement{
			{Key: "first_step", Name: "First Step", Rule: Rule{Kind: RuleTotalCountThreshold, Threshold: 1}},
			{Key: "week_streak", Name: "One Week Strong", Rule: Rule{Kind: RuleStreakThreshold, Threshold: 7}},
			{Key: "challenger", Name: "Challenger", Rule: Rule{Kind: RuleChallengeQualification}},
			{Key: "habit_builder", Name: "Habit Builder", Rule: Rule{Kind: RuleTotalCountThreshold, Threshold: 100}},
		},
	}
}

func TestEvaluate_EmptySnapshot(t *testing.T) {
	newly := Evaluate(testCatalog(), Snapshot{}, nil)
	if len(newly) != 0 {
		t.Errorf("Expected no unlocks for an empty snapshot, got %v", newly)
	}
}

func TestEvaluate_ReturnsKeysInCatalogOrder(t *testing.T) {
	snapshot := Snapshot{
		TotalCompleted: 150,
		Streaks: map[uint]streak.State{
			1: {CurrentStreak: 2, LongestStreak: 9},
		},
	}

	newly := Evaluate(testCatalog(), snapshot, nil)

	want := []string{"first_step", "week_streak", "habit_builder"}
	if !reflect.DeepEqual(newly, want) {
		t.Errorf("Expected %v in catalog order, got %v", want, newly)
	}
}

func TestEvaluate_SkipsAlreadyUnlocked(t *testing.T) {
	snapshot := Snapshot{TotalCompleted: 5}

	first := Evaluate(testCatalog(), snapshot, nil)
	if !reflect.DeepEqual(first, []string{"first_step"}) {
		t.Fatalf("Expected first_step, got %v", first)
	}

	// Same snapshot with the unlock recorded yields nothing.
	second := Evaluate(testCatalog(), snapshot, map[string]bool{"first_step": true})
	if len(second) != 0 {
		t.Errorf("Expected no unlocks on re-evaluation, got %v", second)
	}
}

func TestEvaluate_StreakUsesLongest(t *testing.T) {
	// A past 7-day run still unlocks even after the streak ended.
	snapshot := Snapshot{
		Streaks: map[uint]streak.State{
			3: {CurrentStreak: 0, LongestStreak: 7},
		},
	}

	newly := Evaluate(testCatalog(), snapshot, nil)
	if !reflect.DeepEqual(newly, []string{"week_streak"}) {
		t.Errorf("Expected week_streak, got %v", newly)
	}
}

func TestEvaluate_AnyHabitSatisfiesStreakRule(t *testing.T) {
	snapshot := Snapshot{
		Streaks: map[uint]streak.State{
			1: {LongestStreak: 2},
			2: {LongestStreak: 8},
		},
	}

	newly := Evaluate(testCatalog(), snapshot, nil)
	if !reflect.DeepEqual(newly, []string{"week_streak"}) {
		t.Errorf("Expected week_streak, got %v", newly)
	}
}

func TestEvaluate_ChallengeQualificationDefaultsToOne(t *testing.T) {
	snapshot := Snapshot{
		ChallengeProgress: []challenge.Progress{
			{ChallengeID: 1, Qualifying: false},
			{ChallengeID: 2, Qualifying: true},
		},
	}

	newly := Evaluate(testCatalog(), snapshot, nil)
	if !reflect.DeepEqual(newly, []string{"challenger"}) {
		t.Errorf("Expected challenger, got %v", newly)
	}
}

func TestEvaluate_ChallengeQualificationThreshold(t *testing.T) {
	catalog := &Catalog{
		Achievements: []Achievement{
			{Key: "serial", Rule: Rule{Kind: RuleChallengeQualification, Threshold: 2}},
		},
	}

	snapshot := Snapshot{
		ChallengeProgress: []challenge.Progress{
			{ChallengeID: 1, Qualifying: true},
		},
	}
	if newly := Evaluate(catalog, snapshot, nil); len(newly) != 0 {
		t.Errorf("Expected one qualification to miss a threshold of two, got %v", newly)
	}

	snapshot.ChallengeProgress = append(snapshot.ChallengeProgress, challenge.Progress{ChallengeID: 2, Qualifying: true})
	if newly := Evaluate(catalog, snapshot, nil); !reflect.DeepEqual(newly, []string{"serial"}) {
		t.Errorf("Expected serial, got %v", newly)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	snapshot := Snapshot{
		TotalCompleted: 150,
		Streaks: map[uint]streak.State{
			1: {LongestStreak: 30},
			2: {LongestStreak: 3},
		},
		ChallengeProgress: []challenge.Progress{{ChallengeID: 1, Qualifying: true}},
	}

	first := Evaluate(testCatalog(), snapshot, nil)
	for i := 0; i < 10; i++ {
		if got := Evaluate(testCatalog(), snapshot, nil); !reflect.DeepEqual(got, first) {
			t.Fatalf("Expected identical results across runs, got %v and %v", first, got)
		}
	}
}
