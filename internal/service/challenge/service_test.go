package challenge

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/haoyudev/habitloop/internal/models"
	"github.com/haoyudev/habitloop/pkg/logger"
	"github.com/haoyudev/habitloop/test/mocks"
)

// Mock repositories for testing
type mockChallengeRepository struct {
	challenges   map[uint]*models.Challenge
	participants map[uint]map[uint]bool
}

func newMockChallengeRepository() *mockChallengeRepository {
	return &mockChallengeRepository{
		challenges:   make(map[uint]*models.Challenge),
		participants: make(map[uint]map[uint]bool),
	}
}

func (m *mockChallengeRepository) GetByID(id uint) (*models.Challenge, error) {
	if ch, ok := m.challenges[id]; ok {
		return ch, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockChallengeRepository) ListByTargetHabit(habitID uint) ([]models.Challenge, error) {
	var result []models.Challenge
	for _, ch := range m.challenges {
		if ch.TargetHabitID == habitID {
			result = append(result, *ch)
		}
	}
	return result, nil
}

func (m *mockChallengeRepository) ListJoinedByUser(userID uint) ([]models.Challenge, error) {
	var result []models.Challenge
	for id, users := range m.participants {
		if users[userID] {
			result = append(result, *m.challenges[id])
		}
	}
	return result, nil
}

func (m *mockChallengeRepository) AddParticipant(challengeID, userID uint) error {
	if m.participants[challengeID] == nil {
		m.participants[challengeID] = make(map[uint]bool)
	}
	m.participants[challengeID][userID] = true
	return nil
}

func (m *mockChallengeRepository) CountParticipants(challengeID uint) (int64, error) {
	return int64(len(m.participants[challengeID])), nil
}

type mockCheckinRepository struct {
	checkins []models.Checkin
	calls    int
}

func (m *mockCheckinRepository) ListByRange(_, _ uint, from, to time.Time) ([]models.Checkin, error) {
	m.calls++
	fromDay := models.DateOnly(from)
	toDay := models.DateOnly(to)
	var result []models.Checkin
	for _, c := range m.checkins {
		d := models.DateOnly(c.Date)
		if !d.Before(fromDay) && !d.After(toDay) {
			result = append(result, c)
		}
	}
	return result, nil
}

type mockHabitRepository struct {
	habit *models.Habit
}

func (m *mockHabitRepository) GetByID(_ uint) (*models.Habit, error) {
	if m.habit == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.habit, nil
}

func setupTestService(checkins []models.Checkin) (*Service, *mockChallengeRepository, *mockCheckinRepository, *mocks.MockCache) {
	challengeRepo := newMockChallengeRepository()
	checkinRepo := &mockCheckinRepository{checkins: checkins}
	habitRepo := &mockHabitRepository{habit: &models.Habit{ID: 1, FrequencyUnit: models.FrequencyDaily}}
	cache := mocks.NewMockCache()
	log := logger.New("error", "json", "stdout")
	service := NewServiceWithInterfaces(challengeRepo, checkinRepo, habitRepo, cache, time.Minute, log)
	return service, challengeRepo, checkinRepo, cache
}

func TestGetProgress_NotFound(t *testing.T) {
	service, _, _, _ := setupTestService(nil)

	_, err := service.GetProgress(context.Background(), 42, 1)
	if err == nil {
		t.Fatal("Expected error for missing challenge")
	}
}

func TestGetProgress_ComputesAndCaches(t *testing.T) {
	checkins := completedOn(day(2026, 1, 1), day(2026, 1, 2), day(2026, 1, 3))
	service, challengeRepo, checkinRepo, cache := setupTestService(checkins)

	challengeRepo.challenges[7] = testChallenge()

	progress, err := service.GetProgress(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("Failed to get progress: %v", err)
	}
	if progress.CompletedCount != 3 {
		t.Errorf("Expected 3 completions, got %d", progress.CompletedCount)
	}
	if cache.Len() != 1 {
		t.Errorf("Expected the snapshot to be cached, got %d entries", cache.Len())
	}

	// The second read is served from the cache.
	again, err := service.GetProgress(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("Failed to get cached progress: %v", err)
	}
	if again != progress {
		t.Errorf("Expected identical progress from cache, got %+v and %+v", progress, again)
	}
	if checkinRepo.calls != 1 {
		t.Errorf("Expected 1 ledger read, got %d", checkinRepo.calls)
	}
}

func TestInvalidateForHabit_DropsTargetedChallenges(t *testing.T) {
	checkins := completedOn(day(2026, 1, 1))
	service, challengeRepo, checkinRepo, cache := setupTestService(checkins)

	challengeRepo.challenges[7] = testChallenge()
	other := testChallenge()
	other.ID = 8
	other.TargetHabitID = 99
	challengeRepo.challenges[8] = other

	if _, err := service.GetProgress(context.Background(), 7, 1); err != nil {
		t.Fatalf("Failed to get progress: %v", err)
	}
	if _, err := service.GetProgress(context.Background(), 8, 1); err != nil {
		t.Fatalf("Failed to get progress: %v", err)
	}
	if cache.Len() != 2 {
		t.Fatalf("Expected 2 cached snapshots, got %d", cache.Len())
	}

	// Invalidating habit 1 drops challenge 7's snapshot only.
	service.InvalidateForHabit(context.Background(), 1, 1)
	if cache.Len() != 1 {
		t.Errorf("Expected 1 cached snapshot after invalidation, got %d", cache.Len())
	}

	reads := checkinRepo.calls
	if _, err := service.GetProgress(context.Background(), 7, 1); err != nil {
		t.Fatalf("Failed to get progress: %v", err)
	}
	if checkinRepo.calls != reads+1 {
		t.Error("Expected a fresh ledger read after invalidation")
	}
}

func TestJoin_UnknownChallenge(t *testing.T) {
	service, _, _, _ := setupTestService(nil)

	if err := service.Join(context.Background(), 42, 1); err == nil {
		t.Fatal("Expected error for missing challenge")
	}
}

func TestProgressForUser(t *testing.T) {
	checkins := completedOn(day(2026, 1, 1), day(2026, 1, 2))
	service, challengeRepo, _, _ := setupTestService(checkins)

	challengeRepo.challenges[7] = testChallenge()
	if err := service.Join(context.Background(), 7, 1); err != nil {
		t.Fatalf("Failed to join challenge: %v", err)
	}

	progresses, err := service.ProgressForUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("Failed to project progress: %v", err)
	}
	if len(progresses) != 1 || progresses[0].CompletedCount != 2 {
		t.Errorf("Unexpected progress: %+v", progresses)
	}
}
