package achievement

import (
	"context"
	"fmt"
	"time"

	prommetrics "github.com/haoyudev/habitloop/internal/metrics"
	"github.com/haoyudev/habitloop/internal/models"
	"github.com/haoyudev/habitloop/internal/repository"
	"github.com/haoyudev/habitloop/internal/service/challenge"
	"github.com/haoyudev/habitloop/internal/service/streak"
	"github.com/haoyudev/habitloop/pkg/logger"
)

// AchievementRepository interface for unlock persistence.
type AchievementRepository interface {
	RecordUnlock(ownerID uint, key string, unlockedAt time.Time) error
	UnlockedKeys(ownerID uint) (map[string]bool, error)
	ListUnlocks(ownerID uint) ([]models.AchievementUnlock, error)
	CountHolders(key string) (int64, error)
}

// CheckinRepository interface for ledger aggregate reads.
type CheckinRepository interface {
	CountCompleted(ownerID uint) (int64, error)
	DistinctHabitIDs(ownerID uint) ([]uint, error)
}

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	ListActive() ([]models.User, error)
}

// StreakProvider supplies per-habit streak state.
type StreakProvider interface {
	GetStreak(ctx context.Context, ownerID, habitID uint, asOf time.Time) (streak.State, error)
}

// ProgressProvider supplies challenge progress for all joined challenges.
type ProgressProvider interface {
	ProgressForUser(ctx context.Context, userID uint) ([]challenge.Progress, error)
}

// Notifier pushes unlock notifications. Delivery is best effort and never
// blocks or fails an unlock.
type Notifier interface {
	SendAchievementUnlocked(nickname, name, description, icon string) error
}

// Service builds evaluation snapshots, runs the pure evaluator and persists
// the resulting unlocks.
type Service struct {
	achievementRepo AchievementRepository
	checkinRepo     CheckinRepository
	userRepo        UserRepository
	streaks         StreakProvider
	progress        ProgressProvider
	notifier        Notifier
	catalog         *Catalog
	log             *logger.Logger
}

// NewService creates a new achievement service.
func NewService(
	achievementRepo *repository.AchievementRepository,
	checkinRepo *repository.CheckinRepository,
	userRepo *repository.UserRepository,
	streaks *streak.Service,
	progress *challenge.Service,
	notifier Notifier,
	catalog *Catalog,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(achievementRepo, checkinRepo, userRepo, streaks, progress, notifier, catalog, log)
}

// NewServiceWithInterfaces creates a new achievement service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	achievementRepo AchievementRepository,
	checkinRepo CheckinRepository,
	userRepo UserRepository,
	streaks StreakProvider,
	progress ProgressProvider,
	notifier Notifier,
	catalog *Catalog,
	log *logger.Logger,
) *Service {
	return &Service{
		achievementRepo: achievementRepo,
		checkinRepo:     checkinRepo,
		userRepo:        userRepo,
		streaks:         streaks,
		progress:        progress,
		notifier:        notifier,
		catalog:         catalog,
		log:             log,
	}
}

// Catalog returns the loaded achievement catalog.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// ListUnlocks retrieves all unlocks for a user, most recent first.
func (s *Service) ListUnlocks(_ context.Context, userID uint) ([]models.AchievementUnlock, error) {
	return s.achievementRepo.ListUnlocks(userID)
}

// EvaluateUser evaluates the catalog for one user and persists any newly
// satisfied unlocks. Returns the newly unlocked catalog entries in catalog
// order. Running it again immediately returns nothing.
func (s *Service) EvaluateUser(ctx context.Context, userID uint) ([]Achievement, error) {
	s.log.Debug().Uint("user_id", userID).Msg("Evaluating achievements for user")

	unlocked, err := s.achievementRepo.UnlockedKeys(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unlocked keys: %w", err)
	}

	snapshot, err := s.buildSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to build evaluation snapshot: %w", err)
	}

	newKeys := Evaluate(s.catalog, snapshot, unlocked)
	if len(newKeys) == 0 {
		return nil, nil
	}

	now := time.Now()
	newlyUnlocked := make([]Achievement, 0, len(newKeys))
	for _, key := range newKeys {
		entry := s.catalog.Get(key)
		if entry == nil {
			continue
		}

		if err := s.achievementRepo.RecordUnlock(userID, key, now); err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("achievement", key).
				Msg("Failed to record unlock")
			continue
		}
		newlyUnlocked = append(newlyUnlocked, *entry)

		prommetrics.RecordAchievementUnlocked(key)
		count, _ := s.achievementRepo.CountHolders(key)
		prommetrics.SetAchievementHolders(key, int(count))

		s.log.Info().
			Uint("user_id", userID).
			Str("achievement", key).
			Msg("Achievement unlocked")

		s.notify(userID, entry)
	}

	return newlyUnlocked, nil
}

// EvaluateAll evaluates the catalog for every active user.
// This is typically run as a scheduled job.
// Returns the number of unlocks recorded.
func (s *Service) EvaluateAll(ctx context.Context) (int, error) {
	s.log.Info().Msg("Starting achievement evaluation for all users")
	start := time.Now()

	users, err := s.userRepo.ListActive()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list users")
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	unlockCount := 0
	for i := range users {
		newlyUnlocked, err := s.EvaluateUser(ctx, users[i].ID)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", users[i].ID).
				Msg("Failed to evaluate achievements for user")
			continue
		}
		unlockCount += len(newlyUnlocked)
	}

	duration := time.Since(start)
	prommetrics.ObserveEvaluationDuration(duration.Seconds())
	prommetrics.SetEvaluationLastRun()
	s.log.Info().
		Int("users_evaluated", len(users)).
		Int("achievements_unlocked", unlockCount).
		Dur("duration", duration).
		Msg("Achievement evaluation complete")

	return unlockCount, nil
}

func (s *Service) buildSnapshot(ctx context.Context, userID uint) (Snapshot, error) {
	total, err := s.checkinRepo.CountCompleted(userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to count completed checkins: %w", err)
	}

	habitIDs, err := s.checkinRepo.DistinctHabitIDs(userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list habits with checkins: %w", err)
	}

	now := time.Now()
	streaks := make(map[uint]streak.State, len(habitIDs))
	for _, habitID := range habitIDs {
		state, err := s.streaks.GetStreak(ctx, userID, habitID, now)
		if err != nil {
			s.log.Warn().
				Err(err).
				Uint("user_id", userID).
				Uint("habit_id", habitID).
				Msg("Skipping habit in evaluation snapshot")
			continue
		}
		streaks[habitID] = state
	}

	progresses, err := s.progress.ProgressForUser(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to project challenge progress: %w", err)
	}

	return Snapshot{
		TotalCompleted:    int(total),
		Streaks:           streaks,
		ChallengeProgress: progresses,
	}, nil
}

func (s *Service) notify(userID uint, entry *Achievement) {
	if s.notifier == nil {
		return
	}

	nickname := fmt.Sprintf("user %d", userID)
	if user, err := s.userRepo.GetByID(userID); err == nil && user != nil && user.Nickname != "" {
		nickname = user.Nickname
	}

	if err := s.notifier.SendAchievementUnlocked(nickname, entry.Name, entry.Description, entry.Icon); err != nil {
		s.log.Warn().
			Err(err).
			Uint("user_id", userID).
			Str("achievement", entry.Key).
			Msg("Failed to send unlock notification")
	}
}
