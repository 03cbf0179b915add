package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	prommetrics "github.com/haoyudev/habitloop/internal/metrics"
	"github.com/haoyudev/habitloop/internal/models"
	"github.com/haoyudev/habitloop/internal/repository"
	"github.com/haoyudev/habitloop/pkg/logger"
)

// ErrNotFound is returned when a challenge does not exist.
var ErrNotFound = errors.New("challenge not found")

// ChallengeRepository is the persistence interface for challenges.
type ChallengeRepository interface {
	GetByID(id uint) (*models.Challenge, error)
	ListByTargetHabit(habitID uint) ([]models.Challenge, error)
	ListJoinedByUser(userID uint) ([]models.Challenge, error)
	AddParticipant(challengeID, userID uint) error
	CountParticipants(challengeID uint) (int64, error)
}

// CheckinRepository is the ledger read interface for projections.
type CheckinRepository interface {
	ListByRange(ownerID, habitID uint, from, to time.Time) ([]models.Checkin, error)
}

// HabitRepository resolves the target habit's schedule.
type HabitRepository interface {
	GetByID(id uint) (*models.Habit, error)
}

// Service computes challenge progress snapshots, fronted by the disposable
// derived-state cache.
type Service struct {
	challengeRepo ChallengeRepository
	checkinRepo   CheckinRepository
	habitRepo     HabitRepository
	cache         repository.Cache
	cacheTTL      time.Duration
	log           *logger.Logger
}

// NewService creates a new challenge progress service.
func NewService(
	challengeRepo *repository.ChallengeRepository,
	checkinRepo *repository.CheckinRepository,
	habitRepo *repository.HabitRepository,
	cache repository.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(challengeRepo, checkinRepo, habitRepo, cache, cacheTTL, log)
}

// NewServiceWithInterfaces creates a new challenge progress service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	challengeRepo ChallengeRepository,
	checkinRepo CheckinRepository,
	habitRepo HabitRepository,
	cache repository.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{
		challengeRepo: challengeRepo,
		checkinRepo:   checkinRepo,
		habitRepo:     habitRepo,
		cache:         cache,
		cacheTTL:      cacheTTL,
		log:           log,
	}
}

// Join adds a user to a challenge. Joining twice is a no-op.
func (s *Service) Join(_ context.Context, challengeID, userID uint) error {
	if _, err := s.challengeRepo.GetByID(challengeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id %d", ErrNotFound, challengeID)
		}
		return fmt.Errorf("failed to load challenge: %w", err)
	}
	return s.challengeRepo.AddParticipant(challengeID, userID)
}

// GetProgress returns the participant's progress snapshot for a challenge,
// consulting the cache first.
func (s *Service) GetProgress(ctx context.Context, challengeID, ownerID uint) (Progress, error) {
	key := repository.ProgressCacheKey(challengeID, ownerID)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != "" {
			var cached Progress
			if json.Unmarshal([]byte(raw), &cached) == nil {
				prommetrics.RecordCacheLookup("progress", "hit")
				return cached, nil
			}
		}
		prommetrics.RecordCacheLookup("progress", "miss")
	}

	progress, err := s.computeFresh(challengeID, ownerID)
	if err != nil {
		return Progress{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(progress); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache challenge progress")
			}
		}
	}

	return progress, nil
}

// ProgressForUser computes progress for every challenge the user has joined.
// Used when building achievement evaluation snapshots; bypasses the cache so
// the evaluator always sees current ledger state.
func (s *Service) ProgressForUser(_ context.Context, userID uint) ([]Progress, error) {
	challenges, err := s.challengeRepo.ListJoinedByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined challenges: %w", err)
	}

	progresses := make([]Progress, 0, len(challenges))
	for i := range challenges {
		progress, err := s.project(&challenges[i], userID)
		if err != nil {
			// A misconfigured challenge must not block evaluation of the rest.
			s.log.Warn().
				Err(err).
				Uint("challenge_id", challenges[i].ID).
				Uint("user_id", userID).
				Msg("Skipping challenge in progress projection")
			continue
		}
		progresses = append(progresses, progress)
	}
	return progresses, nil
}

// InvalidateForHabit drops cached progress for every challenge targeting the
// habit. Registered as a ledger mutation hook.
func (s *Service) InvalidateForHabit(ctx context.Context, ownerID, habitID uint) {
	if s.cache == nil {
		return
	}

	challenges, err := s.challengeRepo.ListByTargetHabit(habitID)
	if err != nil {
		s.log.Warn().Err(err).Uint("habit_id", habitID).Msg("Failed to list challenges for cache invalidation")
		return
	}

	keys := make([]string, 0, len(challenges))
	for i := range challenges {
		keys = append(keys, repository.ProgressCacheKey(challenges[i].ID, ownerID))
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.log.Warn().Err(err).Uint("habit_id", habitID).Msg("Failed to invalidate progress cache")
	}
}

func (s *Service) computeFresh(challengeID, ownerID uint) (Progress, error) {
	ch, err := s.challengeRepo.GetByID(challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Progress{}, fmt.Errorf("%w: id %d", ErrNotFound, challengeID)
		}
		return Progress{}, fmt.Errorf("failed to load challenge: %w", err)
	}
	return s.project(ch, ownerID)
}

func (s *Service) project(ch *models.Challenge, ownerID uint) (Progress, error) {
	checkins, err := s.checkinRepo.ListByRange(ownerID, ch.TargetHabitID, ch.StartDate, ch.EndDate)
	if err != nil {
		return Progress{}, fmt.Errorf("failed to list checkins in range: %w", err)
	}

	schedule := models.DailySchedule()
	if habit, err := s.habitRepo.GetByID(ch.TargetHabitID); err == nil && habit != nil {
		schedule = habit.Schedule()
	}

	return ComputeProgress(ch, schedule, checkins)
}
