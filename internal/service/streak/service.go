package streak

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	prommetrics "github.com/haoyudev/habitloop/internal/metrics"
	"github.com/haoyudev/habitloop/internal/models"
	"github.com/haoyudev/habitloop/internal/repository"
	"github.com/haoyudev/habitloop/pkg/logger"
)

// CheckinRepository is the read interface the aggregator needs.
type CheckinRepository interface {
	ListByHabit(ownerID, habitID uint) ([]models.Checkin, error)
}

// HabitRepository resolves the habit's frequency schedule.
type HabitRepository interface {
	GetByID(id uint) (*models.Habit, error)
}

// Service computes streak state, fronted by a disposable cache. The cache is
// never the source of truth: any mutation of the underlying ledger key
// invalidates it, and a stale or missing entry just triggers recomputation.
type Service struct {
	checkinRepo CheckinRepository
	habitRepo   HabitRepository
	cache       repository.Cache
	cacheTTL    time.Duration
	log         *logger.Logger
}

// NewService creates a new streak service.
func NewService(
	checkinRepo *repository.CheckinRepository,
	habitRepo *repository.HabitRepository,
	cache repository.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(checkinRepo, habitRepo, cache, cacheTTL, log)
}

// NewServiceWithInterfaces creates a new streak service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	checkinRepo CheckinRepository,
	habitRepo HabitRepository,
	cache repository.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{
		checkinRepo: checkinRepo,
		habitRepo:   habitRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		log:         log,
	}
}

// cachedState is the cache payload. The as-of day is stored alongside the
// state so an entry computed yesterday is not served for today.
type cachedState struct {
	AsOf  string `json:"as_of"`
	State State  `json:"state"`
}

// GetStreak returns the streak state for a habit as of the given date,
// consulting the cache first.
func (s *Service) GetStreak(ctx context.Context, ownerID, habitID uint, asOf time.Time) (State, error) {
	asOfDay := models.DateOnly(asOf).Format(time.DateOnly)
	key := repository.StreakCacheKey(ownerID, habitID)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != "" {
			var cached cachedState
			if json.Unmarshal([]byte(raw), &cached) == nil && cached.AsOf == asOfDay {
				prommetrics.RecordCacheLookup("streak", "hit")
				return cached.State, nil
			}
		}
		prommetrics.RecordCacheLookup("streak", "miss")
	}

	state, err := s.computeFresh(ownerID, habitID, asOf)
	if err != nil {
		return State{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(cachedState{AsOf: asOfDay, State: state}); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache streak state")
			}
		}
	}

	prommetrics.ObserveStreakLength("current", state.CurrentStreak)
	prommetrics.ObserveStreakLength("longest", state.LongestStreak)

	return state, nil
}

// Invalidate drops the cached streak state for a (owner, habit) pair.
// Registered as a ledger mutation hook.
func (s *Service) Invalidate(ctx context.Context, ownerID, habitID uint) {
	if s.cache == nil {
		return
	}
	key := repository.StreakCacheKey(ownerID, habitID)
	if err := s.cache.Del(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to invalidate streak cache")
	}
}

func (s *Service) computeFresh(ownerID, habitID uint, asOf time.Time) (State, error) {
	checkins, err := s.checkinRepo.ListByHabit(ownerID, habitID)
	if err != nil {
		return State{}, fmt.Errorf("failed to load checkin history: %w", err)
	}

	schedule := models.DailySchedule()
	if habit, err := s.habitRepo.GetByID(habitID); err == nil && habit != nil {
		schedule = habit.Schedule()
	}

	return Compute(checkins, schedule, asOf), nil
}
