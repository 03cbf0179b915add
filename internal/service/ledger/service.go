// Package ledger owns the set of checkin records per habit per user. It is
// the sole enforcer of the one-record-per-(owner, habit, date) invariant and
// the field range invariants; everything downstream (streaks, challenge
// progress, achievements) derives from what this package persists.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	prommetrics "github.com/haoyudev/habitloop/internal/metrics"
	"github.com/haoyudev/habitloop/internal/models"
	"github.com/haoyudev/habitloop/internal/repository"
	"github.com/haoyudev/habitloop/pkg/logger"
)

// Typed failures reported to callers. Wrapped with context; match with errors.Is.
var (
	ErrInvalidDate   = errors.New("invalid checkin date")
	ErrInvalidFields = errors.New("invalid checkin fields")
	ErrNotFound      = errors.New("checkin not found")
)

// CheckinRepository is the persistence interface the ledger requires.
type CheckinRepository interface {
	GetByKey(ownerID, habitID uint, date time.Time) (*models.Checkin, error)
	Upsert(checkin *models.Checkin) error
	DeleteByKey(ownerID, habitID uint, date time.Time) error
	ListByRange(ownerID, habitID uint, from, to time.Time) ([]models.Checkin, error)
	ListByHabit(ownerID, habitID uint) ([]models.Checkin, error)
}

// InvalidateFunc is called after any mutation of a (owner, habit) pair so
// dependent derived caches can be marked stale.
type InvalidateFunc func(ctx context.Context, ownerID, habitID uint)

// Service is the checkin ledger.
type Service struct {
	checkinRepo CheckinRepository
	log         *logger.Logger

	mu    sync.Mutex
	locks map[ledgerKey]*sync.Mutex

	hooks []InvalidateFunc
}

type ledgerKey struct {
	ownerID uint
	habitID uint
}

// NewService creates a new ledger service.
func NewService(checkinRepo *repository.CheckinRepository, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(checkinRepo, log)
}

// NewServiceWithInterfaces creates a new ledger service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(checkinRepo CheckinRepository, log *logger.Logger) *Service {
	return &Service{
		checkinRepo: checkinRepo,
		log:         log,
		locks:       make(map[ledgerKey]*sync.Mutex),
	}
}

// OnMutate registers a hook invoked after every successful record, amend, or
// retract for the mutated (owner, habit) pair. Used to wire streak and
// challenge progress cache invalidation without a reverse dependency.
func (s *Service) OnMutate(fn InvalidateFunc) {
	s.hooks = append(s.hooks, fn)
}

// keyLock returns the mutex serializing mutations for one (owner, habit)
// pair. Habits are independent, so no cross-key coordination is needed.
func (s *Service) keyLock(ownerID, habitID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerKey{ownerID: ownerID, habitID: habitID}
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// RecordCheckin upserts the record for (ownerID, habitID, date). A second
// record for the same key amends the first: fields set in this call win,
// fields left nil keep their previous values. The caller supplies "now" so
// future-date rejection does not depend on server wall-clock reads mid-call.
func (s *Service) RecordCheckin(ctx context.Context, ownerID, habitID uint, date time.Time, fields models.CheckinFields, now time.Time) (*models.Checkin, error) {
	day := models.DateOnly(date)
	if day.After(models.DateOnly(now)) {
		prommetrics.RecordCheckinRecorded("error")
		return nil, fmt.Errorf("%w: %s is in the future", ErrInvalidDate, day.Format(time.DateOnly))
	}
	if err := validateFields(&fields); err != nil {
		prommetrics.RecordCheckinRecorded("error")
		return nil, err
	}

	lock := s.keyLock(ownerID, habitID)
	lock.Lock()
	defer lock.Unlock()

	checkin, err := s.checkinRepo.GetByKey(ownerID, habitID, day)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			prommetrics.RecordCheckinRecorded("error")
			return nil, fmt.Errorf("failed to load checkin: %w", err)
		}
		checkin = &models.Checkin{
			OwnerID:   ownerID,
			HabitID:   habitID,
			Date:      day,
			Completed: true, // a plain record call is a completion unless told otherwise
		}
	}

	applyFields(checkin, &fields)

	if err := s.checkinRepo.Upsert(checkin); err != nil {
		prommetrics.RecordCheckinRecorded("error")
		return nil, fmt.Errorf("failed to upsert checkin: %w", err)
	}

	s.invalidate(ctx, ownerID, habitID)
	prommetrics.RecordCheckinRecorded("ok")

	s.log.Debug().
		Uint("owner_id", ownerID).
		Uint("habit_id", habitID).
		Str("date", day.Format(time.DateOnly)).
		Msg("Checkin recorded")

	return checkin, nil
}

// AmendCheckin applies a partial update to an existing record.
func (s *Service) AmendCheckin(ctx context.Context, ownerID, habitID uint, date time.Time, fields models.CheckinFields) (*models.Checkin, error) {
	day := models.DateOnly(date)
	if err := validateFields(&fields); err != nil {
		prommetrics.RecordCheckinAmended("error")
		return nil, err
	}

	lock := s.keyLock(ownerID, habitID)
	lock.Lock()
	defer lock.Unlock()

	checkin, err := s.checkinRepo.GetByKey(ownerID, habitID, day)
	if err != nil {
		prommetrics.RecordCheckinAmended("error")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: owner %d habit %d date %s", ErrNotFound, ownerID, habitID, day.Format(time.DateOnly))
		}
		return nil, fmt.Errorf("failed to load checkin: %w", err)
	}

	applyFields(checkin, &fields)

	if err := s.checkinRepo.Upsert(checkin); err != nil {
		prommetrics.RecordCheckinAmended("error")
		return nil, fmt.Errorf("failed to save checkin: %w", err)
	}

	s.invalidate(ctx, ownerID, habitID)
	prommetrics.RecordCheckinAmended("ok")

	return checkin, nil
}

// RetractCheckin removes the record for the key and marks dependent
// streak/progress/achievement caches for the (owner, habit) pair as stale.
func (s *Service) RetractCheckin(ctx context.Context, ownerID, habitID uint, date time.Time) error {
	day := models.DateOnly(date)

	lock := s.keyLock(ownerID, habitID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.checkinRepo.DeleteByKey(ownerID, habitID, day); err != nil {
		prommetrics.RecordCheckinRetracted("error")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: owner %d habit %d date %s", ErrNotFound, ownerID, habitID, day.Format(time.DateOnly))
		}
		return fmt.Errorf("failed to delete checkin: %w", err)
	}

	s.invalidate(ctx, ownerID, habitID)
	prommetrics.RecordCheckinRetracted("ok")

	s.log.Debug().
		Uint("owner_id", ownerID).
		Uint("habit_id", habitID).
		Str("date", day.Format(time.DateOnly)).
		Msg("Checkin retracted")

	return nil
}

// ListCheckins returns the records for a habit within [from, to] inclusive,
// date ascending. Every call is a fresh, consistent view at call time.
func (s *Service) ListCheckins(_ context.Context, ownerID, habitID uint, from, to time.Time) ([]models.Checkin, error) {
	checkins, err := s.checkinRepo.ListByRange(ownerID, habitID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkins: %w", err)
	}
	return checkins, nil
}

// History returns the full checkin history for a habit, date ascending.
func (s *Service) History(_ context.Context, ownerID, habitID uint) ([]models.Checkin, error) {
	checkins, err := s.checkinRepo.ListByHabit(ownerID, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkin history: %w", err)
	}
	return checkins, nil
}

func (s *Service) invalidate(ctx context.Context, ownerID, habitID uint) {
	for _, fn := range s.hooks {
		fn(ctx, ownerID, habitID)
	}
}

// validateFields enforces the mood enum and the 1..5 difficulty range.
func validateFields(fields *models.CheckinFields) error {
	if fields.Mood != nil && !fields.Mood.Valid() {
		return fmt.Errorf("%w: unknown mood %q", ErrInvalidFields, *fields.Mood)
	}
	if fields.Difficulty != nil {
		if d := *fields.Difficulty; d < models.DifficultyMin || d > models.DifficultyMax {
			return fmt.Errorf("%w: difficulty %d outside %d..%d", ErrInvalidFields, d, models.DifficultyMin, models.DifficultyMax)
		}
	}
	return nil
}

// applyFields merges set fields onto the record; nil pointers leave the
// existing values untouched.
func applyFields(checkin *models.Checkin, fields *models.CheckinFields) {
	if fields.Completed != nil {
		checkin.Completed = *fields.Completed
	}
	if fields.DurationMinutes != nil {
		checkin.DurationMinutes = fields.DurationMinutes
	}
	if fields.Mood != nil {
		checkin.Mood = fields.Mood
	}
	if fields.Difficulty != nil {
		checkin.Difficulty = fields.Difficulty
	}
	if fields.Note != nil {
		checkin.Note = fields.Note
	}
	if fields.PhotoURLs != nil {
		checkin.PhotoURLs = fields.PhotoURLs
	}
	if fields.Latitude != nil {
		checkin.Latitude = fields.Latitude
	}
	if fields.Longitude != nil {
		checkin.Longitude = fields.Longitude
	}
	if fields.PostID != nil {
		checkin.PostID = fields.PostID
	}
}
