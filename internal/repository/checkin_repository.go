package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/haoyudev/habitloop/internal/models"
)

// CheckinRepository handles checkin-related database operations. All reads
// and writes key on the (owner_id, habit_id, date) uniqueness constraint;
// dates are normalized to calendar days before they reach a query.
type CheckinRepository struct {
	db *DB
}

// NewCheckinRepository creates a new checkin repository.
func NewCheckinRepository(db *DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// GetByKey retrieves the checkin for a (owner, habit, date) key.
// Returns gorm.ErrRecordNotFound if no row exists.
func (r *CheckinRepository) GetByKey(ownerID, habitID uint, date time.Time) (*models.Checkin, error) {
	var checkin models.Checkin
	err := r.db.
		Where("owner_id = ? AND habit_id = ? AND date = ?", ownerID, habitID, models.DateOnly(date)).
		First(&checkin).Error
	if err != nil {
		return nil, err
	}
	return &checkin, nil
}

// Upsert creates the checkin or updates the existing row for its key. This
// ensures the one-record-per-(owner, habit, date) invariant holds across
// repeated record calls.
func (r *CheckinRepository) Upsert(checkin *models.Checkin) error {
	checkin.Date = models.DateOnly(checkin.Date)

	var existing models.Checkin
	err := r.db.
		Where("owner_id = ? AND habit_id = ? AND date = ?", checkin.OwnerID, checkin.HabitID, checkin.Date).
		First(&existing).Error

	if err == gorm.ErrRecordNotFound {
		return r.db.Create(checkin).Error
	}
	if err != nil {
		return err
	}

	checkin.ID = existing.ID
	checkin.CreatedAt = existing.CreatedAt
	return r.db.Save(checkin).Error
}

// Save persists changes to an existing checkin.
func (r *CheckinRepository) Save(checkin *models.Checkin) error {
	return r.db.Save(checkin).Error
}

// DeleteByKey removes the checkin for a key. Returns gorm.ErrRecordNotFound
// if no row existed.
func (r *CheckinRepository) DeleteByKey(ownerID, habitID uint, date time.Time) error {
	result := r.db.
		Where("owner_id = ? AND habit_id = ? AND date = ?", ownerID, habitID, models.DateOnly(date)).
		Delete(&models.Checkin{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByRange retrieves checkins for a habit within [from, to] inclusive,
// date ascending. Each call runs a fresh query; there is no cursor state.
func (r *CheckinRepository) ListByRange(ownerID, habitID uint, from, to time.Time) ([]models.Checkin, error) {
	var checkins []models.Checkin
	err := r.db.
		Where("owner_id = ? AND habit_id = ? AND date BETWEEN ? AND ?",
			ownerID, habitID, models.DateOnly(from), models.DateOnly(to)).
		Order("date ASC").
		Find(&checkins).Error
	return checkins, err
}

// ListByHabit retrieves the full checkin history for a habit, date ascending.
func (r *CheckinRepository) ListByHabit(ownerID, habitID uint) ([]models.Checkin, error) {
	var checkins []models.Checkin
	err := r.db.
		Where("owner_id = ? AND habit_id = ?", ownerID, habitID).
		Order("date ASC").
		Find(&checkins).Error
	return checkins, err
}

// CountCompleted returns the total number of completed checkins for an owner
// across all habits.
func (r *CheckinRepository) CountCompleted(ownerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Checkin{}).
		Where("owner_id = ? AND completed = ?", ownerID, true).
		Count(&count).Error
	return count, err
}

// DistinctHabitIDs returns the habit IDs the owner has any checkins for.
func (r *CheckinRepository) DistinctHabitIDs(ownerID uint) ([]uint, error) {
	var habitIDs []uint
	err := r.db.Model(&models.Checkin{}).
		Where("owner_id = ?", ownerID).
		Distinct("habit_id").
		Order("habit_id ASC").
		Pluck("habit_id", &habitIDs).Error
	return habitIDs, err
}

// LinkPost records the community post a checkin was shared as.
func (r *CheckinRepository) LinkPost(ownerID, habitID uint, date time.Time, postID uint) error {
	result := r.db.Model(&models.Checkin{}).
		Where("owner_id = ? AND habit_id = ? AND date = ?", ownerID, habitID, models.DateOnly(date)).
		Update("post_id", postID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
