package repository

import (
	"github.com/haoyudev/habitloop/internal/models"
)

// HabitRepository handles habit-related database operations.
type HabitRepository struct {
	db *DB
}

// NewHabitRepository creates a new habit repository.
func NewHabitRepository(db *DB) *HabitRepository {
	return &HabitRepository{db: db}
}

// Create creates a new habit.
func (r *HabitRepository) Create(habit *models.Habit) error {
	return r.db.Create(habit).Error
}

// GetByID retrieves a habit by its ID.
func (r *HabitRepository) GetByID(id uint) (*models.Habit, error) {
	var habit models.Habit
	err := r.db.First(&habit, id).Error
	if err != nil {
		return nil, err
	}
	return &habit, nil
}

// ListByOwner retrieves all non-archived habits for an owner.
func (r *HabitRepository) ListByOwner(ownerID uint) ([]models.Habit, error) {
	var habits []models.Habit
	err := r.db.
		Where("owner_id = ? AND archived = ?", ownerID, false).
		Order("created_at ASC").
		Find(&habits).Error
	return habits, err
}

// Update updates an existing habit.
func (r *HabitRepository) Update(habit *models.Habit) error {
	return r.db.Save(habit).Error
}

// Archive marks a habit as archived; its checkin history is retained.
func (r *HabitRepository) Archive(id uint) error {
	return r.db.Model(&models.Habit{}).
		Where("id = ?", id).
		Update("archived", true).Error
}
