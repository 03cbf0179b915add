package repository

import (
	"time"

	"github.com/haoyudev/habitloop/internal/models"
)

// AchievementRepository handles achievement unlock persistence. Unlock rows
// are write-once: nothing in this repository deletes or mutates them.
type AchievementRepository struct {
	db *DB
}

// NewAchievementRepository creates a new achievement repository.
func NewAchievementRepository(db *DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// RecordUnlock persists an unlock for a user.
// Idempotent: an already-unlocked achievement returns success without a write.
func (r *AchievementRepository) RecordUnlock(ownerID uint, key string, unlockedAt time.Time) error {
	unlocked, err := r.HasUnlocked(ownerID, key)
	if err != nil {
		return err
	}
	if unlocked {
		return nil
	}

	unlock := &models.AchievementUnlock{
		OwnerID:        ownerID,
		AchievementKey: key,
		UnlockedAt:     unlockedAt,
	}
	return r.db.Create(unlock).Error
}

// HasUnlocked checks if a user has unlocked a specific achievement.
func (r *AchievementRepository) HasUnlocked(ownerID uint, key string) (bool, error) {
	var count int64
	err := r.db.Model(&models.AchievementUnlock{}).
		Where("owner_id = ? AND achievement_key = ?", ownerID, key).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListUnlocks retrieves all unlocks for a user, most recent first.
func (r *AchievementRepository) ListUnlocks(ownerID uint) ([]models.AchievementUnlock, error) {
	var unlocks []models.AchievementUnlock
	err := r.db.
		Where("owner_id = ?", ownerID).
		Order("unlocked_at DESC").
		Find(&unlocks).Error
	return unlocks, err
}

// UnlockedKeys returns the set of achievement keys a user has unlocked.
func (r *AchievementRepository) UnlockedKeys(ownerID uint) (map[string]bool, error) {
	unlocks, err := r.ListUnlocks(ownerID)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]bool, len(unlocks))
	for _, u := range unlocks {
		keys[u.AchievementKey] = true
	}
	return keys, nil
}

// CountHolders returns the number of users who have unlocked an achievement.
func (r *AchievementRepository) CountHolders(key string) (int64, error) {
	var count int64
	err := r.db.Model(&models.AchievementUnlock{}).
		Where("achievement_key = ?", key).
		Count(&count).Error
	return count, err
}
