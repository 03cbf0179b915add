package repository

import (
	"time"

	"github.com/haoyudev/habitloop/internal/models"
)

// ChallengeRepository handles challenge-related database operations.
type ChallengeRepository struct {
	db *DB
}

// NewChallengeRepository creates a new challenge repository.
func NewChallengeRepository(db *DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Create creates a new challenge.
func (r *ChallengeRepository) Create(challenge *models.Challenge) error {
	return r.db.Create(challenge).Error
}

// GetByID retrieves a challenge by its ID.
func (r *ChallengeRepository) GetByID(id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.First(&challenge, id).Error
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

// ListActive retrieves challenges whose date range contains asOf.
func (r *ChallengeRepository) ListActive(asOf time.Time) ([]models.Challenge, error) {
	day := models.DateOnly(asOf)
	var challenges []models.Challenge
	err := r.db.
		Where("start_date <= ? AND end_date >= ?", day, day).
		Order("start_date ASC").
		Find(&challenges).Error
	return challenges, err
}

// AddParticipant joins a user to a challenge. Joining twice is a no-op.
func (r *ChallengeRepository) AddParticipant(challengeID, userID uint) error {
	joined, err := r.IsParticipant(challengeID, userID)
	if err != nil {
		return err
	}
	if joined {
		return nil
	}

	participant := &models.ChallengeParticipant{
		ChallengeID: challengeID,
		UserID:      userID,
		JoinedAt:    time.Now(),
	}
	return r.db.Create(participant).Error
}

// IsParticipant reports whether the user has joined the challenge.
func (r *ChallengeRepository) IsParticipant(challengeID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListParticipants retrieves the participants of a challenge.
func (r *ChallengeRepository) ListParticipants(challengeID uint) ([]models.ChallengeParticipant, error) {
	var participants []models.ChallengeParticipant
	err := r.db.
		Where("challenge_id = ?", challengeID).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

// CountParticipants returns the number of users who joined a challenge.
// This is the single authoritative participant count.
func (r *ChallengeRepository) CountParticipants(challengeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ?", challengeID).
		Count(&count).Error
	return count, err
}

// ListByTargetHabit retrieves all challenges targeting a habit.
func (r *ChallengeRepository) ListByTargetHabit(habitID uint) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := r.db.
		Where("target_habit_id = ?", habitID).
		Find(&challenges).Error
	return challenges, err
}

// ListJoinedByUser retrieves all challenges a user has joined.
func (r *ChallengeRepository) ListJoinedByUser(userID uint) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := r.db.
		Joins("JOIN challenge_participants ON challenge_participants.challenge_id = challenges.id").
		Where("challenge_participants.user_id = ?", userID).
		Order("challenges.start_date ASC").
		Find(&challenges).Error
	return challenges, err
}
