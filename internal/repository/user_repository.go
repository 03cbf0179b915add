package repository

import (
	"github.com/haoyudev/habitloop/internal/models"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user.
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByOpenID retrieves a user by mini-program open ID.
func (r *UserRepository) GetByOpenID(openID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("open_id = ?", openID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListActive retrieves all active users.
func (r *UserRepository) ListActive() ([]models.User, error) {
	var users []models.User
	err := r.db.
		Where("active = ?", true).
		Order("id ASC").
		Find(&users).Error
	return users, err
}
