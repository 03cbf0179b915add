package repository

import (
	"github.com/haoyudev/habitloop/internal/models"
)

// PostRepository handles community post database operations.
type PostRepository struct {
	db *DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create creates a new post.
func (r *PostRepository) Create(post *models.Post) error {
	return r.db.Create(post).Error
}

// GetByID retrieves a post by its ID.
func (r *PostRepository) GetByID(id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListRecent retrieves the most recent posts.
func (r *PostRepository) ListRecent(limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// ListByAuthor retrieves a user's posts, most recent first.
func (r *PostRepository) ListByAuthor(authorID uint) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}
