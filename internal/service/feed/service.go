// Package feed turns checkins into shareable community posts.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/haoyudev/habitloop/internal/models"
	"github.com/haoyudev/habitloop/internal/repository"
	"github.com/haoyudev/habitloop/pkg/logger"
)

// ErrCheckinNotFound is returned when sharing a checkin that does not exist.
var ErrCheckinNotFound = errors.New("checkin not found")

// PostRepository interface for post persistence.
type PostRepository interface {
	Create(post *models.Post) error
	ListRecent(limit int) ([]models.Post, error)
	ListByAuthor(authorID uint) ([]models.Post, error)
}

// CheckinRepository interface for checkin reads and post linking.
type CheckinRepository interface {
	GetByKey(ownerID, habitID uint, date time.Time) (*models.Checkin, error)
	LinkPost(ownerID, habitID uint, date time.Time, postID uint) error
}

// Service publishes checkins to the community feed.
type Service struct {
	postRepo    PostRepository
	checkinRepo CheckinRepository
	log         *logger.Logger
}

// NewService creates a new feed service.
func NewService(postRepo *repository.PostRepository, checkinRepo *repository.CheckinRepository, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(postRepo, checkinRepo, log)
}

// NewServiceWithInterfaces creates a new feed service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(postRepo PostRepository, checkinRepo CheckinRepository, log *logger.Logger) *Service {
	return &Service{
		postRepo:    postRepo,
		checkinRepo: checkinRepo,
		log:         log,
	}
}

// ShareCheckin publishes a checkin as a community post and links the post
// back to the checkin record.
func (s *Service) ShareCheckin(_ context.Context, ownerID, habitID uint, date time.Time, caption string) (*models.Post, error) {
	day := models.DateOnly(date)

	checkin, err := s.checkinRepo.GetByKey(ownerID, habitID, day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: owner %d habit %d date %s", ErrCheckinNotFound, ownerID, habitID, day.Format(time.DateOnly))
		}
		return nil, fmt.Errorf("failed to load checkin: %w", err)
	}

	post := &models.Post{
		AuthorID:    ownerID,
		HabitID:     habitID,
		CheckinDate: day,
		Caption:     caption,
		PhotoURLs:   checkin.PhotoURLs,
	}
	if err := s.postRepo.Create(post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if err := s.checkinRepo.LinkPost(ownerID, habitID, day, post.ID); err != nil {
		s.log.Warn().
			Err(err).
			Uint("post_id", post.ID).
			Msg("Failed to link post back to checkin")
	}

	s.log.Info().
		Uint("owner_id", ownerID).
		Uint("habit_id", habitID).
		Uint("post_id", post.ID).
		Msg("Checkin shared to feed")

	return post, nil
}

// ListRecent returns the most recent posts in the feed.
func (s *Service) ListRecent(_ context.Context, limit int) ([]models.Post, error) {
	return s.postRepo.ListRecent(limit)
}

// ListByAuthor returns a user's posts, most recent first.
func (s *Service) ListByAuthor(_ context.Context, authorID uint) ([]models.Post, error) {
	return s.postRepo.ListByAuthor(authorID)
}
