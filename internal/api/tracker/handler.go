// Package tracker provides REST API handlers for the habit tracking core.
// It exposes endpoints for checkins, streaks, challenge progress and
// achievements.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haoyudev/habitloop/internal/models"
	"github.com/haoyudev/habitloop/internal/service/achievement"
	"github.com/haoyudev/habitloop/internal/service/challenge"
	"github.com/haoyudev/habitloop/internal/service/feed"
	"github.com/haoyudev/habitloop/internal/service/ledger"
	"github.com/haoyudev/habitloop/internal/service/streak"
	"github.com/haoyudev/habitloop/pkg/logger"
)

// LedgerService interface for checkin ledger operations.
type LedgerService interface {
	RecordCheckin(ctx context.Context, ownerID, habitID uint, date time.Time, fields models.CheckinFields, now time.Time) (*models.Checkin, error)
	AmendCheckin(ctx context.Context, ownerID, habitID uint, date time.Time, fields models.CheckinFields) (*models.Checkin, error)
	RetractCheckin(ctx context.Context, ownerID, habitID uint, date time.Time) error
	ListCheckins(ctx context.Context, ownerID, habitID uint, from, to time.Time) ([]models.Checkin, error)
	History(ctx context.Context, ownerID, habitID uint) ([]models.Checkin, error)
}

// StreakService interface for streak aggregation.
type StreakService interface {
	GetStreak(ctx context.Context, ownerID, habitID uint, asOf time.Time) (streak.State, error)
}

// ChallengeService interface for challenge operations.
type ChallengeService interface {
	Join(ctx context.Context, challengeID, userID uint) error
	GetProgress(ctx context.Context, challengeID, ownerID uint) (challenge.Progress, error)
}

// AchievementService interface for achievement operations.
type AchievementService interface {
	Catalog() *achievement.Catalog
	ListUnlocks(ctx context.Context, userID uint) ([]models.AchievementUnlock, error)
	EvaluateUser(ctx context.Context, userID uint) ([]achievement.Achievement, error)
}

// FeedService interface for checkin sharing and feed reads.
type FeedService interface {
	ShareCheckin(ctx context.Context, ownerID, habitID uint, date time.Time, caption string) (*models.Post, error)
	ListRecent(ctx context.Context, limit int) ([]models.Post, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]models.Post, error)
}

// Handler handles tracker API requests.
type Handler struct {
	ledgerService      LedgerService
	streakService      StreakService
	challengeService   ChallengeService
	achievementService AchievementService
	feedService        FeedService
	log                *logger.Logger
}

// NewHandler creates a new tracker handler.
func NewHandler(
	ledgerService *ledger.Service,
	streakService *streak.Service,
	challengeService *challenge.Service,
	achievementService *achievement.Service,
	feedService *feed.Service,
	log *logger.Logger,
) *Handler {
	return NewHandlerWithInterfaces(ledgerService, streakService, challengeService, achievementService, feedService, log)
}

// NewHandlerWithInterfaces creates a new tracker handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	ledgerService LedgerService,
	streakService StreakService,
	challengeService ChallengeService,
	achievementService AchievementService,
	feedService FeedService,
	log *logger.Logger,
) *Handler {
	return &Handler{
		ledgerService:      ledgerService,
		streakService:      streakService,
		challengeService:   challengeService,
		achievementService: achievementService,
		feedService:        feedService,
		log:                log,
	}
}

// RegisterRoutes mounts the tracker API under /api/v1.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/achievements", h.GetAchievementCatalog)
		v1.GET("/feed", h.GetFeed)

		users := v1.Group("/users/:id")
		{
			users.GET("/posts", h.GetUserPosts)
			users.POST("/habits/:habit_id/checkins", h.RecordCheckin)
			users.GET("/habits/:habit_id/checkins", h.ListCheckins)
			users.PATCH("/habits/:habit_id/checkins/:date", h.AmendCheckin)
			users.DELETE("/habits/:habit_id/checkins/:date", h.RetractCheckin)
			users.POST("/habits/:habit_id/checkins/:date/share", h.ShareCheckin)
			users.GET("/habits/:habit_id/streak", h.GetStreak)
			users.POST("/challenges/:challenge_id/join", h.JoinChallenge)
			users.GET("/challenges/:challenge_id/progress", h.GetChallengeProgress)
			users.GET("/achievements", h.GetUserAchievements)
			users.POST("/achievements/evaluate", h.EvaluateAchievements)
		}
	}
}

// recordCheckinRequest is the body for recording or amending a checkin.
type recordCheckinRequest struct {
	Date   string               `json:"date"` // YYYY-MM-DD; required on record
	Fields models.CheckinFields `json:"fields"`
}

// RecordCheckin records (or re-records) a checkin for a day.
// POST /api/v1/users/:id/habits/:habit_id/checkins.
func (h *Handler) RecordCheckin(c *gin.Context) {
	ownerID, habitID, err := h.parseOwnerAndHabit(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req recordCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid date: %s", req.Date))
		return
	}

	checkin, err := h.ledgerService.RecordCheckin(c.Request.Context(), ownerID, habitID, date, req.Fields, time.Now())
	if err != nil {
		h.handleLedgerError(c, err, "Failed to record checkin")
		return
	}

	h.log.Info().
		Uint("owner_id", ownerID).
		Uint("habit_id", habitID).
		Str("date", req.Date).
		Msg("Recorded checkin")

	c.JSON(http.StatusOK, gin.H{
		"checkin":      checkin,
		"generated_at": time.Now().UTC(),
	})
}

// AmendCheckin applies a partial update to an existing checkin.
// PATCH /api/v1/users/:id/habits/:habit_id/checkins/:date.
func (h *Handler) AmendCheckin(c *gin.Context) {
	ownerID, habitID, err := h.parseOwnerAndHabit(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	date, err := h.parseDate(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var fields models.CheckinFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	checkin, err := h.ledgerService.AmendCheckin(c.Request.Context(), ownerID, habitID, date, fields)
	if err != nil {
		h.handleLedgerError(c, err, "Failed to amend checkin")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkin":      checkin,
		"generated_at": time.Now().UTC(),
	})
}

// RetractCheckin removes a checkin record.
// DELETE /api/v1/users/:id/habits/:habit_id/checkins/:date.
func (h *Handler) RetractCheckin(c *gin.Context) {
	ownerID, habitID, err := h.parseOwnerAndHabit(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	date, err := h.parseDate(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledgerService.RetractCheckin(c.Request.Context(), ownerID, habitID, date); err != nil {
		h.handleLedgerError(c, err, "Failed to retract checkin")
		return
	}

	h.log.Info().
		Uint("owner_id", ownerID).
		Uint("habit_id", habitID).
		Str("date", date.Format(time.DateOnly)).
		Msg("Retracted checkin")

	c.JSON(http.StatusOK, gin.H{
		"retracted":    true,
		"generated_at": time.Now().UTC(),
	})
}

// ListCheckins returns checkins for a habit, optionally bounded by
// from/to query parameters.
// GET /api/v1/users/:id/habits/:habit_id/checkins?from=2026-01-01&to=2026-01-31.
func (h *Handler) ListCheckins(c *gin.Context) {
	ownerID, habitID, err := h.parseOwnerAndHabit(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")

	var checkins []models.Checkin
	if fromStr == "" && toStr == "" {
		checkins, err = h.ledgerService.History(c.Request.Context(), ownerID, habitID)
	} else {
		var from, to time.Time
		from, err = time.Parse(time.DateOnly, fromStr)
		if err != nil {
			h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid from date: %s", fromStr))
			return
		}
		to, err = time.Parse(time.DateOnly, toStr)
		if err != nil {
			h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid to date: %s", toStr))
			return
		}
		checkins, err = h.ledgerService.ListCheckins(c.Request.Context(), ownerID, habitID, from, to)
	}
	if err != nil {
		h.log.Error().Err(err).Uint("habit_id", habitID).Msg("Failed to list checkins")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve checkins")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkins":     checkins,
		"total":        len(checkins),
		"generated_at": time.Now().UTC(),
	})
}

// ShareCheckin publishes a checkin to the community feed.
// POST /api/v1/users/:id/habits/:habit_id/checkins/:date/share.
func (h *Handler) ShareCheckin(c *gin.Context) {
	ownerID, habitID, err := h.parseOwnerAndHabit(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	date, err := h.parseDate(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Caption string `json:"caption"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.feedService.ShareCheckin(c.Request.Context(), ownerID, habitID, date, req.Caption)
	if err != nil {
		if errors.Is(err, feed.ErrCheckinNotFound) {
			h.errorResponse(c, http.StatusNotFound, "Checkin not found")
			return
		}
		h.log.Error().Err(err).Uint("habit_id", habitID).Msg("Failed to share checkin")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to share checkin")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"post":         post,
		"generated_at": time.Now().UTC(),
	})
}

// GetFeed returns the most recent shared posts.
// GET /api/v1/feed?limit=20.
func (h *Handler) GetFeed(c *gin.Context) {
	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > 100 {
			h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid limit: %s", limitStr))
			return
		}
		limit = parsed
	}

	posts, err := h.feedService.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list feed posts")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve feed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":        posts,
		"total":        len(posts),
		"generated_at": time.Now().UTC(),
	})
}

// GetUserPosts returns the posts a user has shared.
// GET /api/v1/users/:id/posts.
func (h *Handler) GetUserPosts(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	posts, err := h.feedService.ListByAuthor(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to list user posts")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"posts":        posts,
		"total":        len(posts),
		"generated_at": time.Now().UTC(),
	})
}

// GetStreak returns the current and longest streak for a habit.
// GET /api/v1/users/:id/habits/:habit_id/streak?as_of=2026-01-31.
func (h *Handler) GetStreak(c *gin.Context) {
	ownerID, habitID, err := h.parseOwnerAndHabit(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	asOf := time.Now()
	if asOfStr := c.Query("as_of"); asOfStr != "" {
		asOf, err = time.Parse(time.DateOnly, asOfStr)
		if err != nil {
			h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid as_of date: %s", asOfStr))
			return
		}
	}

	state, err := h.streakService.GetStreak(c.Request.Context(), ownerID, habitID, asOf)
	if err != nil {
		h.log.Error().Err(err).Uint("habit_id", habitID).Msg("Failed to get streak")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve streak")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"habit_id":     habitID,
		"streak":       state,
		"generated_at": time.Now().UTC(),
	})
}

// JoinChallenge adds the user to a challenge.
// POST /api/v1/users/:id/challenges/:challenge_id/join.
func (h *Handler) JoinChallenge(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	challengeID, err := h.parseChallengeID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.challengeService.Join(c.Request.Context(), challengeID, userID); err != nil {
		if errors.Is(err, challenge.ErrNotFound) {
			h.errorResponse(c, http.StatusNotFound, "Challenge not found")
			return
		}
		h.log.Error().Err(err).Uint("challenge_id", challengeID).Msg("Failed to join challenge")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to join challenge")
		return
	}

	h.log.Info().
		Uint("user_id", userID).
		Uint("challenge_id", challengeID).
		Msg("User joined challenge")

	c.JSON(http.StatusOK, gin.H{
		"joined":       true,
		"generated_at": time.Now().UTC(),
	})
}

// GetChallengeProgress returns the user's progress in a challenge.
// GET /api/v1/users/:id/challenges/:challenge_id/progress.
func (h *Handler) GetChallengeProgress(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	challengeID, err := h.parseChallengeID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	progress, err := h.challengeService.GetProgress(c.Request.Context(), challengeID, userID)
	if err != nil {
		switch {
		case errors.Is(err, challenge.ErrNotFound):
			h.errorResponse(c, http.StatusNotFound, "Challenge not found")
		case errors.Is(err, challenge.ErrInvalidRequirement):
			h.errorResponse(c, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Uint("challenge_id", challengeID).Msg("Failed to get challenge progress")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve challenge progress")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"progress":     progress,
		"generated_at": time.Now().UTC(),
	})
}

// GetAchievementCatalog returns all defined achievements.
// GET /api/v1/achievements.
func (h *Handler) GetAchievementCatalog(c *gin.Context) {
	catalog := h.achievementService.Catalog()

	c.JSON(http.StatusOK, gin.H{
		"achievements": catalog.Achievements,
		"total":        len(catalog.Achievements),
		"generated_at": time.Now().UTC(),
	})
}

// GetUserAchievements returns the achievements a user has unlocked.
// GET /api/v1/users/:id/achievements.
func (h *Handler) GetUserAchievements(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	unlocks, err := h.achievementService.ListUnlocks(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user achievements")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve achievements")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"unlocks":      unlocks,
		"total":        len(unlocks),
		"generated_at": time.Now().UTC(),
	})
}

// EvaluateAchievements runs the evaluator for a user and returns newly
// unlocked achievements.
// POST /api/v1/users/:id/achievements/evaluate.
func (h *Handler) EvaluateAchievements(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	newlyUnlocked, err := h.achievementService.EvaluateUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to evaluate achievements")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to evaluate achievements")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":        userID,
		"newly_unlocked": newlyUnlocked,
		"total":          len(newlyUnlocked),
		"generated_at":   time.Now().UTC(),
	})
}

// Helper functions

// parseUserID extracts and validates the user ID from the URL parameter.
func (h *Handler) parseUserID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID: %s", idStr)
	}
	return uint(id), nil
}

// parseOwnerAndHabit extracts the user and habit IDs from the URL parameters.
func (h *Handler) parseOwnerAndHabit(c *gin.Context) (uint, uint, error) {
	ownerID, err := h.parseUserID(c)
	if err != nil {
		return 0, 0, err
	}

	habitStr := c.Param("habit_id")
	habitID, err := strconv.ParseUint(habitStr, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid habit ID: %s", habitStr)
	}
	return ownerID, uint(habitID), nil
}

// parseChallengeID extracts and validates the challenge ID from the URL parameter.
func (h *Handler) parseChallengeID(c *gin.Context) (uint, error) {
	idStr := c.Param("challenge_id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid challenge ID: %s", idStr)
	}
	return uint(id), nil
}

// parseDate extracts and validates the date URL parameter.
func (h *Handler) parseDate(c *gin.Context) (time.Time, error) {
	dateStr := c.Param("date")
	date, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %s", dateStr)
	}
	return date, nil
}

// handleLedgerError maps ledger errors onto HTTP status codes.
func (h *Handler) handleLedgerError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidDate), errors.Is(err, ledger.ErrInvalidFields):
		h.errorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		h.errorResponse(c, http.StatusNotFound, "Checkin not found")
	default:
		h.log.Error().Err(err).Msg(logMsg)
		h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
	}
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
