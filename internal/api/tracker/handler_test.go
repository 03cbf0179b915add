//nolint:noctx // Test file uses http.NewRequest for simplicity
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haoyudev/habitloop/internal/models"
	"github.com/haoyudev/habitloop/internal/service/achievement"
	"github.com/haoyudev/habitloop/internal/service/challenge"
	"github.com/haoyudev/habitloop/internal/service/ledger"
	"github.com/haoyudev/habitloop/internal/service/streak"
	"github.com/haoyudev/habitloop/pkg/logger"
)

// Mock Ledger Service
type mockLedgerService struct {
	checkins map[string]*models.Checkin
}

func newMockLedgerService() *mockLedgerService {
	return &mockLedgerService{checkins: make(map[string]*models.Checkin)}
}

func (m *mockLedgerService) key(ownerID, habitID uint, date time.Time) string {
	return fmt.Sprintf("%d:%d:%s", ownerID, habitID, models.DateOnly(date).Format(time.DateOnly))
}

func (m *mockLedgerService) RecordCheckin(_ context.Context, ownerID, habitID uint, date time.Time, fields models.CheckinFields, now time.Time) (*models.Checkin, error) {
	if models.DateOnly(date).After(models.DateOnly(now)) {
		return nil, fmt.Errorf("%w: future date", ledger.ErrInvalidDate)
	}
	checkin := &models.Checkin{
		ID:        1,
		OwnerID:   ownerID,
		HabitID:   habitID,
		Date:      models.DateOnly(date),
		Completed: true,
	}
	if fields.Mood != nil {
		checkin.Mood = fields.Mood
	}
	m.checkins[m.key(ownerID, habitID, date)] = checkin
	return checkin, nil
}

func (m *mockLedgerService) AmendCheckin(_ context.Context, ownerID, habitID uint, date time.Time, fields models.CheckinFields) (*models.Checkin, error) {
	checkin, exists := m.checkins[m.key(ownerID, habitID, date)]
	if !exists {
		return nil, fmt.Errorf("%w: no record", ledger.ErrNotFound)
	}
	if fields.Mood != nil {
		checkin.Mood = fields.Mood
	}
	return checkin, nil
}

func (m *mockLedgerService) RetractCheckin(_ context.Context, ownerID, habitID uint, date time.Time) error {
	key := m.key(ownerID, habitID, date)
	if _, exists := m.checkins[key]; !exists {
		return fmt.Errorf("%w: no record", ledger.ErrNotFound)
	}
	delete(m.checkins, key)
	return nil
}

func (m *mockLedgerService) ListCheckins(_ context.Context, ownerID, habitID uint, from, to time.Time) ([]models.Checkin, error) {
	var result []models.Checkin
	for _, c := range m.checkins {
		if c.OwnerID == ownerID && c.HabitID == habitID && !c.Date.Before(models.DateOnly(from)) && !c.Date.After(models.DateOnly(to)) {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockLedgerService) History(_ context.Context, ownerID, habitID uint) ([]models.Checkin, error) {
	var result []models.Checkin
	for _, c := range m.checkins {
		if c.OwnerID == ownerID && c.HabitID == habitID {
			result = append(result, *c)
		}
	}
	return result, nil
}

// Mock Streak Service
type mockStreakService struct {
	state streak.State
}

func (m *mockStreakService) GetStreak(_ context.Context, _, _ uint, _ time.Time) (streak.State, error) {
	return m.state, nil
}

// Mock Challenge Service
type mockChallengeService struct {
	progress map[uint]challenge.Progress
	joined   map[uint]map[uint]bool
}

func newMockChallengeService() *mockChallengeService {
	return &mockChallengeService{
		progress: make(map[uint]challenge.Progress),
		joined:   make(map[uint]map[uint]bool),
	}
}

func (m *mockChallengeService) Join(_ context.Context, challengeID, userID uint) error {
	if _, exists := m.progress[challengeID]; !exists {
		return fmt.Errorf("%w: id %d", challenge.ErrNotFound, challengeID)
	}
	if m.joined[challengeID] == nil {
		m.joined[challengeID] = make(map[uint]bool)
	}
	m.joined[challengeID][userID] = true
	return nil
}

func (m *mockChallengeService) GetProgress(_ context.Context, challengeID, _ uint) (challenge.Progress, error) {
	progress, exists := m.progress[challengeID]
	if !exists {
		return challenge.Progress{}, fmt.Errorf("%w: id %d", challenge.ErrNotFound, challengeID)
	}
	return progress, nil
}

// Mock Achievement Service
type mockAchievementService struct {
	catalog *achievement.Catalog
	unlocks map[uint][]models.AchievementUnlock
	newly   []achievement.Achievement
}

func newMockAchievementService() *mockAchievementService {
	return &mockAchievementService{
		catalog: &achievement.Catalog{Achievements: []achievement.Achievement{
			{Key: "first_step", Name: "First Step", Rule: achievement.Rule{Kind: achievement.RuleTotalCountThreshold, Threshold: 1}},
		}},
		unlocks: make(map[uint][]models.AchievementUnlock),
	}
}

func (m *mockAchievementService) Catalog() *achievement.Catalog {
	return m.catalog
}

func (m *mockAchievementService) ListUnlocks(_ context.Context, userID uint) ([]models.AchievementUnlock, error) {
	return m.unlocks[userID], nil
}

func (m *mockAchievementService) EvaluateUser(_ context.Context, _ uint) ([]achievement.Achievement, error) {
	return m.newly, nil
}

// Mock Feed Service
type mockFeedService struct {
	posts []*models.Post
}

func (m *mockFeedService) ShareCheckin(_ context.Context, ownerID, habitID uint, date time.Time, caption string) (*models.Post, error) {
	post := &models.Post{
		ID:          uint(len(m.posts) + 1),
		AuthorID:    ownerID,
		HabitID:     habitID,
		CheckinDate: models.DateOnly(date),
		Caption:     caption,
	}
	m.posts = append(m.posts, post)
	return post, nil
}

func (m *mockFeedService) ListRecent(_ context.Context, limit int) ([]models.Post, error) {
	var result []models.Post
	for i := len(m.posts) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, *m.posts[i])
	}
	return result, nil
}

func (m *mockFeedService) ListByAuthor(_ context.Context, authorID uint) ([]models.Post, error) {
	var result []models.Post
	for _, p := range m.posts {
		if p.AuthorID == authorID {
			result = append(result, *p)
		}
	}
	return result, nil
}

// Test Setup
func setupTestHandler() (*Handler, *mockLedgerService, *mockChallengeService, *mockAchievementService) {
	ledgerService := newMockLedgerService()
	streakService := &mockStreakService{state: streak.State{CurrentStreak: 3, LongestStreak: 5}}
	challengeService := newMockChallengeService()
	achievementService := newMockAchievementService()
	feedService := &mockFeedService{}
	log := logger.New("error", "json", "stdout")

	handler := NewHandlerWithInterfaces(ledgerService, streakService, challengeService, achievementService, feedService, log)
	return handler, ledgerService, challengeService, achievementService
}

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRecordCheckin_Success(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	today := time.Now().UTC().Format(time.DateOnly)
	w := performJSON(t, router, http.MethodPost, "/api/v1/users/1/habits/2/checkins", gin.H{
		"date": today,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Checkin models.Checkin `json:"checkin"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Checkin.Completed)
	assert.Equal(t, uint(2), resp.Checkin.HabitID)
}

func TestRecordCheckin_FutureDateRejected(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(time.DateOnly)
	w := performJSON(t, router, http.MethodPost, "/api/v1/users/1/habits/2/checkins", gin.H{
		"date": tomorrow,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordCheckin_MalformedDate(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := performJSON(t, router, http.MethodPost, "/api/v1/users/1/habits/2/checkins", gin.H{
		"date": "Jan 10 2026",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordCheckin_InvalidHabitID(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := performJSON(t, router, http.MethodPost, "/api/v1/users/1/habits/abc/checkins", gin.H{
		"date": "2026-01-10",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAmendCheckin_NotFound(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := performJSON(t, router, http.MethodPatch, "/api/v1/users/1/habits/2/checkins/2026-01-10", gin.H{
		"mood": "good",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRetractCheckin_RoundTrip(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	today := time.Now().UTC().Format(time.DateOnly)
	w := performJSON(t, router, http.MethodPost, "/api/v1/users/1/habits/2/checkins", gin.H{"date": today})
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(t, router, http.MethodDelete, "/api/v1/users/1/habits/2/checkins/"+today, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Retracting again reports not found.
	w = performJSON(t, router, http.MethodDelete, "/api/v1/users/1/habits/2/checkins/"+today, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStreak(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := performJSON(t, router, http.MethodGet, "/api/v1/users/1/habits/2/streak?as_of=2026-01-10", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Streak streak.State `json:"streak"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Streak.CurrentStreak)
	assert.Equal(t, 5, resp.Streak.LongestStreak)
}

func TestGetChallengeProgress(t *testing.T) {
	handler, _, challengeService, _ := setupTestHandler()
	router := setupRouter(handler)

	challengeService.progress[7] = challenge.Progress{
		ChallengeID:    7,
		TargetCount:    10,
		CompletedCount: 5,
		CompletionRate: 0.5,
	}

	w := performJSON(t, router, http.MethodGet, "/api/v1/users/1/challenges/7/progress", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Progress challenge.Progress `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Progress.CompletedCount)
	assert.InDelta(t, 0.5, resp.Progress.CompletionRate, 0.001)
}

func TestGetChallengeProgress_NotFound(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := performJSON(t, router, http.MethodGet, "/api/v1/users/1/challenges/99/progress", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinChallenge(t *testing.T) {
	handler, _, challengeService, _ := setupTestHandler()
	router := setupRouter(handler)

	challengeService.progress[7] = challenge.Progress{ChallengeID: 7}

	w := performJSON(t, router, http.MethodPost, "/api/v1/users/1/challenges/7/join", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, challengeService.joined[7][1])

	w = performJSON(t, router, http.MethodPost, "/api/v1/users/1/challenges/99/join", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAchievementCatalog(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := performJSON(t, router, http.MethodGet, "/api/v1/achievements", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Achievements []achievement.Achievement `json:"achievements"`
		Total        int                       `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "first_step", resp.Achievements[0].Key)
}

func TestEvaluateAchievements(t *testing.T) {
	handler, _, _, achievementService := setupTestHandler()
	router := setupRouter(handler)

	achievementService.newly = []achievement.Achievement{
		{Key: "first_step", Name: "First Step"},
	}

	w := performJSON(t, router, http.MethodPost, "/api/v1/users/1/achievements/evaluate", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		NewlyUnlocked []achievement.Achievement `json:"newly_unlocked"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.NewlyUnlocked, 1)
}

func TestShareCheckin(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := performJSON(t, router, http.MethodPost, "/api/v1/users/1/habits/2/checkins/2026-01-10/share", gin.H{
		"caption": "30 days of morning runs",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "30 days of morning runs", resp.Post.Caption)
	assert.Equal(t, uint(1), resp.Post.AuthorID)
}

func TestGetFeed_ReturnsSharedPosts(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := performJSON(t, router, http.MethodPost, "/api/v1/users/1/habits/2/checkins/2026-01-10/share", gin.H{
		"caption": "day ten",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = performJSON(t, router, http.MethodGet, "/api/v1/feed", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Posts []models.Post `json:"posts"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "day ten", resp.Posts[0].Caption)
}

func TestGetFeed_InvalidLimit(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := performJSON(t, router, http.MethodGet, "/api/v1/feed?limit=0", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserPosts(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := performJSON(t, router, http.MethodPost, "/api/v1/users/1/habits/2/checkins/2026-01-10/share", gin.H{
		"caption": "mine",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = performJSON(t, router, http.MethodGet, "/api/v1/users/2/posts", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total, "another user's feed is empty")
}

func TestListCheckins_InvalidRange(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := performJSON(t, router, http.MethodGet, "/api/v1/users/1/habits/2/checkins?from=bad&to=2026-01-31", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
