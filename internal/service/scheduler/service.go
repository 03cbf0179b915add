// Package scheduler runs the nightly achievement evaluation job.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/haoyudev/habitloop/internal/config"
	prommetrics "github.com/haoyudev/habitloop/internal/metrics"
	"github.com/haoyudev/habitloop/internal/service/achievement"
	"github.com/haoyudev/habitloop/pkg/logger"
)

// Service handles scheduled achievement evaluation.
type Service struct {
	config             *config.Config
	achievementService *achievement.Service
	log                *logger.Logger
	cron               *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.Config,
	achievementService *achievement.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		config:             cfg,
		achievementService: achievementService,
		log:                log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.Scheduler.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	cronExpr, err := buildCronExpression(s.config.Scheduler.EvaluationTime)
	if err != nil {
		return fmt.Errorf("failed to build cron expression: %w", err)
	}

	_, err = s.cron.AddFunc(cronExpr, func() {
		s.runEvaluation(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register evaluation job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", cronExpr).
		Str("timezone", s.config.Scheduler.Timezone).
		Str("time", s.config.Scheduler.EvaluationTime).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression generates a daily cron expression from an "HH:MM" time.
func buildCronExpression(evaluationTime string) (string, error) {
	parts := strings.Split(evaluationTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", evaluationTime)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// runEvaluation executes the nightly achievement evaluation job.
func (s *Service) runEvaluation(ctx context.Context) {
	start := time.Now()

	s.log.Info().Msg("Running achievement evaluation job")

	unlockCount, err := s.achievementService.EvaluateAll(ctx)
	if err != nil {
		s.log.Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("Achievement evaluation job failed")
		prommetrics.RecordEvaluationRun("error")
		return
	}

	prommetrics.RecordEvaluationRun("success")

	s.log.Info().
		Int("achievements_unlocked", unlockCount).
		Dur("duration", time.Since(start)).
		Msg("Achievement evaluation job completed successfully")
}
