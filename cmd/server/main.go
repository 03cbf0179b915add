// Command server runs the habit tracking backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haoyudev/habitloop/internal/api/tracker"
	"github.com/haoyudev/habitloop/internal/config"
	"github.com/haoyudev/habitloop/internal/notify"
	"github.com/haoyudev/habitloop/internal/repository"
	"github.com/haoyudev/habitloop/internal/service/achievement"
	"github.com/haoyudev/habitloop/internal/service/challenge"
	"github.com/haoyudev/habitloop/internal/service/feed"
	"github.com/haoyudev/habitloop/internal/service/ledger"
	"github.com/haoyudev/habitloop/internal/service/scheduler"
	"github.com/haoyudev/habitloop/internal/service/streak"
	"github.com/haoyudev/habitloop/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(log); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	cache, err := repository.NewRedisCache(&cfg.Database.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer cache.Close()

	// Repositories
	checkinRepo := repository.NewCheckinRepository(db)
	habitRepo := repository.NewHabitRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	cacheTTL := cfg.Database.Redis.CacheTTLDuration()
	ledgerService := ledger.NewService(checkinRepo, log)
	streakService := streak.NewService(checkinRepo, habitRepo, cache, cacheTTL, log)
	challengeService := challenge.NewService(challengeRepo, checkinRepo, habitRepo, cache, cacheTTL, log)
	feedService := feed.NewService(postRepo, checkinRepo, log)

	// Every ledger mutation marks the dependent derived snapshots stale.
	ledgerService.OnMutate(streakService.Invalidate)
	ledgerService.OnMutate(challengeService.InvalidateForHabit)

	catalog, err := achievement.LoadCatalog(cfg.Achievements.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load achievement catalog")
	}

	notifyClient := notify.NewClient(&cfg.Notify, log)
	achievementService := achievement.NewService(
		achievementRepo,
		checkinRepo,
		userRepo,
		streakService,
		challengeService,
		notifyClient,
		catalog,
		log,
	)

	schedulerService := scheduler.NewService(cfg, achievementService, log)
	if err := schedulerService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer schedulerService.Stop()

	// HTTP API
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := tracker.NewHandler(ledgerService, streakService, challengeService, achievementService, feedService, log)
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Metrics exporter on its own port
	var metricsServer *http.Server
	if cfg.Metrics.Prometheus.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Prometheus.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Prometheus.Port),
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info().
				Int("port", cfg.Metrics.Prometheus.Port).
				Str("path", cfg.Metrics.Prometheus.Path).
				Msg("Starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down HTTP server cleanly")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down metrics server cleanly")
		}
	}
}
