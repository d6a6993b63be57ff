package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"molit/server/config"
	"molit/server/internal/api"
	"molit/server/internal/database"
	"molit/server/internal/ingest"
	"molit/server/internal/scheduler"
	"molit/server/internal/stats"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", cfg.DBPath)

	// Initialize database
	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// Wire the batch pipeline: one runner and aggregator, serialized by
	// the scheduler so ingestion runs never overlap.
	runner := ingest.NewRunner(db, cfg, logger)
	aggregator := stats.NewAggregator(db, cfg, logger)

	sched := scheduler.NewScheduler(runner, aggregator, time.Duration(cfg.Ingest.IntervalHours)*time.Hour, logger)
	sched.Start()
	defer sched.Stop()

	// Initialize the read-only statistics service and the HTTP boundary
	statsService := stats.NewService(db, cfg)
	handler := api.NewHandler(db, statsService, sched, logger)

	router := gin.Default()
	api.SetupRoutes(router, handler)

	logger.Infof("Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
