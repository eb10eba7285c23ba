package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"flipradar/server/config"
	"flipradar/server/internal/api"
	"flipradar/server/internal/database"
	"flipradar/server/internal/evaluations"
	"flipradar/server/internal/pricing"
	"flipradar/server/internal/processor"
	"flipradar/server/internal/queue"
	"flipradar/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dbPath := cfg.Server.DBPath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", dbPath)

	// Initialize database
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// Second connection for the gorm-backed intake path
	gormDB, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		logger.WithError(err).Fatal("Failed to open gorm connection")
	}

	// Evaluation store seeded from persisted evaluations
	store := evaluations.NewStore(cfg.Weights())
	persisted, err := db.GetEvaluations()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load persisted evaluations")
	}
	for objectID, tag := range persisted {
		if err := store.Set(objectID, tag); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"object_id": objectID,
				"tag":       tag,
			}).Warn("Skipping persisted evaluation with no configured weight")
		}
	}
	logger.Infof("Loaded %d evaluations", store.Len())

	pricer := pricing.NewEngine(pricing.Policy{
		Weights:            cfg.Weights(),
		RecencyFloor:       cfg.Pricing.RecencyFloor,
		RecencyHorizonDays: cfg.Pricing.RecencyHorizonDays,
	})

	// Intake pipeline
	objectQueue := queue.NewObjectQueue(cfg.BatchProcessing.MaxBatchSize, logger)
	batchProcessor := processor.NewBatchProcessor(gormDB, objectQueue, cfg, logger)
	objectQueue.Start()
	batchProcessor.Start()
	defer batchProcessor.Stop()
	defer objectQueue.Close()

	// Periodic recompute of per-area reports
	interval := time.Duration(cfg.Scheduler.RecomputeIntervalMinutes) * time.Minute
	sched := scheduler.NewScheduler(db, store, pricer, interval, logger)
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(db, store, pricer, objectQueue, sched, logger)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
	}))
	api.SetupRoutes(router, handler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Infof("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
