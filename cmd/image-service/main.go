package main

import (
	"time"

	"go.uber.org/zap"

	"picstream-api/config"
	"picstream-api/database"
	"picstream-api/jobs"
	"picstream-api/routes"
	"picstream-api/services"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", "image"))

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.MigrateImage(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	storage, err := services.NewStorage(cfg)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}

	cleanup := jobs.NewOrphanImageCleanupJob(db, storage, logger, 6*time.Hour)
	cleanup.Start()
	defer cleanup.Stop()

	r := routes.NewEngine("image", cfg, logger)
	routes.SetupImageRoutes(r, db, cfg, storage, logger)

	logger.Info("starting image service", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
