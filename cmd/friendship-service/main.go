package main

import (
	"go.uber.org/zap"

	"picstream-api/config"
	"picstream-api/database"
	"picstream-api/routes"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", "friendship"))

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.MigrateFriendship(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	r := routes.NewEngine("friendship", cfg, logger)
	routes.SetupFriendshipRoutes(r, db, cfg, logger)

	logger.Info("starting friendship service", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
