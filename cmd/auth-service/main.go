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
	logger = logger.With(zap.String("service", "auth"))

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.MigrateAuth(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	if err := database.SeedFirstSuperuser(db, cfg); err != nil {
		logger.Warn("failed to seed first superuser", zap.Error(err))
	}

	r := routes.NewEngine("auth", cfg, logger)
	routes.SetupAuthRoutes(r, db, cfg)

	logger.Info("starting auth service", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
