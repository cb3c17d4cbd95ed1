package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"picstream-api/config"
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
	logger = logger.With(zap.String("service", "ws"))

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		logger.Info("redis backplane enabled")
	}

	hub := services.NewHub(redisClient, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.RunBackplane(ctx)

	r := routes.NewEngine("ws", cfg, logger)
	routes.SetupWSRoutes(r, hub, cfg, logger)

	logger.Info("starting ws service", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
