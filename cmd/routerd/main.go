package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/model_router/internal/app"
	"github.com/ncecere/model_router/internal/config"
	"github.com/ncecere/model_router/internal/httpserver"
	"github.com/ncecere/model_router/internal/observability"
	"github.com/ncecere/model_router/internal/redisclient"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.Options{})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := observability.NewLogger(os.Stdout, cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	slog.SetDefault(logger)

	obs, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		log.Fatalf("setup observability: %v", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.New(cfg.Redis)
		if err != nil {
			log.Fatalf("configure redis: %v", err)
		}
		if err := redisclient.Ping(ctx, redisClient); err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer redisClient.Close()
	}

	container, err := app.NewContainer(ctx, cfg, app.Options{
		Redis:         redisClient,
		Logger:        logger,
		Observability: obs,
	})
	if err != nil {
		log.Fatalf("build container: %v", err)
	}
	container.HealthMon.Start(ctx)

	server, err := httpserver.New(container)
	if err != nil {
		log.Fatalf("construct server: %v", err)
	}

	logger.Info("router listening", slog.String("addr", cfg.Server.ListenAddr), slog.Any("providers", container.Engine.Names()))
	if err := server.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("server stopped: %v", err)
	}
}
