package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/calderapos/register-edge/internal/central"
	"github.com/calderapos/register-edge/pkg/config"
	"github.com/calderapos/register-edge/pkg/logger"
	"github.com/calderapos/register-edge/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "central-stub"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "central-stub"

	logg = logger.New(logger.Options{
		ServiceName: "central-stub",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	// Redis backs sale-id dedup across stub restarts. Without it the stub
	// still works for single-run development.
	var idempotency redis.IdempotencyStore
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		idempotency = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, using in-memory idempotency store")
		idempotency = central.NewMemoryIdempotencyStore()
	}

	service, err := central.NewService(idempotency, 0, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create central service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting central stub")

	server := &http.Server{
		Addr:    addr,
		Handler: central.NewRouter(cfg, logg, service),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(context.Background(), "error shutting down http server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "central stub stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "central stub shutting down gracefully")
}
