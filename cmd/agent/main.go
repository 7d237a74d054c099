package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/calderapos/register-edge/api/routes"
	cartsvc "github.com/calderapos/register-edge/internal/cart"
	heldsvc "github.com/calderapos/register-edge/internal/held"
	"github.com/calderapos/register-edge/internal/queue"
	syncengine "github.com/calderapos/register-edge/internal/sync"
	"github.com/calderapos/register-edge/pkg/config"
	"github.com/calderapos/register-edge/pkg/db"
	"github.com/calderapos/register-edge/pkg/logger"
	"github.com/calderapos/register-edge/pkg/metrics"
	"github.com/calderapos/register-edge/pkg/migrate"
	"github.com/calderapos/register-edge/pkg/salesclient"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "agent"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "agent"

	logg = logger.New(logger.Options{
		ServiceName: "agent",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(registry)

	queueStore, err := queue.NewStore(dbClient, logg, syncMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create queue store", err)
		os.Exit(1)
	}

	centralClient, err := salesclient.New(cfg.Central, cfg.JWT, cfg.Register, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create central client", err)
		os.Exit(1)
	}

	snapshots, err := cartsvc.NewSnapshotStore(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot store", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(context.Background(), snapshots, queueStore, cfg.Register, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to restore cart", err)
		os.Exit(1)
	}

	heldService, err := heldsvc.NewService(centralClient, cartService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create held sale bridge", err)
		os.Exit(1)
	}

	engine, err := syncengine.NewEngine(syncengine.EngineParams{
		Config:  cfg.Sync,
		Logger:  logg,
		Queue:   queueStore,
		Central: centralClient,
		Metrics: syncMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync engine", err)
		os.Exit(1)
	}

	prober, err := syncengine.NewProber(centralClient, engine, cfg.Sync.ProbeInterval(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create connectivity prober", err)
		os.Exit(1)
	}

	sweeper, err := syncengine.NewSweeper(syncengine.SweeperParams{
		Logger:   logg,
		Queue:    queueStore,
		Window:   cfg.Sync.StalenessWindow,
		Interval: cfg.Sync.StaleSweepEvery(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create staleness sweeper", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"register_id": cfg.Register.ID,
		"store_id":    cfg.Register.StoreID,
	})
	logg.Info(ctx, "starting register agent")

	go func() {
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "sync engine stopped unexpectedly", err)
			stop()
		}
	}()
	go func() {
		if err := prober.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "connectivity prober stopped unexpectedly", err)
		}
	}()
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "staleness sweeper stopped unexpectedly", err)
		}
	}()

	server := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: routes.NewRouter(cfg, logg, dbClient, registry, cartService, queueStore, engine, heldService),
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
		logg.Error(ctx, "agent server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "register agent shutting down gracefully")
}
