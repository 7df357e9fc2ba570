package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "grubdash/docs"
	"grubdash/internal/config"
	"grubdash/internal/idgen"
	"grubdash/internal/models"
	"grubdash/internal/repository"
	"grubdash/internal/repository/memory"
	"grubdash/internal/repository/postgres"
	"grubdash/internal/service"
	tHTTP "grubdash/internal/transport/http"
	"grubdash/internal/transport/kafka"

	"github.com/jackc/pgx/v5/pgxpool"
)

// @title GrubDash Orders API
// @version 1.0
// @description Create, read, update and delete restaurant delivery orders.

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := config.MustLoad()

	repo, cleanup, err := openRepository(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to open order storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	orderService := service.NewOrderService(repo, idgen.Hex{})
	router := tHTTP.NewRouter(tHTTP.NewOrderHandler(orderService), cfg.RateLimiter)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
	}

	// pprof registers itself on DefaultServeMux
	var pprofServer *http.Server
	if cfg.Monitor.PprofEnabled {
		pprofServer = &http.Server{
			Addr:    cfg.Monitor.PprofAddr,
			Handler: http.DefaultServeMux,
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go monitorGoroutines(ctx, cfg.Monitor.GoroutinesInterval)

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		consumer = kafka.NewConsumer(orderService, cfg)
		go consumer.Run(ctx)
	}

	if pprofServer != nil {
		go func() {
			slog.Info("Starting pprof server", "addr", pprofServer.Addr)
			if err := pprofServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("pprof server failed", "error", err)
			}
		}()
	}

	go func() {
		slog.Info("Starting HTTP server", "addr", cfg.HTTPAddr, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}

	if pprofServer != nil {
		if err := pprofServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("pprof server shutdown failed", "error", err)
		}
	}

	if consumer != nil {
		consumer.Close()
	}
	slog.Info("Shutdown complete")
}

// openRepository builds the store selected by STORAGE_DRIVER. The returned
// cleanup func releases whatever the store holds open.
func openRepository(ctx context.Context, cfg *config.Config) (repository.OrderRepository, func(), error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN)
		if err != nil {
			return nil, nil, err
		}
		poolCfg.MaxConns = cfg.DB.MaxConns

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("Connected to database")

		repo := postgres.New(pool, cfg)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil

	default:
		var seed []models.Order
		if cfg.Storage.SeedPath != "" {
			var err error
			seed, err = memory.LoadSeed(cfg.Storage.SeedPath)
			if err != nil {
				return nil, nil, err
			}
			slog.Info("Loaded seed orders", "path", cfg.Storage.SeedPath, "count", len(seed))
		}
		return memory.New(seed...), func() {}, nil
	}
}

func monitorGoroutines(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := getMemStats()
			slog.Info("Runtime stats",
				"goroutines", runtime.NumGoroutine(),
				"memory_alloc_mb", bToMb(stats.Alloc),
				"memory_sys_mb", bToMb(stats.Sys),
				"gc_cycles", stats.NumGC,
			)
		case <-ctx.Done():
			slog.Info("Stopping goroutine monitor")
			return
		}
	}
}

func getMemStats() runtime.MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
