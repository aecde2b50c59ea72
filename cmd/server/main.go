package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/formforge/formpulse/internal/app"
	"github.com/formforge/formpulse/internal/config"
	"github.com/formforge/formpulse/internal/database"
	"github.com/formforge/formpulse/internal/hub"
	"github.com/formforge/formpulse/internal/logging"
	"github.com/formforge/formpulse/internal/redis"
	"github.com/formforge/formpulse/internal/server"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

const summaryCacheTTL = 30 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, eventHub *hub.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		eventHub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(context.Background(), cfg)
	defer func() { _ = redisClient.Close() }()

	formRepo := database.NewFormRepo(pool)
	responseRepo := database.NewResponseRepo(pool)
	debouncer := redis.NewDebouncer(redisClient, cfg.AnalyticsDebounce)
	summaryCache := redis.NewSummaryCache(redisClient, summaryCacheTTL)

	eventHub := hub.NewHub(clock, cfg.MaxConnectionsPerForm)

	svc := app.NewService(formRepo, responseRepo, eventHub, debouncer, summaryCache, clock)

	checkOrigin := hub.NewCheckOrigin(cfg.AppURL, cfg.AppEnv == "development")
	wsHandler := hub.NewHandler(eventHub, clock, checkOrigin)

	srv := server.NewServer(cfg, svc, eventHub, wsHandler, pool, redisClient)

	done := runGracefulShutdown(srv, eventHub)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
