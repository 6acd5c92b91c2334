package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desicrew/annotation-monitor/internal/aggregate"
	"github.com/desicrew/annotation-monitor/internal/api"
	"github.com/desicrew/annotation-monitor/internal/config"
	"github.com/desicrew/annotation-monitor/internal/dashboard"
	"github.com/desicrew/annotation-monitor/internal/pkg/logger"
	"github.com/desicrew/annotation-monitor/internal/project"
	"github.com/desicrew/annotation-monitor/internal/sheets"
	"github.com/desicrew/annotation-monitor/internal/storage"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		logger.SetLevel(logger.ParseLevel(lvl))
	}

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := buildProjectStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize project store: %v", err)
	}
	defer closeStore()

	client := sheets.NewClient(cfg.Sheets.Timeout())

	var fetcher sheets.Fetcher = client
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, running without row cache", "addr", cfg.Redis.Addr, "error", err.Error())
		} else {
			fetcher = sheets.NewCachedFetcher(client, sheets.NewCache(rdb, cfg.Redis.CacheTTL()))
			logger.Info("Sheet row cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL().String())
		}
	}

	engine := aggregate.NewEngine()
	engine.IdentityDomain = cfg.DataNorm.IdentityDomain

	svc := dashboard.NewService(store, fetcher, engine)
	handlers := api.NewHandlers(store, svc, client)
	router := api.SetupRoutes(handlers, cfg.CORS.AllowedOrigins)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, cfg.Server.Port),
		Handler: router,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}

// buildProjectStore picks the project persistence backend: Postgres when a
// database URL is configured, otherwise the JSON snapshot store (local file
// or S3).
func buildProjectStore(ctx context.Context, cfg *config.Config) (project.Store, func(), error) {
	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("pinging database: %w", err)
		}
		pg := project.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ensuring schema: %w", err)
		}
		logger.Info("Project store: PostgreSQL")
		return pg, func() { db.Close() }, nil
	}

	s, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Project store: JSON snapshot", "type", cfg.Storage.Type)
	return s, func() {}, nil
}
