package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mehtameet005/utm-tracker/internal/attribution"
	"github.com/mehtameet005/utm-tracker/internal/auth"
	"github.com/mehtameet005/utm-tracker/internal/config"
	"github.com/mehtameet005/utm-tracker/internal/httpapi"
	"github.com/mehtameet005/utm-tracker/internal/identity"
	"github.com/mehtameet005/utm-tracker/internal/kvstore"
	"github.com/mehtameet005/utm-tracker/internal/report"
	"github.com/mehtameet005/utm-tracker/internal/tracker"
	"github.com/mehtameet005/utm-tracker/pkg/logger"
	"github.com/mehtameet005/utm-tracker/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Storage wiring: Redis is the authoritative durable store; the
	// size-capped Postgres table is the recovery-only backup.
	durable := kvstore.NewRedis(rdb)
	backup := kvstore.NewCapped(kvstore.NewPostgres(db), cfg.Tracking.BackupValueMaxBytes)

	sync := attribution.NewSynchronizer(durable, backup, cfg.Tracking.AttributionTTL)
	ids := identity.NewProvider(durable, cfg.Tracking.AttributionTTL)
	eventRepo := tracker.NewPostgresRepo(db)
	trackerSvc := tracker.NewService(eventRepo, sync, ids)
	reportSvc := report.NewService(eventRepo)

	handlers := httpapi.Handlers{
		Auth:    authManager,
		Tracker: trackerSvc,
		Reports: reportSvc,
		DB:      db,
	}
	if cfg.Tracking.IngestLimit > 0 {
		limit, window := cfg.Tracking.IngestLimit, cfg.Tracking.IngestWindow
		handlers.AllowEvent = func(ctx context.Context, visitorKey string) (bool, error) {
			return utils.AllowIngest(ctx, rdb, "ingest:v1:"+visitorKey, limit, window)
		}
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
