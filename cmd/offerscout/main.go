package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/offerscout/offerscout/internal/api"
	"github.com/offerscout/offerscout/internal/browser"
	"github.com/offerscout/offerscout/internal/config"
	"github.com/offerscout/offerscout/internal/jobs"
	"github.com/offerscout/offerscout/internal/queue"
	"github.com/offerscout/offerscout/internal/scoring"
	"github.com/offerscout/offerscout/internal/scraper"
	"github.com/offerscout/offerscout/internal/session"
	"github.com/offerscout/offerscout/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.New(ctx, storage.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	sessionStore := session.NewStore(redisClient, cfg.Redis.SessionTTL)

	browserOpts := &browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		Locale:         cfg.Browser.Locale,
		TimezoneID:     cfg.Browser.TimezoneID,
		ProxyServer:    cfg.Browser.ProxyServer,
		BlockResources: true,
	}

	// A previously captured fingerprint keeps marketplace sessions looking
	// like the same visitor across restarts.
	fingerprint, err := sessionStore.LoadFingerprint(ctx, "default")
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			logger.Warn("failed to load fingerprint, using default", "error", err)
		}
		fingerprint = session.DefaultFingerprint()
		if err := sessionStore.SaveFingerprint(ctx, "default", fingerprint); err != nil {
			logger.Warn("failed to persist fingerprint", "error", err)
		}
	}

	var apiClient *scraper.ScrapeAPIClient
	if cfg.Scraper.APIBaseURL != "" {
		apiClient = scraper.NewScrapeAPIClient(cfg.Scraper.APIBaseURL, cfg.Scraper.APIKey, cfg.Scraper.APITimeout)
	}

	factory := func(kind string) scraper.Scraper {
		if kind == "" {
			kind = cfg.Scraper.Type
		}
		return scraper.NewScraper(kind, scraper.FactoryDeps{
			BrowserOpts: browserOpts,
			Fingerprint: fingerprint,
			States:      sessionStore,
			APIClient:   apiClient,
			Logger:      logger,
		})
	}

	var judge scoring.Judge
	if cfg.AIEnabled() {
		judge = scoring.NewOpenAIJudge(cfg.Scoring.AIAPIBaseURL, cfg.Scoring.AIAPIKey, cfg.Scoring.AIModel, cfg.Scoring.AITimeout)
		logger.Info("AI scoring enabled", "model", cfg.Scoring.AIModel)
	} else {
		logger.Info("AI scoring disabled, deterministic scoring only")
	}
	engine := scoring.NewEngine(judge, logger)

	taskQueue := queue.NewInMemoryQueue()
	defer taskQueue.Close()

	manager := jobs.NewManager(taskQueue, factory, engine, db, logger)
	go manager.StartWorker(ctx)

	handlers := api.NewHandlers(manager, engine, db, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		health := map[string]any{"status": "ok"}
		status := http.StatusOK

		if err := db.Ping(r.Context()); err != nil {
			health["status"] = "error"
			health["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			health["status"] = "error"
			health["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	})

	r.Route("/api/v1", handlers.Routes)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Server.Port, "scraper_type", cfg.Scraper.Type)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
