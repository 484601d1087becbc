package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/queryguard/queryguard-go/internal/auditlog"
	"github.com/queryguard/queryguard-go/internal/classify"
	"github.com/queryguard/queryguard-go/internal/config"
	"github.com/queryguard/queryguard-go/internal/handlers"
	"github.com/queryguard/queryguard-go/internal/ratelimit"
	"github.com/queryguard/queryguard-go/internal/sanitize"
	"github.com/queryguard/queryguard-go/internal/server"
	"github.com/queryguard/queryguard-go/internal/ws"
)

func main() {
	cfg := config.Load()

	logger := server.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Audit log store: Postgres when configured, in-memory otherwise.
	var store auditlog.Store
	if cfg.DatabaseURL != "" {
		pg, err := auditlog.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to database", "err", err)
			os.Exit(1)
		}
		store = pg
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory audit log")
		store = auditlog.NewMemory()
	}
	defer store.Close()

	// AI provider selection; nil means every query uses the keyword fallback.
	provider := buildProvider(cfg, logger)

	sanitizer := sanitize.New(cfg.Sanitizer)
	arbiter := classify.NewArbiter(provider, sanitizer, logger)

	limiter := ratelimit.New(map[string]ratelimit.Bucket{
		"query":    {MaxRequests: cfg.RateLimitMax, Window: cfg.RateLimitWindow},
		"api":      {MaxRequests: 60, Window: time.Minute},
		"escalate": {MaxRequests: 10, Window: time.Minute},
	})

	wsManager := ws.NewManager(store, logger)

	queryHandler := handlers.NewQueryHandler(arbiter, store, wsManager, limiter, logger)
	logsHandler := handlers.NewLogsHandler(store, logger, cfg.Production())
	adminHandler := handlers.NewAdminHandler(store, arbiter, limiter, logger)

	// Build router
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})

	// WebSocket live tail. Registered outside the logging middleware because
	// the upgrade hijacks the connection.
	r.Get("/ws", wsManager.HandleWS)

	r.Route("/api", func(api chi.Router) {
		api.Use(server.RequestLogger(logger))

		api.Get("/test", adminHandler.Test)
		api.Get("/health", adminHandler.Health)
		api.Post("/query", queryHandler.Classify)
		api.Get("/logs", logsHandler.GetLogs)
		api.Delete("/logs", logsHandler.ClearLogs)
		api.Get("/analytics", logsHandler.GetAnalytics)
		api.Post("/escalate", adminHandler.Escalate)
	})

	go server.RunWithRecovery(ctx, logger, "ratelimit-cleanup", limiter.CleanupLoop)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket needs unlimited write time
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel() // stop background goroutines

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "err", err)
		}
	}()

	logger.Info("server starting",
		"port", cfg.Port,
		"env", cfg.Env,
		"ai_configured", arbiter.AIConfigured(),
		"ai_provider", arbiter.ProviderName(),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// buildProvider wires the configured AI backend, or nil when its credential
// is absent so the arbiter goes straight to the keyword fallback.
func buildProvider(cfg *config.Config, logger *slog.Logger) classify.Provider {
	switch cfg.AIProvider {
	case "claude":
		if cfg.AnthropicAPIKey != "" {
			return classify.NewClaudeProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		}
	case "openai":
		if cfg.OpenAIAPIKey != "" {
			return classify.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		}
	default:
		if cfg.GeminiAPIKey != "" {
			return classify.NewGeminiProvider(cfg.GeminiAPIURL, cfg.GeminiAPIKey)
		}
	}
	logger.Warn("no AI credential configured, using keyword fallback only",
		"provider", cfg.AIProvider)
	return nil
}
