package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/caducee-health/caducee/internal/alerts"
	"github.com/caducee-health/caducee/internal/api"
	"github.com/caducee-health/caducee/internal/auth"
	"github.com/caducee-health/caducee/internal/config"
	"github.com/caducee-health/caducee/internal/gemini"
	"github.com/caducee-health/caducee/internal/places"
	"github.com/caducee-health/caducee/internal/store"
	"github.com/caducee-health/caducee/internal/triage"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("caducee starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if err := runMigrations(cfg.DatabaseURL); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Auth
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)

	// Oracle client. A missing key is reported per request, not at boot, so
	// the rest of the service stays available.
	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY not set, triage will reject requests")
	}
	oracle := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	slog.Info("gemini client ready", "model", cfg.GeminiModel)

	// Places client
	if cfg.PlacesAPIKey == "" {
		slog.Warn("PLACES_API_KEY not set, doctor search will reject requests")
	}
	doctors := places.NewClient(cfg.PlacesAPIKey)

	// Alerts are optional. Without NATS the service runs normally, there are
	// just no concluded-triage events.
	var alerter triage.Alerter
	if cfg.NatsURL != "" {
		publisher, err := alerts.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		alerter = publisher
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, running without triage alerts")
	}

	// Triage service
	svc := triage.NewService(oracle, db, alerter, slog.Default())

	// HTTP API
	srv := api.NewServer(cfg.Port, db, svc, doctors, tokens, cfg.AllowedOrigins, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("caducee ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("caducee stopped")
}

func runMigrations(databaseURL string) error {
	m, err := migrate.New("file://migrations", databaseURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	slog.Info("migrations applied")
	return nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
