package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/evalgate/internal/admission"
	"github.com/tjfontaine/evalgate/internal/api"
	"github.com/tjfontaine/evalgate/internal/auth"
	"github.com/tjfontaine/evalgate/internal/config"
	"github.com/tjfontaine/evalgate/internal/server"
	"github.com/tjfontaine/evalgate/internal/stats"
	"github.com/tjfontaine/evalgate/internal/storage"
	"github.com/tjfontaine/evalgate/internal/storage/memory"
	"github.com/tjfontaine/evalgate/internal/storage/sqlite"
	"github.com/tjfontaine/evalgate/internal/telemetry"
	"github.com/tjfontaine/evalgate/internal/tenant"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdownTracer, err := telemetry.InitTracer("evalgate", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	registry := tenant.NewRegistry()
	tenants := registry.LoadTenants(cfg.Tenants)
	if len(tenants) == 0 {
		log.Fatal("No tenants configured; add at least one tenant with an API key to config.yaml")
	}
	authenticator := auth.NewAuthenticator(tenants)

	admissionEngine := admission.New(store, store, logger)
	statsEngine := stats.New(store)
	handler := api.NewHandler(admissionEngine, statsEngine, store, logger)

	srv := server.New(cfg.Server.Port, logger, authenticator)
	handler.Register(srv.Router)

	logger.Info("evalgate configured",
		slog.String("storage", cfg.Storage.Type),
		slog.Int("tenants", len(tenants)))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	case sig := <-sigChan:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "memory":
		return memory.New(), nil
	default:
		return sqlite.New(cfg.Storage.SQLite.Path)
	}
}
