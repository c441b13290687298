package main

import (
	"CommunicationHub/internal/adapters/eventbus"
	"CommunicationHub/internal/adapters/flatfile"
	"CommunicationHub/internal/adapters/postgres"
	"CommunicationHub/internal/adapters/security"
	"CommunicationHub/internal/core/ports"
	"CommunicationHub/internal/core/services"
	"CommunicationHub/internal/shared/config"
	"CommunicationHub/internal/shared/logger"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	baseLogger := logger.New(cfg.IsDev(), cfg.LogLevel)
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Str("store_driver", cfg.StoreDriver).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Snapshot store
	store, closeStore := openStore(ctx, cfg, &baseLogger)
	defer closeStore()

	// 4. Event bus with an audit trail subscriber
	bus := eventbus.NewInMemoryEventBus(&baseLogger)
	auditLog := baseLogger.With().Str("component", "audit_trail").Logger()
	bus.Subscribe(ports.TopicGroupAudit, func(_ context.Context, event ports.Event) error {
		e, ok := event.Data.(ports.AuditEvent)
		if !ok {
			return fmt.Errorf("unexpected payload %T on %s", event.Data, event.Topic)
		}
		auditLog.Info().
			Str("event_id", e.ID.String()).
			Int64("group_id", e.GroupID).
			Str("action", e.Action).
			Str("actor", e.ActorPhone).
			Str("subject", e.SubjectPhone).
			Msg("Group audit")
		return nil
	})

	// 5. Restore and check state
	hub := services.NewHubService(store, bus, &baseLogger)
	stats, err := hub.Restore(ctx)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to restore hub state")
	}
	if err := hub.VerifyAll(); err != nil {
		baseLogger.Error().Err(err).Msg("Restored state failed verification")
	}
	baseLogger.Info().
		Int("users", stats.Users).
		Int("groups", stats.Groups).
		Int("posts", stats.Posts).
		Int("skipped", stats.Skipped).
		Msg("Hub ready; waiting for shutdown signal")

	<-ctx.Done()
	baseLogger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := bus.Drain(shutdownCtx); err != nil {
		baseLogger.Warn().Err(err).Msg("Event handlers still running at shutdown")
	}
	if err := hub.Save(shutdownCtx); err != nil {
		baseLogger.Error().Err(err).Msg("Final save failed")
		closeStore()
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config, baseLogger *zerolog.Logger) (ports.SnapshotStore, func()) {
	if cfg.StoreDriver != config.DriverPostgres {
		return flatfile.NewStore(cfg.StorePath, baseLogger), func() {}
	}

	secSvc, err := security.NewAESServiceFromHex(cfg.EncryptionKey, baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize security service")
	}

	db, err := postgres.NewDB(ctx, cfg.DatabaseURL, baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		baseLogger.Fatal().Err(err).Msg("Failed to prepare database schema")
	}
	return postgres.NewSnapshotRepository(db, secSvc, baseLogger), db.Close
}
