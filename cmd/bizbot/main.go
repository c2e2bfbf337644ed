package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/susu3304/bizbot/internal/advisor"
	"github.com/susu3304/bizbot/internal/api"
	"github.com/susu3304/bizbot/internal/bot"
	"github.com/susu3304/bizbot/internal/config"
	"github.com/susu3304/bizbot/internal/conversation"
	"github.com/susu3304/bizbot/internal/db"
	"github.com/susu3304/bizbot/internal/flows"
	"github.com/susu3304/bizbot/internal/listing"
	"github.com/susu3304/bizbot/internal/logging"
	"github.com/susu3304/bizbot/internal/observability"
	"github.com/susu3304/bizbot/internal/session"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "bizbot",
		Short:   "Discord assistant for tasks, deals and marketing advice",
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot and the web API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrate(cmd.Context())
		},
	})
	return root
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (db.Store, error) {
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("store ready", "mode", db.Mode(store))
	return store, nil
}

func migrate(ctx context.Context) error {
	cfg, err := config.LoadStore()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return store.Close()
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	sessions := session.NewMemoryStore()
	adv := advisor.New(advisor.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.AdvisorTimeout,
	}, logger.With("component", "advisor"), metrics)

	router := conversation.NewRouter(conversation.Deps{
		Store:    store,
		Sessions: sessions,
		Flows:    flows.New(store, sessions, adv, logger.With("component", "flows")),
		Lists:    listing.New(store, logger.With("component", "listing"), metrics),
		Advisor:  adv,
		Logger:   logger.With("component", "router"),
		Metrics:  metrics,
	})

	// Initialize Discord bot
	discordBot, err := bot.New(cfg.DiscordToken, router, sessions, bot.Options{
		SessionTTL:    cfg.SessionTTL,
		SweepInterval: cfg.SweepInterval,
	}, logger.With("component", "bot"))
	if err != nil {
		return err
	}

	// Initialize API server
	apiServer := api.New(cfg, store, metrics, logger.With("component", "api"))

	// Start Discord bot
	if err := discordBot.Start(); err != nil {
		return err
	}
	defer discordBot.Stop()

	// Start API server
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("API server error", "error", err)
		}
	}()

	// Wait for signal to stop
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return apiServer.Shutdown(shutdownCtx)
}
