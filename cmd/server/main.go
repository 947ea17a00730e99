package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fadedpez/eldorado/internal/config"
	"github.com/fadedpez/eldorado/internal/logging"
	"github.com/fadedpez/eldorado/pkg/api"
	"github.com/fadedpez/eldorado/pkg/events"
	wagerRepo "github.com/fadedpez/eldorado/pkg/repositories/wager"
	configRepo "github.com/fadedpez/eldorado/pkg/repositories/wagerconfig"
	walletRepo "github.com/fadedpez/eldorado/pkg/repositories/wallet"
	"github.com/fadedpez/eldorado/pkg/scheduler"
	"github.com/fadedpez/eldorado/pkg/services/audit"
	"github.com/fadedpez/eldorado/pkg/services/escrow"
	"github.com/fadedpez/eldorado/pkg/services/settlement"
	wagerconfigService "github.com/fadedpez/eldorado/pkg/services/wagerconfig"
	walletService "github.com/fadedpez/eldorado/pkg/services/wallet"
)

const eventRetryInterval = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	level := logging.INFO
	if cfg.IsDevelopment() {
		level = logging.DEBUG
	}
	logger := logging.NewLogger(level)

	wallets, wagers, configs := openRepositories(cfg, logger)
	defer wallets.Close()
	defer wagers.Close()
	defer configs.Close()

	dispatcher := events.NewDispatcher(logger)

	balances := walletService.NewService(wallets, cfg.StartingBalance, logger)
	configStore := wagerconfigService.NewService(configs, cfg.RTPTolerance, logger)

	var mirror audit.Mirror
	if cfg.ESEnabled {
		esMirror, err := audit.NewElasticsearchMirror(&audit.MirrorConfig{
			URL:         cfg.ESURL,
			Username:    cfg.ESUsername,
			Password:    cfg.ESPassword,
			IndexPrefix: cfg.ESIndexPrefix,
		})
		if err != nil {
			logger.Error("Failed to initialize Elasticsearch mirror: %v", err)
			os.Exit(1)
		}
		mirror = esMirror
		logger.Info("Elasticsearch archive mirror enabled at %s", cfg.ESURL)
	}
	auditor := audit.NewService(wagers, mirror, logger)

	engine := settlement.NewEngine(wagers, balances, configStore, settlement.CryptoSeedSource{}, dispatcher, logger)
	intake := escrow.NewAdapter(engine, nil, dispatcher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tasks := scheduler.NewScheduler(logger)
	tasks.AddTask("event-retry", eventRetryInterval, func(ctx context.Context) error {
		dispatcher.Retry(ctx)
		return nil
	})
	tasks.Start(ctx)
	defer tasks.Stop()

	sweeper := scheduler.NewAuditSweepScheduler(auditor, cfg.RetentionPeriod, cfg.SweepSchedule, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Error("Failed to start audit sweep scheduler: %v", err)
		os.Exit(1)
	}
	defer sweeper.Stop()

	handler := api.NewHandler(engine, configStore, balances, intake, logger)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("HTTP server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error: %v", err)
			cancel()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server: %v", err)
	}
}

// openRepositories opens the configured storage backend. A sqlite open
// failure falls back to the in-memory backend so the service still
// comes up, at the cost of durability.
func openRepositories(cfg *config.Config, logger *logging.Logger) (walletRepo.Repository, wagerRepo.Repository, configRepo.Repository) {
	if cfg.StorageType == "sqlite" {
		dbPath := filepath.Join(cfg.DataDir, "eldorado.db")
		logger.Info("Initializing SQLite storage at %s", dbPath)

		wallets, werr := walletRepo.NewSQLiteRepository(dbPath)
		wagers, gerr := wagerRepo.NewSQLiteRepository(dbPath)
		configs, cerr := configRepo.NewSQLiteRepository(dbPath)
		if werr == nil && gerr == nil && cerr == nil {
			return wallets, wagers, configs
		}

		logger.Error("Failed to initialize SQLite storage (wallet=%v wager=%v config=%v)", werr, gerr, cerr)
		logger.Warn("Falling back to in-memory storage (data will be lost on restart)")
	} else {
		logger.Info("Using in-memory storage (data will be lost on restart)")
	}

	return walletRepo.NewMemoryRepository(), wagerRepo.NewMemoryRepository(), configRepo.NewMemoryRepository()
}
