package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/confidential-scheduler/internal/application"
	"github.com/example/confidential-scheduler/internal/config"
	"github.com/example/confidential-scheduler/internal/fhe"
	httptransport "github.com/example/confidential-scheduler/internal/http"
	"github.com/example/confidential-scheduler/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	coproc, err := fhe.NewSoftwareCoprocessor(cfg.CoprocessorKey, cfg.AttestationKey())
	if err != nil {
		logger.Error("failed to initialise the co-processor", "error", err)
		os.Exit(1)
	}
	verifier, err := fhe.NewEd25519Verifier(coproc.AttestationPublicKey())
	if err != nil {
		logger.Error("failed to initialise the attestation verifier", "error", err)
		os.Exit(1)
	}

	ledger := newPreferenceLedgerAdapter(sqlite.NewPreferenceRepository(storage))
	directory := sqlite.NewDirectoryRepository(storage)
	schedules := newScheduleStoreAdapter(sqlite.NewScheduleRepository(storage))
	reveals := newRevealStoreAdapter(sqlite.NewRevealRepository(storage))
	events := application.NewLogPublisher(logger)
	now := time.Now

	bridge := newDecryptionBridge(coproc, logger)

	preferenceService := application.NewPreferenceService(ledger, schedules, reveals, coproc, events, now, logger)
	directoryService := application.NewDirectoryService(directory, logger)
	optimizerService := application.NewOptimizerService(ledger, directory, schedules, coproc, events, now, logger)
	metricsService := application.NewMetricsService(ledger, directory, schedules, coproc, logger)
	revealService := application.NewRevealService(schedules, reveals, bridge, verifier, events, now, logger)
	bridge.SetResolver(revealService.ResolveReveal)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Preferences: httptransport.NewPreferenceHandler(preferenceService, logger),
		Directory:   httptransport.NewDirectoryHandler(directoryService, logger),
		Optimizer:   httptransport.NewOptimizerHandler(optimizerService, logger),
		Metrics:     httptransport.NewMetricsHandler(metricsService, logger),
		Reveals:     httptransport.NewRevealHandler(revealService, logger),
		Identity:    httptransport.RequireIdentity(cfg.AdminTokenHash, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("confidential scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
