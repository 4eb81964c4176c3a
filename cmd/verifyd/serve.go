package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"verifyd/internal/config"
	"verifyd/internal/logging"
	"verifyd/internal/server"
	"verifyd/internal/services/analysis"
	"verifyd/internal/services/fingerprint"
	"verifyd/internal/services/walrus"
	"verifyd/internal/services/whisper"
	"verifyd/internal/session"
	"verifyd/internal/verification"
)

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the verification daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func runServe(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "verifyd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return errors.New("another verifyd instance is already running")
	}
	defer lock.Unlock() //nolint:errcheck

	store, err := session.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	dispatcher := verification.NewDispatcher(store, cfg.Worker, logger)
	worker := verification.NewWorker(
		store,
		walrus.NewClient(cfg.Walrus.BaseURL, walrus.WithTimeout(time.Duration(cfg.Walrus.TimeoutSeconds)*time.Second)),
		verification.NewQualityCheck(),
		fingerprint.NewDetector(fingerprint.Config{
			APIKey:         cfg.Copyright.APIKey,
			BaseURL:        cfg.Copyright.BaseURL,
			Binary:         cfg.Copyright.Binary,
			TimeoutSeconds: cfg.Copyright.TimeoutSeconds,
		}),
		whisper.NewService(cfg.Transcription.Binary, cfg.Transcription.Model),
		analysis.NewClient(analysis.Config{
			APIKey:         cfg.Analysis.APIKey,
			BaseURL:        cfg.Analysis.BaseURL,
			Model:          cfg.Analysis.Model,
			TimeoutSeconds: cfg.Analysis.TimeoutSeconds,
		}),
		cfg.Worker,
		logger,
	)

	go worker.Run(ctx, dispatcher.Jobs())
	go store.Sweep(ctx, time.Duration(cfg.Store.SweepIntervalSeconds)*time.Second)

	srv := server.New(cfg, store, dispatcher, logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Stop()

	logger.Info("verifyd started",
		logging.String("bind", cfg.Paths.APIBind),
		logging.String("db", store.Path()),
		logging.Duration("session_ttl", store.TTL()),
	)

	<-ctx.Done()
	logger.Info("verifyd shutting down")
	return nil
}
