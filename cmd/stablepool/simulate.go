package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stablePool/internal/config"
	"stablePool/internal/host"
	"stablePool/internal/metrics"
	"stablePool/internal/scenario"
	"stablePool/internal/storage"
	"stablePool/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Script == "" {
		return fmt.Errorf("script path is required")
	}

	hostCfg, err := cfg.Chain.HostConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	chain, err := host.New(hostCfg, host.WithLogger(logger), host.WithMetrics(metrics.New(reg)))
	if err != nil {
		return err
	}

	runCfg := scenario.Config{
		BatchSize: cfg.BatchSize,
		ReplyTTL:  cfg.ReplyTTL,
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		runCfg.Sink = &postgres.EventSink{Store: store, RunID: cfg.RunID}
		runCfg.Snapshots = store
		runCfg.State = &postgres.StateStore{Store: store, Name: "simulate:" + cfg.RunID}
	} else {
		runCfg.Sink = storage.NewJsonlStorage(cfg.Out)
	}
	if cfg.SnapshotFile != "" {
		runCfg.Snapshots = &storage.FileSnapshotStore{Path: cfg.SnapshotFile}
	}
	if cfg.StateFile != "" {
		runCfg.State = &storage.FileStateStore{Path: cfg.StateFile}
	}

	if cfg.Errors != "" {
		errFile, err := createFile(cfg.Errors)
		if err != nil {
			return err
		}
		defer errFile.Close()
		runCfg.Errors = errFile
	}

	script, err := os.Open(cfg.Script)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	defer script.Close()

	runner := scenario.NewRunner(runCfg, chain, logger)
	if err := runner.Restore(ctx); err != nil {
		return err
	}

	logger.Info("simulate start",
		zap.String("script", cfg.Script),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("run_id", cfg.RunID),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("start_time", chain.Env().Time),
	)

	sum, err := runner.Run(ctx, script)
	if err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		if err := ensureParent(cfg.MetricsFile); err != nil {
			return err
		}
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if sum.Failed > 0 {
		logger.Warn("script lines failed", zap.Int("failed", sum.Failed), zap.String("errors", cfg.Errors))
	}
	return nil
}

func createFile(path string) (*os.File, error) {
	if err := ensureParent(path); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return file, nil
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return nil
}
