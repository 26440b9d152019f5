package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stablePool/internal/chain"
	"stablePool/internal/config"
	"stablePool/internal/tokenmeta"
)

func runDecimals(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecimals(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if len(cfg.Tokens) == 0 {
		return fmt.Errorf("token list is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}

	var out io.Writer = os.Stdout
	if cfg.Out != "" {
		file, err := createFile(cfg.Out)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	fetcher := &tokenmeta.Fetcher{
		Caller:     chainClient,
		ChainID:    chainID.Uint64(),
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryBackoff,
		Logger:     logger,
	}

	logger.Info("decimals start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.Int("tokens", len(cfg.Tokens)),
	)

	enc := json.NewEncoder(out)
	var failed int
	for _, token := range cfg.Tokens {
		meta, err := fetcher.Fetch(ctx, strings.ToLower(token))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			logger.Warn("fetch token metadata", zap.String("token", token), zap.Error(err))
			continue
		}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}
	}

	logger.Info("decimals complete",
		zap.Int("total", len(cfg.Tokens)),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d tokens failed", failed, len(cfg.Tokens))
	}
	return nil
}
