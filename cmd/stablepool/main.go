package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "stablepool",
		Short:        "StableSwap pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a JSONL operation script against in-memory pools",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("script", "", "input operation script JSONL")
	simulateCmd.Flags().String("out", "./data/pool_events.jsonl", "output pool events JSONL")
	simulateCmd.Flags().String("errors", "./data/script_errors.jsonl", "script errors JSONL")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN (replaces the JSONL and file outputs)")
	simulateCmd.Flags().String("run-id", "default", "run id for stored events")
	simulateCmd.Flags().String("snapshot-file", "", "pool snapshot file to resume from and save to")
	simulateCmd.Flags().String("state-file", "", "runner clock file to resume from and save to")
	simulateCmd.Flags().String("metrics-file", "", "write prometheus metrics in text format on exit")
	simulateCmd.Flags().Int("batch-size", 500, "script lines per event flush")
	simulateCmd.Flags().Uint64("reply-ttl", 0, "expire maker dispatches older than this many seconds at the end of the run")
	simulateCmd.Flags().String("start-time", "", "initial block time (unix seconds or RFC3339), defaults to now")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote swaps against persisted pools",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("snapshots", "", "pool snapshot file")
	quoteCmd.Flags().String("pg-dsn", "", "Postgres DSN to load snapshots from")
	quoteCmd.Flags().StringSlice("pool", nil, "pool addresses (comma-separated), all pools when empty")
	quoteCmd.Flags().String("asset", "", "offer asset (native:<denom> or token:<addr>), or the ask asset with --reverse")
	quoteCmd.Flags().String("amount", "", "amount in base units")
	quoteCmd.Flags().Bool("reverse", false, "quote the offer needed for the given ask amount")
	quoteCmd.Flags().String("time", "", "quote time (unix seconds or RFC3339), defaults to the latest snapshot")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	decimalsCmd := &cobra.Command{
		Use:   "decimals",
		Short: "Fetch ERC20 metadata for contract-backed pool assets",
		RunE:  runDecimals,
	}

	decimalsCmd.Flags().String("rpc", "", "EVM RPC URL")
	decimalsCmd.Flags().StringSlice("token", nil, "token addresses (comma-separated)")
	decimalsCmd.Flags().String("out", "", "output JSONL path, stdout when empty")
	decimalsCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	decimalsCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	decimalsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decimalsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
