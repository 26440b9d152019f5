package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// SimulateConfig holds settings for replaying a scenario script.
type SimulateConfig struct {
	Chain        ChainConfig
	Script       string
	Out          string
	Errors       string
	PGDSN        string
	RunID        string
	SnapshotFile string
	StateFile    string
	MetricsFile  string
	BatchSize    int
	ReplyTTL     uint64
	LogLevel     string
}

// LoadSimulate loads simulate configuration from flags, env and file.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	defaults := chainDefaults()
	defaults["out"] = "./data/pool_events.jsonl"
	defaults["errors"] = "./data/script_errors.jsonl"
	defaults["run-id"] = "default"
	defaults["batch-size"] = 500

	v, err := newViper(cfgFile, flags, defaults)
	if err != nil {
		return SimulateConfig{}, err
	}

	chain, err := loadChain(v)
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		Chain:        chain,
		Script:       v.GetString("script"),
		Out:          v.GetString("out"),
		Errors:       v.GetString("errors"),
		PGDSN:        v.GetString("pg-dsn"),
		RunID:        v.GetString("run-id"),
		SnapshotFile: v.GetString("snapshot-file"),
		StateFile:    v.GetString("state-file"),
		MetricsFile:  v.GetString("metrics-file"),
		BatchSize:    v.GetInt("batch-size"),
		ReplyTTL:     v.GetUint64("reply-ttl"),
		LogLevel:     v.GetString("log-level"),
	}
	if cfg.BatchSize <= 0 {
		return SimulateConfig{}, fmt.Errorf("batch-size must be positive")
	}
	return cfg, nil
}
