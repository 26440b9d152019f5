package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// QuoteConfig holds settings for pricing against persisted pools.
type QuoteConfig struct {
	Chain     ChainConfig
	Snapshots string
	PGDSN     string
	Pools     []string
	Asset     string
	Amount    string
	Reverse   bool
	Time      uint64
	LogLevel  string
}

// LoadQuote loads quote configuration from flags, env and file.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, chainDefaults())
	if err != nil {
		return QuoteConfig{}, err
	}

	chain, err := loadChain(v)
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		Chain:     chain,
		Snapshots: v.GetString("snapshots"),
		PGDSN:     v.GetString("pg-dsn"),
		Pools:     getStringSlice(v, "pool"),
		Asset:     v.GetString("asset"),
		Amount:    v.GetString("amount"),
		Reverse:   v.GetBool("reverse"),
		LogLevel:  v.GetString("log-level"),
	}
	if cfg.Time, err = ParseTimestamp(v.GetString("time")); err != nil {
		return QuoteConfig{}, fmt.Errorf("parse time: %w", err)
	}
	if cfg.Snapshots == "" && cfg.PGDSN == "" {
		return QuoteConfig{}, fmt.Errorf("snapshots file or pg-dsn is required")
	}
	return cfg, nil
}
