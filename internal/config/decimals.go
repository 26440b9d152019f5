package config

import (
	"time"

	"github.com/spf13/pflag"
)

// DecimalsConfig holds settings for fetching ERC20 token metadata.
type DecimalsConfig struct {
	RPCURL       string
	Tokens       []string
	Out          string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadDecimals loads metadata fetch configuration from flags, env and file.
func LoadDecimals(cfgFile string, flags *pflag.FlagSet) (DecimalsConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return DecimalsConfig{}, err
	}

	return DecimalsConfig{
		RPCURL:       v.GetString("rpc"),
		Tokens:       getStringSlice(v, "token"),
		Out:          v.GetString("out"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}
