package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"stablePool/internal/asset"
	"stablePool/internal/host"
	"stablePool/internal/maker"
	"stablePool/internal/mathx"
	"stablePool/internal/pool"
	"stablePool/internal/registry"
)

// newViper merges defaults, STABLEPOOL_ environment variables, flags and the
// config file. Without an explicit file ./config.* is optional.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("STABLEPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// MakerConfig configures the fee sweeper. It is disabled without an address.
type MakerConfig struct {
	Address           string
	ReferenceAsset    string
	StakingAddr       string
	GovernanceAddr    string
	GovernancePercent uint64
	MaxSpread         string
}

// ChainConfig holds the registry, tax and pool defaults of the execution host.
type ChainConfig struct {
	Owner            string
	FeeAddress       string
	PairConfigs      []registry.PairConfig
	NativeDecimals   map[string]uint8
	MinimumLiquidity string
	TaxRate          string
	TaxCaps          map[string]string
	TaxCollector     string
	StartTime        uint64
	StartHeight      uint64
	Maker            MakerConfig
}

func loadChain(v *viper.Viper) (ChainConfig, error) {
	cfg := ChainConfig{
		Owner:            v.GetString("owner"),
		FeeAddress:       v.GetString("fee-address"),
		MinimumLiquidity: v.GetString("minimum-liquidity"),
		TaxRate:          v.GetString("tax.rate"),
		TaxCaps:          v.GetStringMapString("tax.caps"),
		TaxCollector:     v.GetString("tax.collector"),
		StartHeight:      v.GetUint64("start-height"),
		Maker: MakerConfig{
			Address:           v.GetString("maker.address"),
			ReferenceAsset:    v.GetString("maker.reference-asset"),
			StakingAddr:       v.GetString("maker.staking"),
			GovernanceAddr:    v.GetString("maker.governance"),
			GovernancePercent: v.GetUint64("maker.governance-percent"),
			MaxSpread:         v.GetString("maker.max-spread"),
		},
	}
	ts, err := ParseTimestamp(v.GetString("start-time"))
	if err != nil {
		return ChainConfig{}, fmt.Errorf("parse start-time: %w", err)
	}
	cfg.StartTime = ts

	if err := v.UnmarshalKey("pair-configs", &cfg.PairConfigs); err != nil {
		return ChainConfig{}, fmt.Errorf("parse pair-configs: %w", err)
	}
	if len(cfg.PairConfigs) == 0 {
		cfg.PairConfigs = []registry.PairConfig{{
			PairType:    registry.PairTypeStable,
			TotalFeeBps: v.GetUint64("total-fee-bps"),
			MakerFeeBps: v.GetUint64("maker-fee-bps"),
		}}
	}

	decimals := v.GetStringMapString("native-decimals")
	if len(decimals) > 0 {
		cfg.NativeDecimals = make(map[string]uint8, len(decimals))
		for denom, raw := range decimals {
			d, err := strconv.ParseUint(raw, 10, 8)
			if err != nil {
				return ChainConfig{}, fmt.Errorf("native-decimals.%s: %w", denom, err)
			}
			cfg.NativeDecimals[denom] = uint8(d)
		}
	}
	return cfg, nil
}

func chainDefaults() map[string]any {
	return map[string]any{
		"owner":         "owner",
		"total-fee-bps": uint64(5),
		"maker-fee-bps": uint64(0),
		"start-height":  uint64(1),
	}
}

// HostConfig converts the loaded values into the host configuration.
func (c ChainConfig) HostConfig() (host.Config, error) {
	out := host.Config{
		Owner:          c.Owner,
		FeeAddress:     c.FeeAddress,
		PairConfigs:    c.PairConfigs,
		TaxCollector:   c.TaxCollector,
		NativeDecimals: c.NativeDecimals,
		Start:          pool.Env{Height: c.StartHeight, Time: c.StartTime},
	}
	if out.Start.Time == 0 {
		out.Start.Time = uint64(time.Now().Unix())
	}
	if c.MinimumLiquidity != "" {
		v, err := mathx.ParseAmount(c.MinimumLiquidity)
		if err != nil {
			return host.Config{}, fmt.Errorf("minimum-liquidity: %w", err)
		}
		out.MinimumLiquidity = v
	}

	tax, err := c.tax()
	if err != nil {
		return host.Config{}, err
	}
	out.Tax = tax

	if c.Maker.Address != "" {
		ref, err := asset.ParseInfo(c.Maker.ReferenceAsset)
		if err != nil {
			return host.Config{}, fmt.Errorf("maker.reference-asset: %w", err)
		}
		mc := &maker.Config{
			Owner:             c.Owner,
			Address:           c.Maker.Address,
			ReferenceAsset:    ref,
			StakingAddr:       c.Maker.StakingAddr,
			GovernanceAddr:    c.Maker.GovernanceAddr,
			GovernancePercent: c.Maker.GovernancePercent,
		}
		if c.Maker.MaxSpread != "" {
			if mc.MaxSpread, err = mathx.ParseDecimal(c.Maker.MaxSpread); err != nil {
				return host.Config{}, fmt.Errorf("maker.max-spread: %w", err)
			}
		}
		out.Maker = mc
	}
	return out, nil
}

func (c ChainConfig) tax() (asset.TaxQuerier, error) {
	if c.TaxRate == "" {
		return asset.NoTax, nil
	}
	rate, err := mathx.ParseDecimal(c.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("tax.rate: %w", err)
	}
	caps := make(map[string]*uint256.Int, len(c.TaxCaps))
	for denom, raw := range c.TaxCaps {
		v, err := mathx.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("tax.caps.%s: %w", denom, err)
		}
		caps[denom] = v
	}
	return asset.FixedTax{Rate: rate, Caps: caps}, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
