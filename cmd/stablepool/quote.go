package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stablePool/internal/asset"
	"stablePool/internal/config"
	"stablePool/internal/host"
	"stablePool/internal/mathx"
	"stablePool/internal/model"
	"stablePool/internal/pool"
	"stablePool/internal/storage"
	"stablePool/internal/storage/postgres"
)

type quoteResult struct {
	Pool             string       `json:"pool"`
	Time             uint64       `json:"time"`
	Amp              uint64       `json:"amp"`
	Offer            asset.Asset  `json:"offer"`
	Ask              asset.Asset  `json:"ask"`
	SpreadAmount     *uint256.Int `json:"spread_amount"`
	CommissionAmount *uint256.Int `json:"commission_amount"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	info, err := asset.ParseInfo(cfg.Asset)
	if err != nil {
		return fmt.Errorf("parse asset: %w", err)
	}
	amount, err := mathx.ParseAmount(cfg.Amount)
	if err != nil {
		return err
	}
	if amount.IsZero() {
		return fmt.Errorf("amount is required")
	}

	hostCfg, err := cfg.Chain.HostConfig()
	if err != nil {
		return err
	}
	hostCfg.Start = pool.Env{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snaps, err := loadSnapshots(ctx, cfg)
	if err != nil {
		return err
	}

	chain, err := host.New(hostCfg, host.WithLogger(logger))
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		if err := chain.LoadSnapshot(snap); err != nil {
			return fmt.Errorf("load pool %s: %w", snap.Address, err)
		}
	}

	now := cfg.Time
	if now == 0 {
		now = chain.Env().Time
	}

	pools := cfg.Pools
	explicit := len(pools) > 0
	if !explicit {
		for _, snap := range snaps {
			pools = append(pools, snap.Address)
		}
	}

	logger.Debug("quote start",
		zap.Int("pools", len(pools)),
		zap.String("asset", info.Key()),
		zap.String("amount", amount.Dec()),
		zap.Bool("reverse", cfg.Reverse),
		zap.Uint64("time", now),
	)

	enc := json.NewEncoder(os.Stdout)
	for _, addr := range pools {
		var (
			res     quoteResult
			skipped bool
		)
		err := chain.QueryPool(addr, func(p *pool.Pool) error {
			pair := p.Pair()
			other, ok := counterpart(pair.AssetInfos, info)
			if !ok {
				skipped = true
				return nil
			}
			res = quoteResult{Pool: addr, Time: now, Amp: p.CurrentConfig(now).Amp}
			if cfg.Reverse {
				sim, err := p.ReverseSimulation(now, asset.New(info, amount))
				if err != nil {
					return err
				}
				res.Offer = asset.New(other, sim.OfferAmount)
				res.Ask = asset.New(info, amount)
				res.SpreadAmount, res.CommissionAmount = sim.SpreadAmount, sim.CommissionAmount
				return nil
			}
			sim, err := p.Simulation(now, asset.New(info, amount))
			if err != nil {
				return err
			}
			res.Offer = asset.New(info, amount)
			res.Ask = asset.New(other, sim.ReturnAmount)
			res.SpreadAmount, res.CommissionAmount = sim.SpreadAmount, sim.CommissionAmount
			return nil
		})
		if err != nil {
			return fmt.Errorf("quote %s: %w", addr, err)
		}
		if skipped {
			if explicit {
				return fmt.Errorf("pool %s does not hold %s", addr, info)
			}
			continue
		}
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("write quote: %w", err)
		}
	}
	return nil
}

func counterpart(infos [2]asset.Info, info asset.Info) (asset.Info, bool) {
	switch {
	case infos[0].Equal(info):
		return infos[1], true
	case infos[1].Equal(info):
		return infos[0], true
	default:
		return asset.Info{}, false
	}
}

func loadSnapshots(ctx context.Context, cfg config.QuoteConfig) ([]model.PoolSnapshot, error) {
	if cfg.Snapshots != "" {
		return (&storage.FileSnapshotStore{Path: cfg.Snapshots}).LoadSnapshots(ctx)
	}
	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()
	return store.LoadSnapshots(ctx)
}
