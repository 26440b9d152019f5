package host

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/asset"
	"stablePool/internal/model"
	"stablePool/internal/pool"
	"stablePool/internal/registry"
	"stablePool/internal/token"
)

// QueryPool runs read-only fn against a pool under the chain lock.
func (c *Chain) QueryPool(addr string, fn func(p *pool.Pool) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.pair(addr)
	if err != nil {
		return err
	}
	return fn(p)
}

// Balance returns owner's native or token balance.
func (c *Chain) Balance(owner string, info asset.Info) *uint256.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balanceOf(owner, info)
}

// TokenInfo returns the metadata and supply of a token.
func (c *Chain) TokenInfo(contract string) (token.Info, *uint256.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, err := c.ledger(contract)
	if err != nil {
		return token.Info{}, nil, err
	}
	return l.Info(), l.TotalSupply(), nil
}

func (c *Chain) Pair(assets [2]asset.Info) (registry.PairInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Pair(assets)
}

func (c *Chain) Pairs() []registry.PairInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Pairs()
}

// Snapshots returns the persisted form of every pool ordered by address.
func (c *Chain) Snapshots() []model.PoolSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.PoolSnapshot, 0, len(c.pools))
	for _, addr := range sortedKeys(c.pools) {
		out = append(out, c.pools[addr].State().Snapshot(c.env))
	}
	return out
}

// LoadSnapshot installs a persisted pool and registers its pair. The share
// supply is credited to the pool address since individual holders are not
// persisted.
func (c *Chain) LoadSnapshot(snap model.PoolSnapshot) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	saved := c.snapshot()
	defer func() {
		if err != nil {
			c.restore(saved)
		}
	}()
	if _, ok := c.pools[snap.Address]; ok {
		return errors.Errorf("pool %s already loaded", snap.Address)
	}
	state, err := pool.StateFromSnapshot(snap)
	if err != nil {
		return err
	}
	shares := token.NewLedger(token.Info{
		Address:  state.ShareToken,
		Symbol:   "uLP",
		Decimals: 6,
		Minter:   state.Address,
	})
	if !state.ShareSupply.IsZero() {
		if err := shares.Issue(state.Address, state.ShareSupply); err != nil {
			return errors.Wrap(err, "share supply")
		}
	}
	info, err := c.registry.CreatePair(state.Assets, state.PairType)
	if err != nil {
		return errors.Wrap(err, "register pair")
	}
	if info.ContractAddr != state.Address {
		return errors.Errorf("pool %s does not match derived address %s", state.Address, info.ContractAddr)
	}
	p, err := pool.Load(snap, pool.Deps{Registry: c.registry, Shares: shares, Tax: c.tax})
	if err != nil {
		return err
	}
	// Back the pool record with ledger balances so payouts can settle.
	for i, a := range state.Assets {
		if state.Balances[i].IsZero() {
			continue
		}
		if a.IsNative() {
			err = c.bank.Fund(state.Address, asset.Coin{Denom: a.Denom, Amount: state.Balances[i]})
		} else if l, ok := c.tokens[a.ContractAddr]; ok {
			err = l.Issue(state.Address, state.Balances[i])
		}
		if err != nil {
			return errors.Wrapf(err, "fund pool asset %s", a)
		}
	}
	if snap.Timestamp > c.env.Time {
		c.env = pool.Env{Height: snap.Height, Time: snap.Timestamp}
	}
	c.tokens[state.ShareToken] = shares
	c.pools[state.Address] = p
	return nil
}
