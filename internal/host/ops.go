package host

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
	"stablePool/internal/pool"
	"stablePool/internal/registry"
	"stablePool/internal/token"
)

// Fund credits genesis native balances.
func (c *Chain) Fund(ctx context.Context, account string, coins ...asset.Coin) error {
	_, err := c.exec(ctx, tx{op: "fund", sender: account}, func() (pool.Response, error) {
		return pool.Response{}, c.bank.Fund(account, coins...)
	})
	return err
}

// CreateTokenMsg instantiates a contract-backed token with initial balances.
type CreateTokenMsg struct {
	Name     string
	Symbol   string
	Decimals uint8
	Minter   string
	Cap      *uint256.Int
	Initial  map[string]*uint256.Int
}

// CreateToken deploys a token ledger and returns its address.
func (c *Chain) CreateToken(ctx context.Context, sender string, msg CreateTokenMsg) (string, error) {
	var addr string
	_, err := c.exec(ctx, tx{op: "create_token", sender: sender}, func() (pool.Response, error) {
		if msg.Decimals > mathx.MaxDecimals {
			return pool.Response{}, errors.Wrapf(apperr.ErrInvalidDecimals, "token %s", msg.Symbol)
		}
		addr = deriveAddress("token", sender, msg.Symbol, strconv.Itoa(len(c.tokens)))
		l := token.NewLedger(token.Info{
			Address:  addr,
			Name:     msg.Name,
			Symbol:   msg.Symbol,
			Decimals: msg.Decimals,
			Minter:   msg.Minter,
			Cap:      msg.Cap,
		})
		for _, account := range sortedKeys(msg.Initial) {
			if err := l.Issue(account, msg.Initial[account]); err != nil {
				return pool.Response{}, errors.Wrapf(err, "initial balance of %s", account)
			}
		}
		c.tokens[addr] = l
		resp := pool.Response{}
		resp.Attributes = append(resp.Attributes,
			pool.Attribute{Key: "action", Value: "create_token"},
			pool.Attribute{Key: "token", Value: addr},
		)
		return resp, nil
	})
	return addr, err
}

type CreatePairMsg struct {
	Assets   [2]asset.Info
	PairType string
	Amp      uint64
}

// CreatePair registers the pair, deploys its share token and the pool.
func (c *Chain) CreatePair(ctx context.Context, sender string, msg CreatePairMsg) (registry.PairInfo, error) {
	var info registry.PairInfo
	_, err := c.exec(ctx, tx{op: "create_pair", sender: sender}, func() (pool.Response, error) {
		var (
			decimals [2]uint8
			symbols  [2]string
		)
		for i, a := range msg.Assets {
			d, sym, err := c.assetMeta(a)
			if err != nil {
				return pool.Response{}, err
			}
			decimals[i], symbols[i] = d, sym
		}
		var err error
		if info, err = c.registry.CreatePair(msg.Assets, msg.PairType); err != nil {
			return pool.Response{}, err
		}
		shares := token.NewLedger(token.Info{
			Address:  info.LiquidityToken,
			Name:     registry.LPTokenName(symbols),
			Symbol:   "uLP",
			Decimals: 6,
			Minter:   info.ContractAddr,
		})
		p, err := pool.New(c.env, pool.Config{
			Assets:           msg.Assets,
			Decimals:         decimals,
			Amp:              msg.Amp,
			Address:          info.ContractAddr,
			ShareToken:       info.LiquidityToken,
			PairType:         msg.PairType,
			MinimumLiquidity: c.minLiquidity,
		}, pool.Deps{Registry: c.registry, Shares: shares, Tax: c.tax})
		if err != nil {
			return pool.Response{}, err
		}
		c.tokens[info.LiquidityToken] = shares
		c.pools[info.ContractAddr] = p
		resp := pool.Response{}
		resp.Attributes = append(resp.Attributes,
			pool.Attribute{Key: "action", Value: "create_pair"},
			pool.Attribute{Key: "pair", Value: msg.Assets[0].String() + "-" + msg.Assets[1].String()},
			pool.Attribute{Key: "pair_contract_addr", Value: info.ContractAddr},
			pool.Attribute{Key: "liquidity_token_addr", Value: info.LiquidityToken},
		)
		return resp, nil
	})
	return info, err
}

func (c *Chain) assetMeta(a asset.Info) (uint8, string, error) {
	if err := a.Validate(); err != nil {
		return 0, "", err
	}
	if a.IsNative() {
		if d, ok := c.nativeDecimals[a.Denom]; ok {
			return d, a.Denom, nil
		}
		return DefaultNativeDecimals, a.Denom, nil
	}
	l, err := c.ledger(a.ContractAddr)
	if err != nil {
		return 0, "", err
	}
	return l.Info().Decimals, l.Info().Symbol, nil
}

// callPool moves the attached native funds to the pool, runs the operation
// and dispatches its messages.
func (c *Chain) callPool(addr string, info pool.MessageInfo, fn func(p *pool.Pool) (pool.Response, error)) (pool.Response, error) {
	p, err := c.pair(addr)
	if err != nil {
		return pool.Response{}, err
	}
	if len(info.Funds) > 0 {
		if err := c.bank.Send(info.Sender, addr, info.Funds); err != nil {
			return pool.Response{}, errors.Wrap(err, "attach funds")
		}
	}
	resp, err := fn(p)
	if err != nil {
		return pool.Response{}, err
	}
	if err := c.dispatch(resp.Messages); err != nil {
		return pool.Response{}, err
	}
	return resp, nil
}

func (c *Chain) Provide(ctx context.Context, pair string, info pool.MessageInfo, msg pool.ProvideMsg) (pool.Response, error) {
	return c.exec(ctx, tx{op: "provide_liquidity", pool: pair, sender: info.Sender}, func() (pool.Response, error) {
		return c.callPool(pair, info, func(p *pool.Pool) (pool.Response, error) {
			return p.Provide(c.env, info, msg)
		})
	})
}

func (c *Chain) Withdraw(ctx context.Context, pair string, info pool.MessageInfo, amount *uint256.Int) (pool.Response, error) {
	return c.exec(ctx, tx{op: "withdraw_liquidity", pool: pair, sender: info.Sender}, func() (pool.Response, error) {
		return c.callPool(pair, info, func(p *pool.Pool) (pool.Response, error) {
			return p.Withdraw(c.env, info, amount)
		})
	})
}

func (c *Chain) Swap(ctx context.Context, pair string, info pool.MessageInfo, msg pool.SwapMsg) (pool.Response, error) {
	return c.exec(ctx, tx{op: "swap", pool: pair, sender: info.Sender}, func() (pool.Response, error) {
		return c.swapLocked(pair, info, msg)
	})
}

func (c *Chain) swapLocked(pair string, info pool.MessageInfo, msg pool.SwapMsg) (pool.Response, error) {
	resp, err := c.callPool(pair, info, func(p *pool.Pool) (pool.Response, error) {
		return p.Swap(c.env, info, msg)
	})
	if err != nil {
		return pool.Response{}, err
	}
	if commission, ok := resp.Attribute("commission_amount"); ok {
		ask, _ := resp.Attribute("ask_asset")
		if v, err := uint256.FromDecimal(commission); err == nil {
			c.metrics.AddCommission(pair, ask, v)
		}
	}
	return resp, nil
}

func (c *Chain) UpdatePoolConfig(ctx context.Context, pair string, info pool.MessageInfo, msg pool.UpdateConfigMsg) (pool.Response, error) {
	return c.exec(ctx, tx{op: "update_config", pool: pair, sender: info.Sender}, func() (pool.Response, error) {
		return c.callPool(pair, info, func(p *pool.Pool) (pool.Response, error) {
			return p.UpdateConfig(c.env, info, msg)
		})
	})
}

// UpdatePairConfig changes fee bps or the disabled flag of a pair type.
func (c *Chain) UpdatePairConfig(ctx context.Context, sender string, cfg registry.PairConfig) error {
	_, err := c.exec(ctx, tx{op: "update_pair_config", sender: sender}, func() (pool.Response, error) {
		return pool.Response{}, c.registry.UpdatePairConfig(sender, cfg)
	})
	return err
}

func (c *Chain) IncreaseAllowance(ctx context.Context, owner, contract, spender string, amount *uint256.Int) error {
	_, err := c.exec(ctx, tx{op: "increase_allowance", sender: owner}, func() (pool.Response, error) {
		l, err := c.ledger(contract)
		if err != nil {
			return pool.Response{}, err
		}
		return pool.Response{}, l.IncreaseAllowance(owner, spender, amount)
	})
	return err
}

// Transfer sends an asset from sender to recipient. Native transfers are taxed.
func (c *Chain) Transfer(ctx context.Context, sender string, a asset.Asset, to string) (pool.Response, error) {
	return c.exec(ctx, tx{op: "transfer", sender: sender}, func() (pool.Response, error) {
		if mathx.OrZero(a.Amount).IsZero() {
			return pool.Response{}, apperr.ErrInvalidZeroAmount
		}
		m, err := c.transferMessage(sender, a, to)
		if err != nil {
			return pool.Response{}, err
		}
		if err := c.apply(m); err != nil {
			return pool.Response{}, err
		}
		return pool.Response{Messages: []pool.Message{m}}, nil
	})
}
