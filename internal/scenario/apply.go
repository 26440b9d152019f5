package scenario

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/host"
	"stablePool/internal/pool"
	"stablePool/internal/registry"
)

func (r *Runner) apply(ctx context.Context, op Op) error {
	switch op.Op {
	case "fund":
		account, err := r.aliases.resolve(op.Account)
		if err != nil {
			return err
		}
		cs, err := coins(op.Coins)
		if err != nil {
			return err
		}
		return r.chain.Fund(ctx, account, cs...)
	case "create_token":
		return r.createToken(ctx, op)
	case "create_pair":
		return r.createPair(ctx, op)
	case "provide":
		return r.provide(ctx, op)
	case "withdraw":
		addr, info, err := r.call(op)
		if err != nil {
			return err
		}
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		_, err = r.chain.Withdraw(ctx, addr, info, amount)
		return err
	case "swap":
		return r.swap(ctx, op)
	case "update_config":
		addr, info, err := r.call(op)
		if err != nil {
			return err
		}
		_, err = r.chain.UpdatePoolConfig(ctx, addr, info, pool.UpdateConfigMsg{
			StartChangingAmp: op.StartChangingAmp,
			StopChangingAmp:  op.StopChangingAmp,
		})
		return err
	case "update_pair_config":
		if op.PairConfig == nil {
			return errors.Wrap(apperr.ErrInvalidMessage, "pair_config is required")
		}
		return r.chain.UpdatePairConfig(ctx, op.Sender, *op.PairConfig)
	case "increase_allowance":
		contract, err := r.aliases.resolve(op.Token)
		if err != nil {
			return err
		}
		spender, err := r.aliases.resolve(op.Spender)
		if err != nil {
			return err
		}
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		return r.chain.IncreaseAllowance(ctx, op.Sender, contract, spender, amount)
	case "transfer":
		if op.Asset == nil {
			return errors.Wrap(apperr.ErrInvalidMessage, "asset is required")
		}
		a, err := r.aliases.asset(*op.Asset)
		if err != nil {
			return err
		}
		to, err := r.aliases.resolve(op.To)
		if err != nil {
			return err
		}
		_, err = r.chain.Transfer(ctx, op.Sender, a, to)
		return err
	case "advance":
		r.chain.Advance(op.Seconds, op.Blocks)
		return nil
	case "collect":
		pairs := make([]string, 0, len(op.Pairs))
		for _, p := range op.Pairs {
			addr, err := r.aliases.resolve(p)
			if err != nil {
				return err
			}
			pairs = append(pairs, addr)
		}
		_, err := r.chain.Collect(ctx, op.Sender, pairs)
		return err
	case "process_replies":
		_, err := r.chain.ProcessReplies(ctx)
		return err
	case "expire":
		_, err := r.chain.Expire(ctx, op.TTL)
		return err
	default:
		return errors.Wrapf(apperr.ErrInvalidMessage, "unknown op %q", op.Op)
	}
}

// call resolves the target pool and the caller's attached funds.
func (r *Runner) call(op Op) (string, pool.MessageInfo, error) {
	addr, err := r.aliases.resolve(op.Pool)
	if err != nil {
		return "", pool.MessageInfo{}, err
	}
	funds, err := coins(op.Funds)
	if err != nil {
		return "", pool.MessageInfo{}, err
	}
	return addr, pool.MessageInfo{Sender: op.Sender, Funds: funds}, nil
}

func (r *Runner) createToken(ctx context.Context, op Op) error {
	msg := host.CreateTokenMsg{
		Name:     op.Name,
		Symbol:   op.Symbol,
		Decimals: op.Decimals,
		Initial:  make(map[string]*uint256.Int, len(op.Initial)),
	}
	var err error
	if msg.Minter, err = r.aliases.resolve(op.Minter); err != nil {
		return err
	}
	if msg.Cap, err = optionalAmount(op.Cap); err != nil {
		return err
	}
	for account, raw := range op.Initial {
		if msg.Initial[account], err = parseAmount(raw); err != nil {
			return err
		}
	}
	addr, err := r.chain.CreateToken(ctx, op.Sender, msg)
	if err != nil {
		return err
	}
	if op.As != "" {
		r.aliases[op.As] = addr
	}
	return nil
}

func (r *Runner) createPair(ctx context.Context, op Op) error {
	if len(op.Assets) != 2 {
		return errors.Wrapf(apperr.ErrInvalidMessage, "create_pair needs 2 assets, got %d", len(op.Assets))
	}
	msg := host.CreatePairMsg{PairType: op.PairType, Amp: op.Amp}
	if msg.PairType == "" {
		msg.PairType = registry.PairTypeStable
	}
	for i, s := range op.Assets {
		info, err := r.aliases.info(s)
		if err != nil {
			return err
		}
		msg.Assets[i] = info
	}
	info, err := r.chain.CreatePair(ctx, op.Sender, msg)
	if err != nil {
		return err
	}
	if op.As != "" {
		r.aliases[op.As] = info.ContractAddr
		r.aliases[op.As+".lp"] = info.LiquidityToken
	}
	return nil
}

func (r *Runner) provide(ctx context.Context, op Op) error {
	addr, info, err := r.call(op)
	if err != nil {
		return err
	}
	if len(op.Deposit) != 2 {
		return errors.Wrapf(apperr.ErrInvalidMessage, "provide needs 2 deposit assets, got %d", len(op.Deposit))
	}
	var msg pool.ProvideMsg
	for i, d := range op.Deposit {
		if msg.Assets[i], err = r.aliases.asset(d); err != nil {
			return err
		}
	}
	if msg.SlippageTolerance, err = optionalDecimal(op.SlippageTolerance); err != nil {
		return err
	}
	if msg.MinShare, err = optionalAmount(op.MinShare); err != nil {
		return err
	}
	if msg.Receiver, err = r.aliases.resolve(op.Receiver); err != nil {
		return err
	}
	_, err = r.chain.Provide(ctx, addr, info, msg)
	return err
}

func (r *Runner) swap(ctx context.Context, op Op) error {
	addr, info, err := r.call(op)
	if err != nil {
		return err
	}
	if op.Offer == nil {
		return errors.Wrap(apperr.ErrInvalidMessage, "offer is required")
	}
	var msg pool.SwapMsg
	if msg.OfferAsset, err = r.aliases.asset(*op.Offer); err != nil {
		return err
	}
	if msg.BeliefPrice, err = optionalDecimal(op.BeliefPrice); err != nil {
		return err
	}
	if msg.MaxSpread, err = optionalDecimal(op.MaxSpread); err != nil {
		return err
	}
	if msg.To, err = r.aliases.resolve(op.To); err != nil {
		return err
	}
	_, err = r.chain.Swap(ctx, addr, info, msg)
	return err
}
