package host

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/maker"
	"stablePool/internal/pool"
)

// makerView exposes ledger reads to the maker. Callers hold the chain lock.
type makerView struct {
	c *Chain
}

func (v makerView) BalanceOf(owner string, info asset.Info) *uint256.Int {
	return v.c.balanceOf(owner, info)
}

func (v makerView) PairAssets(addr string) ([2]asset.Info, error) {
	p, err := v.c.pair(addr)
	if err != nil {
		return [2]asset.Info{}, err
	}
	return p.State().Assets, nil
}

func (v makerView) PairAddress(assets [2]asset.Info) (string, error) {
	info, ok := v.c.registry.Pair(assets)
	if !ok {
		return "", errors.Wrapf(apperr.ErrUnknownPair, "%s-%s", assets[0], assets[1])
	}
	return info.ContractAddr, nil
}

func (c *Chain) requireMaker() error {
	if c.maker == nil {
		return errors.Wrap(apperr.ErrInvalidMessage, "maker is not configured")
	}
	return nil
}

// Collect sweeps the maker's fee balances from the given pairs. Every swap
// runs isolated: a failed swap is rolled back on its own and its failure is
// delivered with the reply. Replies are queued for ProcessReplies.
func (c *Chain) Collect(ctx context.Context, sender string, pairs []string) (pool.Response, error) {
	return c.exec(ctx, tx{op: "collect", sender: sender}, func() (pool.Response, error) {
		if err := c.requireMaker(); err != nil {
			return pool.Response{}, err
		}
		res, err := c.maker.Collect(c.env.Time, pairs, makerView{c})
		if err != nil {
			return pool.Response{}, err
		}
		var resp pool.Response
		for _, t := range res.Transfers {
			m, err := c.makerTransfer(t)
			if err != nil {
				return pool.Response{}, err
			}
			resp.Messages = append(resp.Messages, m)
		}
		for _, d := range res.Swaps {
			swapResp, swapErr := c.dispatchSwap(d)
			if swapErr != nil {
				c.log.Warn("maker swap failed",
					zap.Uint64("dispatch_id", d.ID),
					zap.String("pair", d.Pair),
					zap.Error(swapErr),
				)
			}
			resp.Messages = append(resp.Messages, swapResp.Messages...)
			c.replies = append(c.replies, reply{id: d.ID, err: swapErr})
		}
		resp.Attributes = append(resp.Attributes,
			pool.Attribute{Key: "action", Value: "collect"},
			pool.Attribute{Key: "dispatched", Value: strconv.Itoa(len(res.Swaps))},
		)
		return resp, nil
	})
}

// dispatchSwap runs one maker swap behind its own savepoint.
func (c *Chain) dispatchSwap(d maker.Dispatch) (pool.Response, error) {
	snap := c.snapshot()
	maxSpread := d.MaxSpread
	info := pool.MessageInfo{Sender: c.maker.Address()}
	if d.Offer.Info.IsNative() {
		info.Funds = []asset.Coin{{Denom: d.Offer.Info.Denom, Amount: d.Offer.Amount}}
	} else {
		l, err := c.ledger(d.Offer.Info.ContractAddr)
		if err != nil {
			return pool.Response{}, err
		}
		if err := l.IncreaseAllowance(c.maker.Address(), d.Pair, d.Offer.Amount); err != nil {
			c.restore(snap)
			return pool.Response{}, err
		}
	}
	resp, err := c.swapLocked(d.Pair, info, pool.SwapMsg{OfferAsset: d.Offer, MaxSpread: &maxSpread})
	if err != nil {
		c.restore(snap)
		return pool.Response{}, err
	}
	return resp, nil
}

func (c *Chain) makerTransfer(t maker.Transfer) (pool.Message, error) {
	m, err := c.transferMessage(c.maker.Address(), t.Asset, t.To)
	if err != nil {
		return pool.Message{}, err
	}
	if err := c.apply(m); err != nil {
		return pool.Message{}, errors.Wrapf(err, "distribute to %s", t.To)
	}
	return m, nil
}

// ProcessReplies delivers queued replies, one transaction each, and returns
// how many were delivered. A reply whose transaction fails keeps its
// dispatch pending until Expire reports it.
func (c *Chain) ProcessReplies(ctx context.Context) (int, error) {
	var (
		delivered int
		firstErr  error
	)
	for {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		c.mu.Lock()
		if len(c.replies) == 0 {
			c.mu.Unlock()
			return delivered, firstErr
		}
		r := c.replies[0]
		c.replies = c.replies[1:]
		_, err := c.execLocked(tx{op: "reply", sender: strconv.FormatUint(r.id, 10)}, func() (pool.Response, error) {
			return c.deliver(r)
		})
		c.mu.Unlock()
		delivered++
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
}

func (c *Chain) deliver(r reply) (pool.Response, error) {
	if err := c.requireMaker(); err != nil {
		return pool.Response{}, err
	}
	transfers, err := c.maker.Reply(r.id, r.err, makerView{c})
	if err != nil {
		return pool.Response{}, err
	}
	var resp pool.Response
	for _, t := range transfers {
		m, err := c.makerTransfer(t)
		if err != nil {
			return pool.Response{}, err
		}
		resp.Messages = append(resp.Messages, m)
	}
	resp.Attributes = append(resp.Attributes,
		pool.Attribute{Key: "action", Value: "reply"},
		pool.Attribute{Key: "dispatch_id", Value: strconv.FormatUint(r.id, 10)},
	)
	return resp, nil
}

// Expire drops maker dispatches older than ttl seconds and returns them.
func (c *Chain) Expire(ctx context.Context, ttl uint64) ([]maker.Dispatch, error) {
	var expired []maker.Dispatch
	_, err := c.exec(ctx, tx{op: "expire"}, func() (pool.Response, error) {
		if err := c.requireMaker(); err != nil {
			return pool.Response{}, err
		}
		expired = c.maker.Expire(c.env.Time, ttl)
		var resp pool.Response
		for _, d := range expired {
			resp.Attributes = append(resp.Attributes, pool.Attribute{Key: "expired", Value: strconv.FormatUint(d.ID, 10)})
			c.log.Warn("maker dispatch expired", zap.Uint64("dispatch_id", d.ID), zap.String("pair", d.Pair))
		}
		return resp, nil
	})
	return expired, err
}

// PendingDispatches lists maker dispatches awaiting a reply.
func (c *Chain) PendingDispatches() []maker.Dispatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maker == nil {
		return nil
	}
	return c.maker.Pending()
}
