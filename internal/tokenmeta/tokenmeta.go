// Package tokenmeta looks up ERC20 decimals and symbols for contract-backed
// pool assets.
package tokenmeta

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
	"stablePool/internal/model"
)

// Caller performs read-only contract calls. *chain.Client implements it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Fetcher struct {
	Caller     Caller
	ChainID    uint64
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger

	mu    sync.RWMutex
	cache map[string]model.TokenMeta
}

func (f *Fetcher) log() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

func (f *Fetcher) cached(addr string) (model.TokenMeta, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	meta, ok := f.cache[addr]
	return meta, ok
}

func (f *Fetcher) store(meta model.TokenMeta) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache == nil {
		f.cache = make(map[string]model.TokenMeta)
	}
	f.cache[meta.Address] = meta
}

// Fetch returns the token metadata, calling the chain once per token.
// Symbol and name are best effort; decimals are required.
func (f *Fetcher) Fetch(ctx context.Context, token string) (model.TokenMeta, error) {
	if err := asset.ValidateAddress(token); err != nil {
		return model.TokenMeta{}, err
	}
	if meta, ok := f.cached(token); ok {
		return meta, nil
	}
	if f.Caller == nil {
		return model.TokenMeta{}, errors.New("chain client is nil")
	}
	abis, err := loadABIs()
	if err != nil {
		return model.TokenMeta{}, errors.Wrap(err, "parse erc20 abi")
	}

	addr := common.HexToAddress(token)
	meta := model.TokenMeta{Address: token, ChainID: f.ChainID}

	values, err := f.call(ctx, addr, abis.standard, "decimals")
	if err != nil {
		return model.TokenMeta{}, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return model.TokenMeta{}, errors.Errorf("decimals: unsupported type %T", values[0])
	}
	if decimals > mathx.MaxDecimals {
		return model.TokenMeta{}, errors.Wrapf(apperr.ErrInvalidDecimals, "token %s reports %d", token, decimals)
	}
	meta.Decimals = decimals

	meta.Symbol = f.text(ctx, addr, abis, "symbol")
	meta.Name = f.text(ctx, addr, abis, "name")
	f.store(meta)
	return meta, nil
}

// Decimals is Fetch for callers that only need the precision.
func (f *Fetcher) Decimals(ctx context.Context, token string) (uint8, error) {
	meta, err := f.Fetch(ctx, token)
	if err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

func (f *Fetcher) text(ctx context.Context, addr common.Address, abis erc20ABIs, method string) string {
	if values, err := f.call(ctx, addr, abis.standard, method); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err := f.call(ctx, addr, abis.bytes32, method)
	if err != nil {
		f.log().Debug("token text call failed", zap.String("token", strings.ToLower(addr.Hex())), zap.String("method", method), zap.Error(err))
		return ""
	}
	if b, ok := values[0].([32]byte); ok {
		return string(bytes.TrimRight(b[:], "\x00"))
	}
	return ""
}

func (f *Fetcher) call(ctx context.Context, addr common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}
	var values []interface{}
	err = retry(ctx, f.MaxRetries+1, f.RetryDelay, func(ctx context.Context) error {
		resp, err := f.Caller.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
		if err != nil {
			return errors.Wrapf(err, "call %s", method)
		}
		if values, err = parsed.Unpack(method, resp); err != nil {
			return permanent{errors.Wrapf(err, "unpack %s", method)}
		}
		if len(values) == 0 {
			return permanent{errors.Errorf("%s returned nothing", method)}
		}
		return nil
	})
	return values, err
}
