package scenario

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
	"stablePool/internal/pool"
	"stablePool/internal/registry"
)

// Op is one line of a scenario script. Only the fields of its kind are read.
// Addresses starting with '$' name an earlier create_token or create_pair
// alias; "$name.lp" is the share token of a pair alias.
type Op struct {
	Op          string `json:"op"`
	As          string `json:"as,omitempty"`
	Sender      string `json:"sender,omitempty"`
	Pool        string `json:"pool,omitempty"`
	Funds       []Coin `json:"funds,omitempty"`
	ExpectError string `json:"expect_error,omitempty"`

	Account string `json:"account,omitempty"`
	Coins   []Coin `json:"coins,omitempty"`

	Name     string            `json:"name,omitempty"`
	Symbol   string            `json:"symbol,omitempty"`
	Decimals uint8             `json:"decimals,omitempty"`
	Minter   string            `json:"minter,omitempty"`
	Cap      string            `json:"cap,omitempty"`
	Initial  map[string]string `json:"initial,omitempty"`

	Assets   []string `json:"assets,omitempty"`
	PairType string   `json:"pair_type,omitempty"`
	Amp      uint64   `json:"amp,omitempty"`

	Deposit           []Amount `json:"deposit,omitempty"`
	SlippageTolerance string   `json:"slippage_tolerance,omitempty"`
	MinShare          string   `json:"min_share,omitempty"`
	Receiver          string   `json:"receiver,omitempty"`

	Amount string `json:"amount,omitempty"`

	Offer       *Amount `json:"offer,omitempty"`
	BeliefPrice string  `json:"belief_price,omitempty"`
	MaxSpread   string  `json:"max_spread,omitempty"`
	To          string  `json:"to,omitempty"`

	StartChangingAmp *pool.StartChangingAmp `json:"start_changing_amp,omitempty"`
	StopChangingAmp  bool                   `json:"stop_changing_amp,omitempty"`

	PairConfig *registry.PairConfig `json:"pair_config,omitempty"`

	Token   string  `json:"token,omitempty"`
	Spender string  `json:"spender,omitempty"`
	Asset   *Amount `json:"asset,omitempty"`

	Seconds uint64 `json:"seconds,omitempty"`
	Blocks  uint64 `json:"blocks,omitempty"`

	Pairs []string `json:"pairs,omitempty"`
	TTL   uint64   `json:"ttl,omitempty"`
}

type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Amount is an asset written as "native:<denom>" or "token:<addr>" plus a base-10 amount.
type Amount struct {
	Info   string `json:"info"`
	Amount string `json:"amount"`
}

// aliases maps script names to derived addresses.
type aliases map[string]string

func (a aliases) resolve(s string) (string, error) {
	if !strings.HasPrefix(s, "$") {
		return s, nil
	}
	addr, ok := a[strings.TrimPrefix(s, "$")]
	if !ok {
		return "", errors.Wrapf(apperr.ErrInvalidMessage, "unknown alias %s", s)
	}
	return addr, nil
}

func (a aliases) info(s string) (asset.Info, error) {
	for _, prefix := range []string{"token:", "native:"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			addr, err := a.resolve(rest)
			if err != nil {
				return asset.Info{}, err
			}
			return asset.ParseInfo(prefix + addr)
		}
	}
	return asset.ParseInfo(s)
}

func (a aliases) asset(v Amount) (asset.Asset, error) {
	info, err := a.info(v.Info)
	if err != nil {
		return asset.Asset{}, err
	}
	amount, err := parseAmount(v.Amount)
	if err != nil {
		return asset.Asset{}, err
	}
	return asset.New(info, amount), nil
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := mathx.ParseAmount(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrapf(apperr.ErrInvalidMessage, "%v", err)
	}
	return v, nil
}

func optionalAmount(s string) (*uint256.Int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return parseAmount(s)
}

func optionalDecimal(s string) (*mathx.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := mathx.ParseDecimal(s)
	if err != nil {
		return nil, errors.Wrapf(apperr.ErrInvalidMessage, "%v", err)
	}
	return &d, nil
}

func coins(in []Coin) ([]asset.Coin, error) {
	out := make([]asset.Coin, 0, len(in))
	for _, c := range in {
		amount, err := parseAmount(c.Amount)
		if err != nil {
			return nil, err
		}
		out = append(out, asset.Coin{Denom: c.Denom, Amount: amount})
	}
	return out, nil
}
