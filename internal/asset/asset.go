package asset

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/mathx"
)

const (
	prefixNative = "native:"
	prefixToken  = "token:"
)

// Info identifies an asset: a native denom or a token contract address.
// Exactly one field is set.
type Info struct {
	Denom        string `json:"denom,omitempty"`
	ContractAddr string `json:"contract_addr,omitempty"`
}

func Native(denom string) Info {
	return Info{Denom: denom}
}

func Token(contractAddr string) Info {
	return Info{ContractAddr: contractAddr}
}

// ParseInfo parses "native:<denom>" or "token:<address>".
func ParseInfo(input string) (Info, error) {
	input = strings.TrimSpace(input)
	var info Info
	switch {
	case strings.HasPrefix(input, prefixNative):
		info = Native(strings.TrimPrefix(input, prefixNative))
	case strings.HasPrefix(input, prefixToken):
		info = Token(strings.TrimPrefix(input, prefixToken))
	default:
		return Info{}, errors.Wrapf(apperr.ErrInvalidAsset, "asset %q", input)
	}
	if err := info.Validate(); err != nil {
		return Info{}, err
	}
	return info, nil
}

func (i Info) IsNative() bool {
	return i.Denom != ""
}

// Key is the canonical string form accepted by ParseInfo.
func (i Info) Key() string {
	if i.IsNative() {
		return prefixNative + i.Denom
	}
	return prefixToken + i.ContractAddr
}

func (i Info) String() string {
	if i.IsNative() {
		return i.Denom
	}
	return i.ContractAddr
}

func (i Info) Equal(o Info) bool {
	return i.Denom == o.Denom && i.ContractAddr == o.ContractAddr
}

// Validate requires lowercase denoms and lowercase hex contract addresses.
func (i Info) Validate() error {
	switch {
	case i.Denom != "" && i.ContractAddr != "":
		return errors.Wrapf(apperr.ErrInvalidAsset, "asset %q has both denom and contract address", i.Denom)
	case i.Denom != "":
		if i.Denom != strings.ToLower(i.Denom) {
			return errors.Wrapf(apperr.ErrInvalidAsset, "native token denom %s should be lowercase", i.Denom)
		}
	case i.ContractAddr != "":
		return ValidateAddress(i.ContractAddr)
	default:
		return errors.Wrap(apperr.ErrInvalidAsset, "empty asset info")
	}
	return nil
}

// ValidateAddress checks that addr is a lowercase 0x-prefixed hex address.
func ValidateAddress(addr string) error {
	if addr != strings.ToLower(addr) {
		return errors.Wrapf(apperr.ErrInvalidAsset, "address %s should be lowercase", addr)
	}
	if !strings.HasPrefix(addr, "0x") || !common.IsHexAddress(addr) {
		return errors.Wrapf(apperr.ErrInvalidAsset, "address %s is not a hex address", addr)
	}
	return nil
}

// Asset is an amount of one asset.
type Asset struct {
	Info   Info         `json:"info"`
	Amount *uint256.Int `json:"amount"`
}

func New(info Info, amount *uint256.Int) Asset {
	return Asset{Info: info, Amount: mathx.OrZero(amount).Clone()}
}

func (a Asset) String() string {
	return fmt.Sprintf("%s%s", mathx.OrZero(a.Amount).Dec(), a.Info)
}

// Coin is a native amount attached to a call.
type Coin struct {
	Denom  string       `json:"denom"`
	Amount *uint256.Int `json:"amount"`
}

// AssertSentNativeFunds checks that a native asset's declared amount equals
// what was attached to the call. Token assets always pass.
func (a Asset) AssertSentNativeFunds(funds []Coin) error {
	if !a.Info.IsNative() {
		return nil
	}
	amount := mathx.OrZero(a.Amount)
	for _, coin := range funds {
		if coin.Denom != a.Info.Denom {
			continue
		}
		if amount.Eq(mathx.OrZero(coin.Amount)) {
			return nil
		}
		return errors.Wrapf(apperr.ErrNativeFundsMismatch, "%s declared, %s sent", amount.Dec(), mathx.OrZero(coin.Amount).Dec())
	}
	if amount.IsZero() {
		return nil
	}
	return errors.Wrapf(apperr.ErrNativeFundsMismatch, "%s declared, none sent", amount.Dec())
}
