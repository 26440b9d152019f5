package registry

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-faster/errors"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
)

// PairTypeStable is the pair type served by this engine.
const PairTypeStable = "stable"

const (
	maxFeeBps        = 10_000
	lpSymbolMaxChars = 4
)

// PairConfig holds per pair type fee settings.
type PairConfig struct {
	PairType    string `json:"pair_type" mapstructure:"pair-type"`
	TotalFeeBps uint64 `json:"total_fee_bps" mapstructure:"total-fee-bps"`
	MakerFeeBps uint64 `json:"maker_fee_bps" mapstructure:"maker-fee-bps"`
	Disabled    bool   `json:"is_disabled" mapstructure:"disabled"`
}

func (c PairConfig) validate() error {
	if c.TotalFeeBps > maxFeeBps || c.MakerFeeBps > maxFeeBps {
		return errors.Wrapf(apperr.ErrInvalidFeeBps, "pair type %s", c.PairType)
	}
	return nil
}

// PairInfo describes a created pair.
type PairInfo struct {
	AssetInfos     [2]asset.Info `json:"asset_infos"`
	ContractAddr   string        `json:"contract_addr"`
	LiquidityToken string        `json:"liquidity_token"`
	PairType       string        `json:"pair_type"`
}

// Registry is the factory: pair configs, created pairs, owner and fee address.
type Registry struct {
	owner      string
	feeAddress string
	configs    map[string]PairConfig
	pairs      map[string]PairInfo
}

// Snapshot is a deep copy of the registry's mutable state.
type Snapshot struct {
	FeeAddress string
	Configs    map[string]PairConfig
	Pairs      map[string]PairInfo
}

// New validates configs and returns a registry.
func New(owner, feeAddress string, configs []PairConfig) (*Registry, error) {
	r := &Registry{
		owner:      owner,
		feeAddress: feeAddress,
		configs:    make(map[string]PairConfig, len(configs)),
		pairs:      make(map[string]PairInfo),
	}
	for _, c := range configs {
		if err := c.validate(); err != nil {
			return nil, err
		}
		if _, ok := r.configs[c.PairType]; ok {
			return nil, errors.Wrapf(apperr.ErrPairConfigDuplicate, "pair type %s", c.PairType)
		}
		r.configs[c.PairType] = c
	}
	return r, nil
}

func (r *Registry) Owner() string {
	return r.owner
}

func (r *Registry) FeeAddress() string {
	return r.feeAddress
}

// FeeBpsFor returns the total and maker fee for a pair type.
func (r *Registry) FeeBpsFor(pairType string) (total, maker uint64, err error) {
	c, ok := r.configs[pairType]
	if !ok {
		return 0, 0, errors.Wrapf(apperr.ErrPairConfigNotFound, "pair type %s", pairType)
	}
	return c.TotalFeeBps, c.MakerFeeBps, nil
}

func (r *Registry) IsPairDisabled(pairType string) bool {
	c, ok := r.configs[pairType]
	return !ok || c.Disabled
}

// UpdatePairConfig replaces or adds a pair config. Owner only.
func (r *Registry) UpdatePairConfig(sender string, c PairConfig) error {
	if sender != r.owner {
		return apperr.ErrUnauthorized
	}
	if err := c.validate(); err != nil {
		return err
	}
	r.configs[c.PairType] = c
	return nil
}

// SetFeeAddress changes the maker fee recipient. Owner only.
func (r *Registry) SetFeeAddress(sender, feeAddress string) error {
	if sender != r.owner {
		return apperr.ErrUnauthorized
	}
	r.feeAddress = feeAddress
	return nil
}

// CreatePair registers a new pair and derives its pool and share token addresses.
func (r *Registry) CreatePair(assets [2]asset.Info, pairType string) (PairInfo, error) {
	for _, a := range assets {
		if err := a.Validate(); err != nil {
			return PairInfo{}, err
		}
	}
	if assets[0].Equal(assets[1]) {
		return PairInfo{}, apperr.ErrDoublingAssets
	}
	c, ok := r.configs[pairType]
	if !ok {
		return PairInfo{}, errors.Wrapf(apperr.ErrPairConfigNotFound, "pair type %s", pairType)
	}
	if c.Disabled {
		return PairInfo{}, errors.Wrapf(apperr.ErrPairConfigDisabled, "pair type %s", pairType)
	}
	key := pairKey(assets)
	if _, ok := r.pairs[key]; ok {
		return PairInfo{}, errors.Wrapf(apperr.ErrPairWasCreated, "pair %s", key)
	}

	contract := deriveAddress("pair", pairType, key)
	info := PairInfo{
		AssetInfos:     assets,
		ContractAddr:   contract,
		LiquidityToken: deriveAddress("liquidity_token", contract),
		PairType:       pairType,
	}
	r.pairs[key] = info
	return info, nil
}

// Pair looks up a pair by its assets in either order.
func (r *Registry) Pair(assets [2]asset.Info) (PairInfo, bool) {
	info, ok := r.pairs[pairKey(assets)]
	return info, ok
}

// Pairs returns all created pairs ordered by contract address.
func (r *Registry) Pairs() []PairInfo {
	out := make([]PairInfo, 0, len(r.pairs))
	for _, p := range r.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContractAddr < out[j].ContractAddr })
	return out
}

func (r *Registry) Snapshot() Snapshot {
	s := Snapshot{
		FeeAddress: r.feeAddress,
		Configs:    make(map[string]PairConfig, len(r.configs)),
		Pairs:      make(map[string]PairInfo, len(r.pairs)),
	}
	for k, v := range r.configs {
		s.Configs[k] = v
	}
	for k, v := range r.pairs {
		s.Pairs[k] = v
	}
	return s
}

func (r *Registry) Restore(s Snapshot) {
	r.feeAddress = s.FeeAddress
	r.configs = make(map[string]PairConfig, len(s.Configs))
	for k, v := range s.Configs {
		r.configs[k] = v
	}
	r.pairs = make(map[string]PairInfo, len(s.Pairs))
	for k, v := range s.Pairs {
		r.pairs[k] = v
	}
}

// LPTokenName formats the share token name from both asset symbols, e.g. "UUSD-ULUN-LP".
func LPTokenName(symbols [2]string) string {
	short := make([]string, 0, len(symbols))
	for _, s := range symbols {
		runes := []rune(s)
		if len(runes) > lpSymbolMaxChars {
			runes = runes[:lpSymbolMaxChars]
		}
		short = append(short, string(runes))
	}
	return strings.ToUpper(short[0] + "-" + short[1] + "-LP")
}

func pairKey(assets [2]asset.Info) string {
	keys := []string{assets[0].Key(), assets[1].Key()}
	sort.Strings(keys)
	return keys[0] + "|" + keys[1]
}

func deriveAddress(parts ...string) string {
	hash := crypto.Keccak256([]byte(strings.Join(parts, "/")))
	return strings.ToLower(common.BytesToAddress(hash).Hex())
}
