package pool

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/amp"
	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
	"stablePool/internal/stableswap"
)

type PairResponse struct {
	AssetInfos     [2]asset.Info `json:"asset_infos"`
	Decimals       [2]uint8      `json:"decimals"`
	ContractAddr   string        `json:"contract_addr"`
	LiquidityToken string        `json:"liquidity_token"`
	PairType       string        `json:"pair_type"`
}

type PoolResponse struct {
	Assets     [2]asset.Asset `json:"assets"`
	TotalShare *uint256.Int   `json:"total_share"`
}

type ConfigResponse struct {
	Amp        uint64     `json:"amp"`
	Status     amp.Status `json:"status"`
	Ramp       amp.Ramp   `json:"ramp"`
	LastUpdate uint64     `json:"block_time_last"`
}

type CumulativePricesResponse struct {
	Assets           [2]asset.Asset `json:"assets"`
	TotalShare       *uint256.Int   `json:"total_share"`
	Price0Cumulative *uint256.Int   `json:"price0_cumulative_last"`
	Price1Cumulative *uint256.Int   `json:"price1_cumulative_last"`
	LastUpdate       uint64         `json:"block_time_last"`
}

type SimulationResponse struct {
	ReturnAmount     *uint256.Int `json:"return_amount"`
	SpreadAmount     *uint256.Int `json:"spread_amount"`
	CommissionAmount *uint256.Int `json:"commission_amount"`
}

type ReverseSimulationResponse struct {
	OfferAmount      *uint256.Int `json:"offer_amount"`
	SpreadAmount     *uint256.Int `json:"spread_amount"`
	CommissionAmount *uint256.Int `json:"commission_amount"`
}

func (p *Pool) Pair() PairResponse {
	return PairResponse{
		AssetInfos:     p.state.Assets,
		Decimals:       p.state.Decimals,
		ContractAddr:   p.state.Address,
		LiquidityToken: p.state.ShareToken,
		PairType:       p.state.PairType,
	}
}

func (p *Pool) PoolInfo() PoolResponse {
	return PoolResponse{Assets: p.state.poolAssets(), TotalShare: p.state.ShareSupply.Clone()}
}

func (p *Pool) CurrentConfig(now uint64) ConfigResponse {
	return ConfigResponse{
		Amp:        p.state.Ramp.Effective(now),
		Status:     p.state.Ramp.Status(now),
		Ramp:       p.state.Ramp,
		LastUpdate: p.state.Accumulator.LastUpdate,
	}
}

// CumulativePrices reports the accumulators projected to now without
// persisting the roll-forward.
func (p *Pool) CumulativePrices(now uint64) (CumulativePricesResponse, error) {
	projected, err := p.state.Accumulator.Project(now, p.state.ShareSupply, p.state.prices(now))
	if err != nil {
		return CumulativePricesResponse{}, err
	}
	return CumulativePricesResponse{
		Assets:           p.state.poolAssets(),
		TotalShare:       p.state.ShareSupply.Clone(),
		Price0Cumulative: projected.Price0Cumulative,
		Price1Cumulative: projected.Price1Cumulative,
		LastUpdate:       projected.LastUpdate,
	}, nil
}

// Simulation quotes a swap of offer at time now.
func (p *Pool) Simulation(now uint64, offer asset.Asset) (SimulationResponse, error) {
	totalFeeBps, _, err := p.registry.FeeBpsFor(p.state.PairType)
	if err != nil {
		return SimulationResponse{}, err
	}
	result, err := p.state.simulateSwap(now, offer, totalFeeBps)
	if err != nil {
		return SimulationResponse{}, err
	}
	return SimulationResponse{
		ReturnAmount:     result.payout,
		SpreadAmount:     result.spread,
		CommissionAmount: result.commission,
	}, nil
}

// ReverseSimulation quotes the offer needed for ask to be paid out after fees.
func (p *Pool) ReverseSimulation(now uint64, ask asset.Asset) (ReverseSimulationResponse, error) {
	totalFeeBps, _, err := p.registry.FeeBpsFor(p.state.PairType)
	if err != nil {
		return ReverseSimulationResponse{}, err
	}
	s := p.state
	askIndex, err := s.indexOf(ask.Info)
	if err != nil {
		return ReverseSimulationResponse{}, err
	}
	offerIndex := 1 - askIndex
	amount := mathx.OrZero(ask.Amount)
	if amount.IsZero() {
		return ReverseSimulationResponse{}, errors.Wrap(apperr.ErrInvalidZeroAmount, "reverse simulation")
	}
	if totalFeeBps >= bpsDenominator {
		return ReverseSimulationResponse{}, errors.Wrap(apperr.ErrDivideByZero, "reverse simulation with full commission")
	}

	beforeCommission, err := mathx.MulRatio(amount, uint256.NewInt(bpsDenominator), uint256.NewInt(bpsDenominator-totalFeeBps))
	if err != nil {
		return ReverseSimulationResponse{}, err
	}
	xp, err := s.normalizedBalances()
	if err != nil {
		return ReverseSimulationResponse{}, err
	}
	askN, err := s.normalize(askIndex, beforeCommission)
	if err != nil {
		return ReverseSimulationResponse{}, err
	}
	offerN, err := stableswap.OfferAmount(s.Ramp.Effective(now), xp[offerIndex], xp[askIndex], askN)
	if err != nil {
		return ReverseSimulationResponse{}, errors.Wrap(err, "reverse simulation")
	}
	offer, err := s.denormalize(offerIndex, offerN)
	if err != nil {
		return ReverseSimulationResponse{}, err
	}
	offerInAsk, err := mathx.Scale(offer, s.Decimals[offerIndex], s.Decimals[askIndex])
	if err != nil {
		return ReverseSimulationResponse{}, err
	}
	return ReverseSimulationResponse{
		OfferAmount:      offer,
		SpreadAmount:     mathx.SaturatingSub(offerInAsk, beforeCommission),
		CommissionAmount: new(uint256.Int).Sub(beforeCommission, amount),
	}, nil
}

// Share returns the assets redeemable for amount shares.
func (p *Pool) Share(amount *uint256.Int) ([2]asset.Asset, error) {
	return p.state.shareOf(mathx.OrZero(amount))
}
