package pool

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/amp"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
	"stablePool/internal/model"
	"stablePool/internal/twap"
)

// Snapshot converts the pool record into its persisted form.
func (s State) Snapshot(env Env) model.PoolSnapshot {
	return model.PoolSnapshot{
		Address:          s.Address,
		ShareToken:       s.ShareToken,
		PairType:         s.PairType,
		Assets:           [2]string{s.Assets[0].Key(), s.Assets[1].Key()},
		Decimals:         s.Decimals,
		Balances:         [2]string{mathx.OrZero(s.Balances[0]).Dec(), mathx.OrZero(s.Balances[1]).Dec()},
		ShareSupply:      mathx.OrZero(s.ShareSupply).Dec(),
		MinimumLiquidity: mathx.OrZero(s.MinimumLiquidity).Dec(),
		InitialAmp:       s.Ramp.InitialAmp,
		InitialAmpTime:   s.Ramp.InitialAmpTime,
		NextAmp:          s.Ramp.NextAmp,
		NextAmpTime:      s.Ramp.NextAmpTime,
		Price0Cumulative: mathx.OrZero(s.Accumulator.Price0Cumulative).Dec(),
		Price1Cumulative: mathx.OrZero(s.Accumulator.Price1Cumulative).Dec(),
		LastUpdate:       s.Accumulator.LastUpdate,
		Height:           env.Height,
		Timestamp:        env.Time,
	}
}

// StateFromSnapshot rebuilds a pool record from its persisted form.
func StateFromSnapshot(snap model.PoolSnapshot) (State, error) {
	var s State
	for i, key := range snap.Assets {
		info, err := asset.ParseInfo(key)
		if err != nil {
			return State{}, errors.Wrapf(err, "snapshot asset %d", i)
		}
		s.Assets[i] = info
	}
	for i, d := range snap.Decimals {
		if d > mathx.MaxDecimals {
			return State{}, errors.Errorf("snapshot asset %d: decimals %d out of range", i, d)
		}
	}
	s.Decimals = snap.Decimals

	var err error
	for i, b := range snap.Balances {
		if s.Balances[i], err = mathx.ParseAmount(b); err != nil {
			return State{}, errors.Wrapf(err, "snapshot balance %d", i)
		}
	}
	if s.ShareSupply, err = mathx.ParseAmount(snap.ShareSupply); err != nil {
		return State{}, errors.Wrap(err, "snapshot share supply")
	}
	if s.MinimumLiquidity, err = mathx.ParseAmount(snap.MinimumLiquidity); err != nil {
		return State{}, errors.Wrap(err, "snapshot minimum liquidity")
	}
	acc := twap.New(snap.LastUpdate)
	if acc.Price0Cumulative, err = parseCumulative(snap.Price0Cumulative); err != nil {
		return State{}, errors.Wrap(err, "snapshot price0 cumulative")
	}
	if acc.Price1Cumulative, err = parseCumulative(snap.Price1Cumulative); err != nil {
		return State{}, errors.Wrap(err, "snapshot price1 cumulative")
	}
	s.Accumulator = acc
	s.Ramp = amp.Ramp{
		InitialAmp:     snap.InitialAmp,
		InitialAmpTime: snap.InitialAmpTime,
		NextAmp:        snap.NextAmp,
		NextAmpTime:    snap.NextAmpTime,
	}
	if s.Ramp.InitialAmp == 0 || s.Ramp.NextAmp == 0 || s.Ramp.InitialAmp > amp.MaxAmp || s.Ramp.NextAmp > amp.MaxAmp {
		return State{}, errors.Errorf("snapshot amp %d -> %d out of range", s.Ramp.InitialAmp, s.Ramp.NextAmp)
	}
	s.Address = snap.Address
	s.ShareToken = snap.ShareToken
	s.PairType = snap.PairType
	return s, nil
}

// Load creates a pool from a persisted record.
func Load(snap model.PoolSnapshot, deps Deps) (*Pool, error) {
	state, err := StateFromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	p, err := New(Env{Time: snap.LastUpdate}, Config{
		Assets:     state.Assets,
		Decimals:   state.Decimals,
		Amp:        state.Ramp.NextAmp,
		Address:    state.Address,
		ShareToken: state.ShareToken,
		PairType:   state.PairType,
	}, deps)
	if err != nil {
		return nil, err
	}
	p.Restore(state)
	return p, nil
}

func parseCumulative(input string) (*uint256.Int, error) {
	if input == "" {
		return mathx.Zero(), nil
	}
	return uint256.FromDecimal(input)
}
