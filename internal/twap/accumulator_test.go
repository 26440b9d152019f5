package twap

import (
	"testing"

	"github.com/holiman/uint256"

	"stablePool/internal/mathx"
	"stablePool/internal/stableswap"
)

func poolPrices(t *testing.T, x, y *uint256.Int) PriceFunc {
	t.Helper()
	return func() (Prices, error) {
		scale := mathx.Pow10(6)
		p0, err := stableswap.MarginalPrice(100, x, y, scale)
		if err != nil {
			return Prices{}, err
		}
		p1, err := stableswap.MarginalPrice(100, y, x, scale)
		if err != nil {
			return Prices{}, err
		}
		return Prices{Price0: p0, Price1: p1}, nil
	}
}

func TestAccumulateIdlePool(t *testing.T) {
	start := uint64(1_000)
	acc := New(start)
	prices := poolPrices(t, uint256.NewInt(4_000_000_000000), uint256.NewInt(2_000_000_000000))
	supply := uint256.NewInt(1)

	if err := acc.Accumulate(start+86_400, supply, prices); err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	if acc.Price0Cumulative.Uint64() != 86_038_848_000 {
		t.Fatalf("unexpected price0 cumulative: %s", acc.Price0Cumulative.Dec())
	}
	if acc.Price1Cumulative.Uint64() != 86_762_620_800 {
		t.Fatalf("unexpected price1 cumulative: %s", acc.Price1Cumulative.Dec())
	}
	if acc.LastUpdate != start+86_400 {
		t.Fatalf("unexpected last update: %d", acc.LastUpdate)
	}
}

func TestAccumulateAdditive(t *testing.T) {
	prices := poolPrices(t, uint256.NewInt(4_000_000_000000), uint256.NewInt(2_000_000_000000))
	supply := uint256.NewInt(1)

	whole := New(0)
	if err := whole.Accumulate(600, supply, prices); err != nil {
		t.Fatalf("accumulate whole: %v", err)
	}
	split := New(0)
	for _, now := range []uint64{100, 250, 250, 600} {
		if err := split.Accumulate(now, supply, prices); err != nil {
			t.Fatalf("accumulate split: %v", err)
		}
	}
	if !whole.Price0Cumulative.Eq(split.Price0Cumulative) || !whole.Price1Cumulative.Eq(split.Price1Cumulative) {
		t.Fatalf("roll-forward must be additive: %s/%s vs %s/%s",
			whole.Price0Cumulative.Dec(), whole.Price1Cumulative.Dec(),
			split.Price0Cumulative.Dec(), split.Price1Cumulative.Dec())
	}
}

func TestAccumulateEmptyPool(t *testing.T) {
	calls := 0
	acc := New(10)
	err := acc.Accumulate(500, mathx.Zero(), func() (Prices, error) {
		calls++
		return Prices{}, nil
	})
	if err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	if calls != 0 {
		t.Fatalf("prices must not be evaluated without liquidity")
	}
	if !acc.Price0Cumulative.IsZero() || acc.LastUpdate != 500 {
		t.Fatalf("unexpected accumulator: %+v", acc)
	}
}

func TestProjectDoesNotPersist(t *testing.T) {
	prices := poolPrices(t, uint256.NewInt(1_000_000), uint256.NewInt(1_000_000))
	acc := New(0)
	projected, err := acc.Project(100, uint256.NewInt(1), prices)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if projected.Price0Cumulative.Uint64() != 100_000_000 {
		t.Fatalf("unexpected projection: %s", projected.Price0Cumulative.Dec())
	}
	if !acc.Price0Cumulative.IsZero() || acc.LastUpdate != 0 {
		t.Fatalf("projection mutated the accumulator: %+v", acc)
	}
}

func TestAccumulateOverflowFails(t *testing.T) {
	acc := New(0)
	acc.Price0Cumulative = new(uint256.Int).SetAllOne()
	err := acc.Accumulate(1, uint256.NewInt(1), func() (Prices, error) {
		return Prices{Price0: uint256.NewInt(1), Price1: uint256.NewInt(1)}, nil
	})
	if err == nil {
		t.Fatalf("expected overflow")
	}
	if acc.LastUpdate != 0 {
		t.Fatalf("failed roll-forward must not move last update")
	}
}
