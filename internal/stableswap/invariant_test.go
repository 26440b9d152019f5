package stableswap

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/mathx"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestComputeDBalancedPool(t *testing.T) {
	cases := []struct {
		x0, x1 uint64
		want   uint64
	}{
		{100, 100, 200},
		{200, 200, 400},
		{0, 0, 0},
		{4_000_000_000000, 2_000_000_000000, 5_998_136_062_245},
	}
	for _, tc := range cases {
		got, err := ComputeD(100, u(tc.x0), u(tc.x1))
		if err != nil {
			t.Fatalf("compute d(%d, %d): %v", tc.x0, tc.x1, err)
		}
		if got.Uint64() != tc.want {
			t.Fatalf("compute d(%d, %d): got %s want %d", tc.x0, tc.x1, got.Dec(), tc.want)
		}
	}
}

func TestComputeDSymmetric(t *testing.T) {
	a, err := ComputeD(85, u(1_000_000), u(1_000_000_000_000))
	if err != nil {
		t.Fatalf("compute d: %v", err)
	}
	b, err := ComputeD(85, u(1_000_000_000_000), u(1_000_000))
	if err != nil {
		t.Fatalf("compute d: %v", err)
	}
	if !a.Eq(b) {
		t.Fatalf("d must not depend on order: %s vs %s", a.Dec(), b.Dec())
	}
}

func TestComputeDExtremeRatioConverges(t *testing.T) {
	got, err := ComputeD(100, u(1_000_000), u(1_000_000_000_000_000_000))
	if err != nil {
		t.Fatalf("compute d: %v", err)
	}
	if got.Uint64() != 1_169_152_241_706_659 {
		t.Fatalf("unexpected d: %s", got.Dec())
	}
}

func TestComputeDZeroBalance(t *testing.T) {
	_, err := ComputeD(100, u(0), u(10))
	if !errors.Is(err, apperr.ErrZeroBalance) {
		t.Fatalf("expected zero balance error, got %v", err)
	}
	if _, err := ComputeD(0, u(10), u(10)); !errors.Is(err, apperr.ErrIncorrectAmp) {
		t.Fatalf("expected amp error, got %v", err)
	}
}

func TestComputeYZeroInput(t *testing.T) {
	if _, err := ComputeY(100, u(0), u(10)); !errors.Is(err, apperr.ErrZeroBalance) {
		t.Fatalf("expected zero balance error, got %v", err)
	}
	if _, err := ComputeY(100, u(10), u(0)); !errors.Is(err, apperr.ErrZeroBalance) {
		t.Fatalf("expected zero balance error, got %v", err)
	}
}

func TestSwapKeepsInvariant(t *testing.T) {
	pool := u(1_000_000_000000)
	offer := u(1_000_000000)
	ask, err := AskAmount(100, pool, pool, offer)
	if err != nil {
		t.Fatalf("ask amount: %v", err)
	}
	if ask.Uint64() != 999_995_025 {
		t.Fatalf("unexpected ask amount: %s", ask.Dec())
	}

	before, _ := ComputeD(100, pool, pool)
	after, err := ComputeD(100, new(uint256.Int).Add(pool, offer), new(uint256.Int).Sub(pool, ask))
	if err != nil {
		t.Fatalf("compute d after: %v", err)
	}
	if mathx.AbsDiff(before, after).Uint64() > 1 {
		t.Fatalf("invariant moved: %s -> %s", before.Dec(), after.Dec())
	}

	back, err := OfferAmount(100, pool, pool, ask)
	if err != nil {
		t.Fatalf("offer amount: %v", err)
	}
	if !back.Eq(offer) {
		t.Fatalf("reverse simulation mismatch: %s", back.Dec())
	}
}

func TestAskAmountNormalizedPrecision(t *testing.T) {
	// 5-decimal and 7-decimal assets normalized to 7 decimals.
	x, _ := mathx.Scale(u(100_000_000000), 5, 7)
	y := u(10_000_000_000000)
	offer, _ := mathx.Scale(u(100_000), 5, 7)
	got, err := AskAmount(100, x, y, offer)
	if err != nil {
		t.Fatalf("ask amount: %v", err)
	}
	if got.Uint64() != 10_000_000 {
		t.Fatalf("unexpected return: %s", got.Dec())
	}
}

func TestOfferAmountExceedsPool(t *testing.T) {
	_, err := OfferAmount(100, u(1000), u(1000), u(1000))
	if !errors.Is(err, apperr.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestMarginalPrice(t *testing.T) {
	x := u(4_000_000_000000)
	y := u(2_000_000_000000)
	scale := mathx.Pow10(6)
	p0, err := MarginalPrice(100, x, y, scale)
	if err != nil {
		t.Fatalf("price0: %v", err)
	}
	p1, err := MarginalPrice(100, y, x, scale)
	if err != nil {
		t.Fatalf("price1: %v", err)
	}
	if p0.Uint64() != 995_820 || p1.Uint64() != 1_004_197 {
		t.Fatalf("unexpected prices: %s %s", p0.Dec(), p1.Dec())
	}

	even, err := MarginalPrice(100, u(500), u(500), scale)
	if err != nil {
		t.Fatalf("even price: %v", err)
	}
	if even.Uint64() != 1_000_000 {
		t.Fatalf("balanced pool must price at par, got %s", even.Dec())
	}
}

func TestComputeYImbalancedStartsAboveRoot(t *testing.T) {
	x1, _ := uint256.FromDecimal("1000000000000000000000000000000")
	d, err := ComputeD(1, u(1), x1)
	if err != nil {
		t.Fatalf("compute d: %v", err)
	}
	if d.Dec() != "251984209963100622433" {
		t.Fatalf("unexpected d %s", d.Dec())
	}
	y, err := ComputeY(1, u(1), d)
	if err != nil {
		t.Fatalf("compute y: %v", err)
	}
	if y.Dec() != "999999999999999999995475152738" {
		t.Fatalf("unexpected y %s", y.Dec())
	}
}

func TestSolverReportsConvergenceFailure(t *testing.T) {
	iterationLimit = 1
	t.Cleanup(func() { iterationLimit = MaxIterations })

	_, err := ComputeD(100, u(4_000_000_000000), u(2_000_000_000000))
	if !errors.Is(err, apperr.ErrConvergence) || apperr.KindOf(err) != apperr.KindConvergenceFailure {
		t.Fatalf("compute d: expected convergence failure, got %v", err)
	}
	_, err = ComputeY(100, u(3_000_000_000000), u(5_998_136_062_245))
	if !errors.Is(err, apperr.ErrConvergence) || apperr.KindOf(err) != apperr.KindConvergenceFailure {
		t.Fatalf("compute y: expected convergence failure, got %v", err)
	}
}
