package token

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
)

func newShareToken() *Ledger {
	return NewLedger(Info{
		Address:  "0x00000000000000000000000000000000000000cc",
		Name:     "UUSD-UUSD-LP",
		Symbol:   "uLP",
		Decimals: 6,
		Minter:   "pair",
		Cap:      uint256.NewInt(1_000),
	})
}

func TestMintRequiresMinterAndCap(t *testing.T) {
	l := newShareToken()
	if err := l.Mint("alice", "alice", uint256.NewInt(1)); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := l.Mint("pair", "alice", uint256.NewInt(600)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Mint("pair", "bob", uint256.NewInt(401)); !errors.Is(err, apperr.ErrMintCapExceeded) {
		t.Fatalf("expected cap error, got %v", err)
	}
	if l.TotalSupply().Uint64() != 600 || l.BalanceOf("bob").Sign() != 0 {
		t.Fatalf("failed mint changed state: supply %s", l.TotalSupply().Dec())
	}
}

func TestIssueRespectsCap(t *testing.T) {
	l := NewLedger(Info{Symbol: "BUSD", Cap: uint256.NewInt(100)})
	if err := l.Issue("alice", uint256.NewInt(100)); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := l.Issue("bob", uint256.NewInt(1)); !errors.Is(err, apperr.ErrMintCapExceeded) {
		t.Fatalf("expected cap error, got %v", err)
	}
	if err := l.Mint("", "bob", uint256.NewInt(1)); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("a token without minter cannot mint, got %v", err)
	}
}

func TestTransferFromUsesAllowance(t *testing.T) {
	l := newShareToken()
	if err := l.Mint("pair", "alice", uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.TransferFrom("pair", "alice", "pair", uint256.NewInt(10)); !errors.Is(err, apperr.ErrInsufficientAllowance) {
		t.Fatalf("expected allowance error, got %v", err)
	}
	if err := l.IncreaseAllowance("alice", "pair", uint256.NewInt(30)); err != nil {
		t.Fatalf("increase allowance: %v", err)
	}
	if err := l.TransferFrom("pair", "alice", "pair", uint256.NewInt(30)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if l.BalanceOf("pair").Uint64() != 30 || l.Allowance("alice", "pair").Sign() != 0 {
		t.Fatalf("unexpected balances after transfer from")
	}
	if err := l.Transfer("alice", "bob", uint256.NewInt(71)); !errors.Is(err, apperr.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := l.Transfer("alice", "bob", uint256.NewInt(0)); !errors.Is(err, apperr.ErrInvalidZeroAmount) {
		t.Fatalf("expected zero amount error, got %v", err)
	}
}

func TestLedgerSnapshotRestore(t *testing.T) {
	l := newShareToken()
	_ = l.Mint("pair", "alice", uint256.NewInt(100))
	snap := l.Snapshot()
	if err := l.Burn("alice", uint256.NewInt(40)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	l.Restore(snap)
	if l.BalanceOf("alice").Uint64() != 100 || l.TotalSupply().Uint64() != 100 {
		t.Fatalf("restore did not roll back the burn")
	}
}

func TestBankSendIsAtomic(t *testing.T) {
	b := NewBank()
	if err := b.Fund("alice", asset.Coin{Denom: "uusd", Amount: uint256.NewInt(100)}); err != nil {
		t.Fatalf("fund: %v", err)
	}
	err := b.Send("alice", "bob", []asset.Coin{
		{Denom: "uusd", Amount: uint256.NewInt(60)},
		{Denom: "uluna", Amount: uint256.NewInt(1)},
	})
	if !errors.Is(err, apperr.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if b.Balance("alice", "uusd").Uint64() != 100 || b.Balance("bob", "uusd").Sign() != 0 {
		t.Fatalf("partial send leaked")
	}
	if err := b.Send("alice", "bob", []asset.Coin{{Denom: "uusd", Amount: uint256.NewInt(60)}}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if b.Balance("bob", "uusd").Uint64() != 60 {
		t.Fatalf("unexpected bob balance %s", b.Balance("bob", "uusd").Dec())
	}
}
