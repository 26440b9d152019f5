package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies a failure so callers can tell caller-correctable guards from defects.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindUnauthorized
	KindSlippageExceeded
	KindMaxSpreadAssertion
	KindInsufficientFunds
	KindOverflow
	KindUnderflow
	KindConvergenceFailure
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindUnauthorized:
		return "unauthorized"
	case KindSlippageExceeded:
		return "slippage_exceeded"
	case KindMaxSpreadAssertion:
		return "max_spread_assertion"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindOverflow:
		return "overflow"
	case KindUnderflow:
		return "underflow"
	case KindConvergenceFailure:
		return "convergence_failure"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is a classified sentinel. Compare with errors.Is.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrDoublingAssets      = newError(KindConfiguration, "Doubling assets in asset infos")
	ErrIncorrectAmp        = newError(KindConfiguration, fmt.Sprintf("Amp coefficient must be greater than 0 and less than or equal to %d", 1_000_000))
	ErrMaxAmpChange        = newError(KindConfiguration, fmt.Sprintf("The difference between the old and new amp value must not exceed %d times", 10))
	ErrMinAmpChangingTime  = newError(KindConfiguration, fmt.Sprintf("Amp coefficient cannot be changed more often than once per %d seconds", 86_400))
	ErrInvalidFeeBps       = newError(KindConfiguration, "Fee bps in pair config must be smaller than or equal to 10,000")
	ErrPairConfigDuplicate = newError(KindConfiguration, "Duplicate of pair configs")
	ErrPairConfigNotFound  = newError(KindConfiguration, "Pair config not found")
	ErrPairConfigDisabled  = newError(KindConfiguration, "Pair config disabled")
	ErrPairWasCreated      = newError(KindConfiguration, "Pair was already created")
	ErrInvalidDecimals     = newError(KindConfiguration, "Asset decimals must not exceed 18")

	ErrUnauthorized = newError(KindUnauthorized, "Unauthorized")

	ErrMaxSlippage      = newError(KindSlippageExceeded, "Operation exceeds max slippage tolerance")
	ErrAllowedSpread    = newError(KindSlippageExceeded, "Slippage tolerance must be between 0 and 1")
	ErrMinShare         = newError(KindSlippageExceeded, "Minted share amount is below the requested minimum")
	ErrMaxSpread        = newError(KindMaxSpreadAssertion, "Operation exceeds max spread limit")
	ErrInvalidMaxSpread = newError(KindMaxSpreadAssertion, "Max spread must be between 0 and 1")

	ErrInsufficientFunds   = newError(KindInsufficientFunds, "Insufficient funds")
	ErrMinimumLiquidity    = newError(KindInsufficientFunds, "Initial liquidity must be more than the minimum liquidity amount")
	ErrZeroBalance         = newError(KindInsufficientFunds, "Invariant computation on a zero balance")
	ErrOverflow            = newError(KindOverflow, "Overflow")
	ErrDivideByZero        = newError(KindOverflow, "Divide by zero")
	ErrUnderflow           = newError(KindUnderflow, "Underflow")
	ErrConvergence         = newError(KindConvergenceFailure, "Invariant solver did not converge")
	ErrInvalidZeroAmount   = newError(KindInvalidInput, "Event of zero transfer")
	ErrAssetMismatch       = newError(KindInvalidInput, "Asset does not belong to the pool")
	ErrNativeFundsMismatch = newError(KindInvalidInput, "Native token balance mismatch between the argument and the transferred")
	ErrInvalidAsset        = newError(KindInvalidInput, "Invalid asset info")
	ErrPairDisabled        = newError(KindConfiguration, "Pair is disabled")

	ErrMintCapExceeded       = newError(KindOverflow, "Minting cannot exceed the cap")
	ErrInsufficientAllowance = newError(KindInsufficientFunds, "No allowance for this account")
	ErrUnknownToken          = newError(KindInvalidInput, "Unknown token contract")
	ErrUnknownPair           = newError(KindInvalidInput, "Unknown pair contract")
	ErrUnknownDispatch       = newError(KindInvalidInput, "No pending dispatch for reply id")
	ErrDispatchExpired       = newError(KindInvalidInput, "Pending dispatch expired before reply")
	ErrInvalidGovernance     = newError(KindConfiguration, "Governance percent must be between 0 and 100")
	ErrInvalidMessage        = newError(KindInvalidInput, "Invalid message")
)

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}
