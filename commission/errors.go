package commission

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when the principal is zero or negative.
	ErrInvalidAmount = errors.New("investment amount must be positive")

	// ErrInvalidCommitment is returned when the commitment is not between 1
	// and MaxCommitmentMonths.
	ErrInvalidCommitment = errors.New("commitment months must be between 1 and 600")

	// ErrUnknownLiquidity is returned for a liquidity outside the supported set.
	ErrUnknownLiquidity = errors.New("unknown liquidity")

	// ErrInvalidPayoutStart is returned when the investor waiting period is
	// negative or longer than MaxPayoutStartDays.
	ErrInvalidPayoutStart = errors.New("payout start days must be between 0 and 18250")

	// ErrMissingDepositDate is returned when the deposit date is the zero Date.
	ErrMissingDepositDate = errors.New("deposit date is required")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InputError ties a structural input problem to the investment and field.
type InputError struct {
	InvestmentID string
	Field        string
	Value        any
	Err          error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("investment %s: %s=%v: %v", e.InvestmentID, e.Field, e.Value, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// IsClientError returns true if the error comes from invalid input rather
// than from the engine.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidCommitment) ||
		errors.Is(err, ErrUnknownLiquidity) ||
		errors.Is(err, ErrInvalidPayoutStart) ||
		errors.Is(err, ErrMissingDepositDate)
}
