/*
errors.go - Wallet error taxonomy

PURPOSE:
  Sentinel errors for errors.Is checks, plus structured errors carrying the
  figures a caller needs to build a useful response. Structured errors
  unwrap to their sentinel so both styles work.

SEE ALSO:
  - ledger.go: raises these from credit/debit paths
  - api: maps IsClientError results to 4xx status codes
*/
package wallet

import (
	"errors"
	"fmt"

	"github.com/skyfare/booking-engine/money"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrWalletNotFound is returned when a referenced wallet doesn't exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletExists is returned when creating a wallet the user already has.
	ErrWalletExists = errors.New("wallet already exists for user and kind")

	// ErrAmountMustBePositive is returned for zero or negative credit/debit requests.
	ErrAmountMustBePositive = errors.New("amount must be positive")

	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrWalletInactive is returned when debiting a wallet that was never
	// activated or has been deactivated.
	ErrWalletInactive = errors.New("wallet is not active")

	// ErrWalletExpired is returned when debiting past the expiry date.
	ErrWalletExpired = errors.New("wallet has expired")

	// ErrBalanceExceedsMaximum is returned when a credit would push the
	// balance over the wallet's cap.
	ErrBalanceExceedsMaximum = errors.New("credit would exceed maximum balance")

	// ErrExpiryRequired is returned when recharging an admin-issued wallet
	// without an expiry date.
	ErrExpiryRequired = errors.New("admin-issued recharge requires an expiry date")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports how far short the wallet fell.
type InsufficientBalanceError struct {
	WalletID  string
	Available money.Amount
	Requested money.Amount
	Shortfall money.Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on wallet %s: available %s, requested %s, shortfall %s",
		e.WalletID, e.Available, e.Requested, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// BalanceExceedsMaximumError reports a rejected credit against a capped wallet.
type BalanceExceedsMaximumError struct {
	WalletID string
	Balance  money.Amount
	Credit   money.Amount
	Maximum  money.Amount
}

func (e *BalanceExceedsMaximumError) Error() string {
	return fmt.Sprintf("credit of %s on wallet %s would exceed maximum %s (balance %s)",
		e.Credit, e.WalletID, e.Maximum, e.Balance)
}

func (e *BalanceExceedsMaximumError) Unwrap() error {
	return ErrBalanceExceedsMaximum
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAmountMustBePositive) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrWalletInactive) ||
		errors.Is(err, ErrWalletExpired) ||
		errors.Is(err, ErrBalanceExceedsMaximum) ||
		errors.Is(err, ErrWalletExists) ||
		errors.Is(err, ErrExpiryRequired)
}

// IsNotFound returns true if the error indicates a missing wallet.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound)
}
