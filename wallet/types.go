/*
Package wallet implements user wallets backed by an append-only transaction log.

PURPOSE:
  Two wallet kinds exist per user:

    AdminIssuedWallet - credit issued by an operator, expiring. Activated by
                        the first recharge, which also snapshots the initial
                        balance used later by expiry clawback.
    SelfFundedWallet  - topped up by the user, never expires, optionally
                        capped at a maximum balance.

  Every balance change appends one Transaction. The ledger is the audit
  trail: the stored balance must always equal the sum of the wallet's
  transaction amounts, and AuditLedger verifies exactly that.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: transactions are never updated or deleted.
  2. SIGNED AMOUNTS: credits are positive, debits negative.
  3. BALANCE = SUM: wallet.Balance == sum of its transaction amounts.
  4. SERIALIZED: all mutations of one wallet run under its keyed lock.

SEE ALSO:
  - ledger.go: credit/debit/expiry operations
  - expiry.go: periodic sweep over expired admin-issued wallets
  - store/sqlite: persistence with transactional WithTx
*/
package wallet

import (
	"context"
	"time"

	"github.com/skyfare/booking-engine/money"
)

// =============================================================================
// WALLET KINDS
// =============================================================================

// Kind distinguishes operator-issued credit from user-funded balance.
type Kind string

const (
	KindAdminIssued Kind = "ADMIN_ISSUED"
	KindSelfFunded  Kind = "SELF_FUNDED"
)

func (k Kind) Valid() bool {
	return k == KindAdminIssued || k == KindSelfFunded
}

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

// TxType classifies a ledger entry.
type TxType string

const (
	// TxRecharge is a credit issued to the wallet (admin grant or user top-up).
	TxRecharge TxType = "RECHARGE"
	// TxPayment is a debit covering a booking.
	TxPayment TxType = "PAYMENT"
	// TxRefund is a credit returning funds after a cancellation.
	TxRefund TxType = "REFUND"
	// TxAdjustment is an operator correction, including expiry clawback.
	TxAdjustment TxType = "ADJUSTMENT"
)

// =============================================================================
// CORE TYPES
// =============================================================================

// Wallet is the mutable head of one user's ledger for a given kind.
type Wallet struct {
	ID             string
	UserID         string
	Kind           Kind
	Balance        money.Amount
	InitialBalance money.Amount // snapshot taken on first recharge, drives expiry clawback
	MaxBalance     money.Amount // zero = uncapped
	IsActive       bool
	ExpiresAt      *time.Time // admin-issued only
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the wallet's credit window has closed.
func (w *Wallet) Expired(now time.Time) bool {
	return w.ExpiresAt != nil && !w.ExpiresAt.After(now)
}

// Transaction is one immutable ledger entry. Amount carries the sign:
// positive for credits, negative for debits. BalanceAfter records the
// wallet balance at commit time, so the ledger replays without joins.
type Transaction struct {
	ID           string
	WalletID     string
	Type         TxType
	Amount       money.Amount
	BalanceAfter money.Amount
	BookingRef   string // set for PAYMENT and REFUND entries
	Description  string
	CreatedAt    time.Time
}

// =============================================================================
// STORE - Persistence interface
// =============================================================================

// Store persists wallets and their transaction log. AppendTransaction is the
// only write path into the log; there is no update or delete.
type Store interface {
	GetWallet(ctx context.Context, id string) (*Wallet, error)
	GetWalletByUser(ctx context.Context, userID string, kind Kind) (*Wallet, error)
	CreateWallet(ctx context.Context, w Wallet) error
	UpdateWallet(ctx context.Context, w Wallet) error
	AppendTransaction(ctx context.Context, tx Transaction) error
	Transactions(ctx context.Context, walletID string) ([]Transaction, error)

	// ExpiredActiveWallets returns admin-issued wallets whose expiry has
	// passed and which are still active. Used by the reconciler sweep.
	ExpiredActiveWallets(ctx context.Context, now time.Time) ([]Wallet, error)
}

// TxStore extends Store with an atomic scope. The wallet update and its
// ledger entry must land together or not at all.
type TxStore interface {
	Store

	// WithTx runs fn against a Store view bound to one database
	// transaction. fn returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
