/*
ledger.go - Credit, debit, and expiry over the wallet ledger

PURPOSE:
  Service is the only writer into wallet state. Every mutation:

    1. Takes the wallet's keyed lock (serializes concurrent callers).
    2. Runs inside one store transaction via WithTx.
    3. Updates the stored balance AND appends exactly one ledger entry.

  Step 3 is the core invariant: balance and ledger move together or not
  at all, so the stored balance always equals the sum of the wallet's
  transaction amounts.

DEBIT GATES:
  A debit requires, in order: positive amount, wallet active, not past
  expiry, and sufficient balance. Credits are gated only on positive
  amount and, for capped wallets, the maximum balance. The cap binds every
  credit type; the expiry clawback is the single write allowed to leave
  the balance outside it.

EXPIRY CLAWBACK:
  When an admin-issued wallet passes its expiry with credit remaining,
  ProcessExpiry appends one ADJUSTMENT of -InitialBalance and deactivates
  the wallet. The resulting balance is the negative of what was spent,
  which is what the operator settles against the carrier. A wallet that
  spent everything is only deactivated. Already-inactive wallets are a
  no-op, so the sweep is idempotent.

SEE ALSO:
  - expiry.go: Reconciler that sweeps expired wallets
  - payment: debits and refunds through this service
*/
package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skyfare/booking-engine/events"
	"github.com/skyfare/booking-engine/money"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service owns all wallet mutations.
type Service struct {
	store  TxStore
	locks  *keyedMutex
	events events.Publisher
	now    func() time.Time
}

func NewService(store TxStore, bus events.Publisher) *Service {
	return &Service{
		store:  store,
		locks:  newKeyedMutex(),
		events: bus,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) publish(event any) {
	if s.events != nil {
		s.events.Publish(event)
	}
}

// =============================================================================
// WALLET LIFECYCLE
// =============================================================================

// Create opens a wallet for a user. Admin-issued wallets start inactive and
// are activated by their first recharge; self-funded wallets are active
// immediately. maxBalance of zero means uncapped.
func (s *Service) Create(ctx context.Context, userID string, kind Kind, maxBalance money.Amount) (*Wallet, error) {
	if !kind.Valid() {
		return nil, ErrWalletNotFound
	}
	existing, err := s.store.GetWalletByUser(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrWalletExists
	}

	now := s.now()
	w := Wallet{
		ID:         uuid.NewString(),
		UserID:     userID,
		Kind:       kind,
		Balance:    money.Zero(),
		MaxBalance: maxBalance,
		IsActive:   kind == KindSelfFunded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateWallet(ctx, w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Get returns a wallet by id.
func (s *Service) Get(ctx context.Context, walletID string) (*Wallet, error) {
	w, err := s.store.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWalletNotFound
	}
	return w, nil
}

// ForUser returns the user's wallet of the given kind.
func (s *Service) ForUser(ctx context.Context, userID string, kind Kind) (*Wallet, error) {
	w, err := s.store.GetWalletByUser(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWalletNotFound
	}
	return w, nil
}

// =============================================================================
// CREDIT PATHS
// =============================================================================

// Recharge credits the wallet with a RECHARGE entry. For an admin-issued
// wallet the expiry is required; the first recharge activates the wallet and
// snapshots the initial balance used by expiry clawback. Later recharges
// extend the snapshot and may move the expiry forward.
func (s *Service) Recharge(ctx context.Context, walletID string, amount money.Amount, expiresAt *time.Time, description string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrAmountMustBePositive
	}

	unlock := s.locks.Lock(walletID)
	defer unlock()

	var tx Transaction
	var userID string
	err := s.store.WithTx(ctx, func(st Store) error {
		w, err := st.GetWallet(ctx, walletID)
		if err != nil {
			return err
		}
		if w == nil {
			return ErrWalletNotFound
		}
		userID = w.UserID
		if w.Kind == KindAdminIssued && expiresAt == nil && w.ExpiresAt == nil {
			return ErrExpiryRequired
		}
		if err := s.checkCap(w, amount); err != nil {
			return err
		}

		now := s.now()
		w.Balance = w.Balance.Add(amount)
		w.UpdatedAt = now
		if w.Kind == KindAdminIssued {
			w.IsActive = true
			w.InitialBalance = w.InitialBalance.Add(amount)
			if expiresAt != nil {
				t := expiresAt.UTC()
				w.ExpiresAt = &t
			}
		}

		tx = Transaction{
			ID:           uuid.NewString(),
			WalletID:     w.ID,
			Type:         TxRecharge,
			Amount:       amount,
			BalanceAfter: w.Balance,
			Description:  description,
			CreatedAt:    now,
		}
		if err := st.AppendTransaction(ctx, tx); err != nil {
			return err
		}
		return st.UpdateWallet(ctx, *w)
	})
	if err != nil {
		return nil, err
	}

	s.publish(events.WalletRecharged{
		WalletID: walletID,
		UserID:   userID,
		Amount:   amount,
		At:       tx.CreatedAt,
	})
	return &tx, nil
}

// Refund credits the wallet back after a cancellation. The maximum balance
// cap applies to refunds too: only the expiry clawback may break the cap.
func (s *Service) Refund(ctx context.Context, walletID string, amount money.Amount, bookingRef, description string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrAmountMustBePositive
	}

	unlock := s.locks.Lock(walletID)
	defer unlock()

	var tx Transaction
	err := s.store.WithTx(ctx, func(st Store) error {
		w, err := st.GetWallet(ctx, walletID)
		if err != nil {
			return err
		}
		if w == nil {
			return ErrWalletNotFound
		}
		if err := s.checkCap(w, amount); err != nil {
			return err
		}

		now := s.now()
		w.Balance = w.Balance.Add(amount)
		w.UpdatedAt = now

		tx = Transaction{
			ID:           uuid.NewString(),
			WalletID:     w.ID,
			Type:         TxRefund,
			Amount:       amount,
			BalanceAfter: w.Balance,
			BookingRef:   bookingRef,
			Description:  description,
			CreatedAt:    now,
		}
		if err := st.AppendTransaction(ctx, tx); err != nil {
			return err
		}
		return st.UpdateWallet(ctx, *w)
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Service) checkCap(w *Wallet, credit money.Amount) error {
	if w.MaxBalance.IsZero() {
		return nil
	}
	if w.Balance.Add(credit).GreaterThan(w.MaxBalance) {
		return &BalanceExceedsMaximumError{
			WalletID: w.ID,
			Balance:  w.Balance,
			Credit:   credit,
			Maximum:  w.MaxBalance,
		}
	}
	return nil
}

// =============================================================================
// DEBIT PATH
// =============================================================================

// Debit takes amount from the wallet as a PAYMENT entry with a negative
// ledger amount. Gates run in order: amount, active, expiry, balance.
func (s *Service) Debit(ctx context.Context, walletID string, amount money.Amount, bookingRef, description string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrAmountMustBePositive
	}

	unlock := s.locks.Lock(walletID)
	defer unlock()

	var tx Transaction
	err := s.store.WithTx(ctx, func(st Store) error {
		w, err := st.GetWallet(ctx, walletID)
		if err != nil {
			return err
		}
		if w == nil {
			return ErrWalletNotFound
		}
		if !w.IsActive {
			return ErrWalletInactive
		}
		if w.Expired(s.now()) {
			return ErrWalletExpired
		}
		if w.Balance.LessThan(amount) {
			return &InsufficientBalanceError{
				WalletID:  w.ID,
				Available: w.Balance,
				Requested: amount,
				Shortfall: amount.Sub(w.Balance),
			}
		}

		now := s.now()
		w.Balance = w.Balance.Sub(amount)
		w.UpdatedAt = now

		tx = Transaction{
			ID:           uuid.NewString(),
			WalletID:     w.ID,
			Type:         TxPayment,
			Amount:       amount.Neg(),
			BalanceAfter: w.Balance,
			BookingRef:   bookingRef,
			Description:  description,
			CreatedAt:    now,
		}
		if err := st.AppendTransaction(ctx, tx); err != nil {
			return err
		}
		return st.UpdateWallet(ctx, *w)
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// =============================================================================
// READS AND AUDIT
// =============================================================================

// BalanceOf returns the stored balance.
func (s *Service) BalanceOf(ctx context.Context, walletID string) (money.Amount, error) {
	w, err := s.Get(ctx, walletID)
	if err != nil {
		return money.Zero(), err
	}
	return w.Balance, nil
}

// Transactions returns the wallet's full ledger, chronologically.
func (s *Service) Transactions(ctx context.Context, walletID string) ([]Transaction, error) {
	w, err := s.Get(ctx, walletID)
	if err != nil {
		return nil, err
	}
	return s.store.Transactions(ctx, w.ID)
}

// AuditReport is the result of replaying a wallet's ledger.
type AuditReport struct {
	WalletID   string
	Balance    money.Amount
	LedgerSum  money.Amount
	TxCount    int
	Consistent bool
}

// AuditLedger replays the transaction log and compares the sum against the
// stored balance. Any mismatch means a write path bypassed the ledger.
func (s *Service) AuditLedger(ctx context.Context, walletID string) (*AuditReport, error) {
	w, err := s.Get(ctx, walletID)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.Transactions(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	sum := money.Zero()
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	return &AuditReport{
		WalletID:   w.ID,
		Balance:    w.Balance,
		LedgerSum:  sum,
		TxCount:    len(txs),
		Consistent: w.Balance.Equal(sum),
	}, nil
}

// =============================================================================
// EXPIRY
// =============================================================================

// ProcessExpiry claws back expired admin-issued credit. Idempotent: a
// wallet already deactivated is left untouched, and a wallet not yet past
// its expiry is skipped. Returns the clawback transaction, or nil when
// nothing was written.
func (s *Service) ProcessExpiry(ctx context.Context, walletID string, now time.Time) (*Transaction, error) {
	unlock := s.locks.Lock(walletID)
	defer unlock()

	var tx *Transaction
	var expired *Wallet
	err := s.store.WithTx(ctx, func(st Store) error {
		w, err := st.GetWallet(ctx, walletID)
		if err != nil {
			return err
		}
		if w == nil {
			return ErrWalletNotFound
		}
		if w.Kind != KindAdminIssued || !w.IsActive || !w.Expired(now) {
			return nil
		}

		w.IsActive = false
		w.UpdatedAt = now.UTC()

		if w.Balance.IsPositive() {
			// Clawback of the full issued amount leaves balance at the
			// negative of what was spent.
			w.Balance = w.Balance.Sub(w.InitialBalance)
			entry := Transaction{
				ID:           uuid.NewString(),
				WalletID:     w.ID,
				Type:         TxAdjustment,
				Amount:       w.InitialBalance.Neg(),
				BalanceAfter: w.Balance,
				Description:  "expiry clawback of issued credit",
				CreatedAt:    now.UTC(),
			}
			if err := st.AppendTransaction(ctx, entry); err != nil {
				return err
			}
			tx = &entry
		}

		if err := st.UpdateWallet(ctx, *w); err != nil {
			return err
		}
		expired = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expired != nil {
		clawback := money.Zero()
		if tx != nil {
			clawback = tx.Amount.Neg()
		}
		s.publish(events.WalletExpired{
			WalletID: expired.ID,
			UserID:   expired.UserID,
			Clawback: clawback,
			At:       now.UTC(),
		})
	}
	return tx, nil
}
