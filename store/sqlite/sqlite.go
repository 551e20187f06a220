/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces using SQLite. In production, the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  inventory.Store: Schedules and conditional seat counters
  wallet.TxStore:  Wallets plus the append-only transaction ledger
  booking.Store:   Bookings and their passenger lists

APPEND-ONLY ENFORCEMENT:
  The wallet_transactions table is append-only:
  - No UPDATE statements on wallet_transactions
  - No DELETE statements on wallet_transactions
  - Corrections land as new REFUND/ADJUSTMENT rows

SEAT COUNTERS:
  ReserveSeats and ReleaseSeats are single conditional UPDATEs. The WHERE
  clause carries the bounds check, so two racing reservations of the last
  seat resolve to exactly one winner. A CHECK constraint backs the same
  invariant at the schema level.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/skyfare.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - wallet/types.go, booking/types.go, inventory/inventory.go: interfaces
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/skyfare/booking-engine/booking"
	"github.com/skyfare/booking-engine/inventory"
	"github.com/skyfare/booking-engine/money"
	"github.com/skyfare/booking-engine/wallet"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Schedules (seat inventory and fare table)
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		route_name TEXT NOT NULL,
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		departure_date TEXT NOT NULL,
		total_seats INTEGER NOT NULL,
		available_seats INTEGER NOT NULL,
		adult_fare TEXT NOT NULL,
		child_fare TEXT NOT NULL DEFAULT '0',
		infant_fare TEXT NOT NULL DEFAULT '0',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		CHECK (available_seats >= 0 AND available_seats <= total_seats)
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_route
		ON schedules(origin, destination, departure_date);

	-- Bookings (never hard-deleted; terminal states retained for audit)
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		reference TEXT NOT NULL,
		user_id TEXT NOT NULL,
		schedule_id TEXT NOT NULL,
		return_schedule_id TEXT,
		trip_type TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		payment_method TEXT,
		payment_ref TEXT,
		wallet_id TEXT,
		gateway_order_id TEXT,
		base_fare TEXT NOT NULL,
		tax TEXT NOT NULL,
		discount TEXT NOT NULL,
		total TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: booking references are globally unique; creation retries
	-- on collision and this index is the backstop
	CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_reference
		ON bookings(reference);
	CREATE INDEX IF NOT EXISTS idx_bookings_user
		ON bookings(user_id);
	CREATE INDEX IF NOT EXISTS idx_bookings_status
		ON bookings(status);

	-- Passengers (ordered list per booking)
	CREATE TABLE IF NOT EXISTS passengers (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL REFERENCES bookings(id),
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		age INTEGER NOT NULL,
		type TEXT NOT NULL,
		seat_pref TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_passengers_booking
		ON passengers(booking_id);

	-- Wallets (one of each kind per user)
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		balance TEXT NOT NULL,
		initial_balance TEXT NOT NULL DEFAULT '0',
		max_balance TEXT NOT NULL DEFAULT '0',
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		expires_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_wallets_user_kind
		ON wallets(user_id, kind);
	-- Reconciler sweep: expired, still-active admin wallets
	CREATE INDEX IF NOT EXISTS idx_wallets_expiry
		ON wallets(kind, is_active, expires_at) WHERE expires_at IS NOT NULL;

	-- Wallet transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS wallet_transactions (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL REFERENCES wallets(id),
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		booking_ref TEXT,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_wallet
		ON wallet_transactions(wallet_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_booking
		ON wallet_transactions(booking_ref) WHERE booking_ref IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the subset of *sql.DB and *sql.Tx the query helpers need, so the
// same code serves both the plain store and the WithTx view.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// INVENTORY STORE (inventory.Store interface)
// =============================================================================

// SaveSchedule inserts or replaces a schedule.
func (s *Store) SaveSchedule(ctx context.Context, sched inventory.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO schedules (id, route_name, origin, destination, departure_date,
			total_seats, available_seats, adult_fare, child_fare, infant_fare, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			route_name = excluded.route_name,
			origin = excluded.origin,
			destination = excluded.destination,
			departure_date = excluded.departure_date,
			total_seats = excluded.total_seats,
			available_seats = excluded.available_seats,
			adult_fare = excluded.adult_fare,
			child_fare = excluded.child_fare,
			infant_fare = excluded.infant_fare,
			is_active = excluded.is_active
	`

	createdAt := sched.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		sched.ID, sched.RouteName, sched.Origin, sched.Destination,
		sched.DepartureDate.Format(time.RFC3339),
		sched.TotalSeats, sched.AvailableSeats,
		sched.AdultFare.String(), sched.ChildFare.String(), sched.InfantFare.String(),
		sched.IsActive, createdAt.Format(time.RFC3339),
	)
	return err
}

// GetSchedule returns a schedule by id, nil when missing.
func (s *Store) GetSchedule(ctx context.Context, id string) (*inventory.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, route_name, origin, destination, departure_date,
		       total_seats, available_seats, adult_fare, child_fare, infant_fare, is_active, created_at
		FROM schedules WHERE id = ?`, id)
	return scanSchedule(row)
}

func scanSchedule(row *sql.Row) (*inventory.Schedule, error) {
	var (
		sched                               inventory.Schedule
		departureDate, createdAt            string
		adultFare, childFare, infantFare    string
	)
	err := row.Scan(
		&sched.ID, &sched.RouteName, &sched.Origin, &sched.Destination, &departureDate,
		&sched.TotalSeats, &sched.AvailableSeats, &adultFare, &childFare, &infantFare,
		&sched.IsActive, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	sched.DepartureDate, _ = time.Parse(time.RFC3339, departureDate)
	sched.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	var parseErr error
	sched.AdultFare = scanAmount(adultFare, &parseErr)
	sched.ChildFare = scanAmount(childFare, &parseErr)
	sched.InfantFare = scanAmount(infantFare, &parseErr)
	if parseErr != nil {
		return nil, fmt.Errorf("corrupt fare on schedule %s: %w", sched.ID, parseErr)
	}
	return &sched, nil
}

// ListSchedules filters by origin, destination, and departure day; empty
// filters match everything.
func (s *Store) ListSchedules(ctx context.Context, origin, destination string, date *time.Time) ([]inventory.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, route_name, origin, destination, departure_date,
		       total_seats, available_seats, adult_fare, child_fare, infant_fare, is_active, created_at
		FROM schedules WHERE 1=1`
	var args []any
	if origin != "" {
		query += " AND origin = ?"
		args = append(args, origin)
	}
	if destination != "" {
		query += " AND destination = ?"
		args = append(args, destination)
	}
	if date != nil {
		query += " AND DATE(departure_date) = DATE(?)"
		args = append(args, date.Format(time.RFC3339))
	}
	query += " ORDER BY departure_date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var out []inventory.Schedule
	for rows.Next() {
		var (
			sched                            inventory.Schedule
			departureDate, createdAt         string
			adultFare, childFare, infantFare string
		)
		if err := rows.Scan(
			&sched.ID, &sched.RouteName, &sched.Origin, &sched.Destination, &departureDate,
			&sched.TotalSeats, &sched.AvailableSeats, &adultFare, &childFare, &infantFare,
			&sched.IsActive, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		sched.DepartureDate, _ = time.Parse(time.RFC3339, departureDate)
		sched.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		var parseErr error
		sched.AdultFare = scanAmount(adultFare, &parseErr)
		sched.ChildFare = scanAmount(childFare, &parseErr)
		sched.InfantFare = scanAmount(infantFare, &parseErr)
		if parseErr != nil {
			return nil, fmt.Errorf("corrupt fare on schedule %s: %w", sched.ID, parseErr)
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

// ReserveSeats decrements the counter only when enough seats remain and the
// schedule is active. The bounds check lives in the WHERE clause, so the
// update is linearizable across concurrent callers.
func (s *Store) ReserveSeats(ctx context.Context, id string, n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE schedules
		SET available_seats = available_seats - ?
		WHERE id = ? AND is_active = TRUE AND available_seats >= ?`, n, id, n)
	if err != nil {
		return false, fmt.Errorf("failed to reserve seats: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ReleaseSeats increments the counter only while staying within capacity.
func (s *Store) ReleaseSeats(ctx context.Context, id string, n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE schedules
		SET available_seats = available_seats + ?
		WHERE id = ? AND available_seats + ? <= total_seats`, n, id, n)
	if err != nil {
		return false, fmt.Errorf("failed to release seats: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// =============================================================================
// WALLET STORE (wallet.TxStore interface)
// =============================================================================

// CreateWallet inserts a wallet, failing when the user already has one of
// the same kind.
func (s *Store) CreateWallet(ctx context.Context, w wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createWallet(ctx, s.db, w)
}

func createWallet(ctx context.Context, db dbtx, w wallet.Wallet) error {
	query := `
		INSERT INTO wallets (id, user_id, kind, balance, initial_balance, max_balance,
			is_active, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		w.ID, w.UserID, string(w.Kind),
		w.Balance.String(), w.InitialBalance.String(), w.MaxBalance.String(),
		w.IsActive, nullTime(w.ExpiresAt),
		w.CreatedAt.Format(time.RFC3339), w.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return wallet.ErrWalletExists
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// UpdateWallet rewrites the wallet head row. The ledger row must be appended
// in the same WithTx scope.
func (s *Store) UpdateWallet(ctx context.Context, w wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateWallet(ctx, s.db, w)
}

func updateWallet(ctx context.Context, db dbtx, w wallet.Wallet) error {
	res, err := db.ExecContext(ctx, `
		UPDATE wallets
		SET balance = ?, initial_balance = ?, max_balance = ?, is_active = ?,
		    expires_at = ?, updated_at = ?
		WHERE id = ?`,
		w.Balance.String(), w.InitialBalance.String(), w.MaxBalance.String(),
		w.IsActive, nullTime(w.ExpiresAt), w.UpdatedAt.Format(time.RFC3339), w.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return wallet.ErrWalletNotFound
	}
	return nil
}

// GetWallet returns a wallet by id, nil when missing.
func (s *Store) GetWallet(ctx context.Context, id string) (*wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getWallet(ctx, s.db, id)
}

const walletColumns = `id, user_id, kind, balance, initial_balance, max_balance,
	is_active, expires_at, created_at, updated_at`

func getWallet(ctx context.Context, db dbtx, id string) (*wallet.Wallet, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+walletColumns+" FROM wallets WHERE id = ?", id)
	return scanWallet(row)
}

// GetWalletByUser returns the user's wallet of the given kind, nil when missing.
func (s *Store) GetWalletByUser(ctx context.Context, userID string, kind wallet.Kind) (*wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+walletColumns+" FROM wallets WHERE user_id = ? AND kind = ?",
		userID, string(kind))
	return scanWallet(row)
}

func scanWallet(row *sql.Row) (*wallet.Wallet, error) {
	var (
		w                                 wallet.Wallet
		kind                              string
		balance, initialBalance, maxBal   string
		expiresAt                         sql.NullString
		createdAt, updatedAt              string
	)
	err := row.Scan(&w.ID, &w.UserID, &kind, &balance, &initialBalance, &maxBal,
		&w.IsActive, &expiresAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}

	w.Kind = wallet.Kind(kind)
	var parseErr error
	w.Balance = scanAmount(balance, &parseErr)
	w.InitialBalance = scanAmount(initialBalance, &parseErr)
	w.MaxBalance = scanAmount(maxBal, &parseErr)
	if parseErr != nil {
		return nil, fmt.Errorf("corrupt balance on wallet %s: %w", w.ID, parseErr)
	}
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiresAt.String)
		w.ExpiresAt = &t
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	w.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &w, nil
}

// AppendTransaction adds a ledger row. This is the only write into
// wallet_transactions; there is no update or delete.
func (s *Store) AppendTransaction(ctx context.Context, tx wallet.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTransaction(ctx, s.db, tx)
}

func appendTransaction(ctx context.Context, db dbtx, tx wallet.Transaction) error {
	query := `
		INSERT INTO wallet_transactions
		(id, wallet_id, type, amount, balance_after, booking_ref, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		tx.ID, tx.WalletID, string(tx.Type),
		tx.Amount.String(), tx.BalanceAfter.String(),
		nullString(tx.BookingRef), tx.Description,
		tx.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append wallet transaction: %w", err)
	}
	return nil
}

// Transactions returns the wallet's ledger, chronologically.
func (s *Store) Transactions(ctx context.Context, walletID string) ([]wallet.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadTransactions(ctx, s.db, walletID)
}

func loadTransactions(ctx context.Context, db dbtx, walletID string) ([]wallet.Transaction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, wallet_id, type, amount, balance_after, booking_ref, description, created_at
		FROM wallet_transactions
		WHERE wallet_id = ?
		ORDER BY created_at ASC, id ASC`, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet transactions: %w", err)
	}
	defer rows.Close()

	var out []wallet.Transaction
	for rows.Next() {
		var (
			tx                   wallet.Transaction
			txType               string
			amount, balanceAfter string
			bookingRef           sql.NullString
			description          sql.NullString
			createdAt            string
		)
		if err := rows.Scan(&tx.ID, &tx.WalletID, &txType, &amount, &balanceAfter,
			&bookingRef, &description, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		tx.Type = wallet.TxType(txType)
		var parseErr error
		tx.Amount = scanAmount(amount, &parseErr)
		tx.BalanceAfter = scanAmount(balanceAfter, &parseErr)
		if parseErr != nil {
			return nil, fmt.Errorf("corrupt amount on transaction %s: %w", tx.ID, parseErr)
		}
		tx.BookingRef = bookingRef.String
		tx.Description = description.String
		tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, tx)
	}
	return out, rows.Err()
}

// ExpiredActiveWallets returns admin-issued wallets past expiry that the
// reconciler has not settled yet.
func (s *Store) ExpiredActiveWallets(ctx context.Context, now time.Time) ([]wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+walletColumns+` FROM wallets
		WHERE kind = ? AND is_active = TRUE AND expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at ASC`,
		string(wallet.KindAdminIssued), now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query expired wallets: %w", err)
	}
	defer rows.Close()

	var out []wallet.Wallet
	for rows.Next() {
		var (
			w                               wallet.Wallet
			kind                            string
			balance, initialBalance, maxBal string
			expiresAt                       sql.NullString
			createdAt, updatedAt            string
		)
		if err := rows.Scan(&w.ID, &w.UserID, &kind, &balance, &initialBalance, &maxBal,
			&w.IsActive, &expiresAt, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		w.Kind = wallet.Kind(kind)
		var parseErr error
		w.Balance = scanAmount(balance, &parseErr)
		w.InitialBalance = scanAmount(initialBalance, &parseErr)
		w.MaxBalance = scanAmount(maxBal, &parseErr)
		if parseErr != nil {
			return nil, fmt.Errorf("corrupt balance on wallet %s: %w", w.ID, parseErr)
		}
		if expiresAt.Valid {
			t, _ := time.Parse(time.RFC3339, expiresAt.String)
			w.ExpiresAt = &t
		}
		w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		w.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, w)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (wallet.TxStore interface)
// =============================================================================

// WithTx executes fn within one database transaction. The wallet head
// update and its ledger row commit together or roll back together.
func (s *Store) WithTx(ctx context.Context, fn func(store wallet.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	view := &walletTxView{tx: sqlTx}
	if err := fn(view); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// walletTxView is the Store bound to one *sql.Tx. It must not touch the
// parent mutex: WithTx already holds the write lock.
type walletTxView struct {
	tx *sql.Tx
}

func (v *walletTxView) GetWallet(ctx context.Context, id string) (*wallet.Wallet, error) {
	return getWallet(ctx, v.tx, id)
}

func (v *walletTxView) GetWalletByUser(ctx context.Context, userID string, kind wallet.Kind) (*wallet.Wallet, error) {
	row := v.tx.QueryRowContext(ctx,
		"SELECT "+walletColumns+" FROM wallets WHERE user_id = ? AND kind = ?",
		userID, string(kind))
	return scanWallet(row)
}

func (v *walletTxView) CreateWallet(ctx context.Context, w wallet.Wallet) error {
	return createWallet(ctx, v.tx, w)
}

func (v *walletTxView) UpdateWallet(ctx context.Context, w wallet.Wallet) error {
	return updateWallet(ctx, v.tx, w)
}

func (v *walletTxView) AppendTransaction(ctx context.Context, tx wallet.Transaction) error {
	return appendTransaction(ctx, v.tx, tx)
}

func (v *walletTxView) Transactions(ctx context.Context, walletID string) ([]wallet.Transaction, error) {
	return loadTransactions(ctx, v.tx, walletID)
}

func (v *walletTxView) ExpiredActiveWallets(ctx context.Context, now time.Time) ([]wallet.Wallet, error) {
	// The sweep runs outside WithTx; inside a transaction this view only
	// ever touches one wallet.
	return nil, fmt.Errorf("expired wallet scan is not available inside a transaction")
}

// =============================================================================
// BOOKING STORE (booking.Store interface)
// =============================================================================

// CreateBooking inserts the booking and its passenger list atomically.
func (s *Store) CreateBooking(ctx context.Context, b booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	query := `
		INSERT INTO bookings (id, reference, user_id, schedule_id, return_schedule_id,
			trip_type, status, payment_status, payment_method, payment_ref, wallet_id,
			gateway_order_id, base_fare, tax, discount, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = sqlTx.ExecContext(ctx, query,
		b.ID, b.Reference, b.UserID, b.ScheduleID, nullString(b.ReturnScheduleID),
		string(b.TripType), string(b.Status), string(b.PaymentStatus),
		nullString(string(b.PaymentMethod)), nullString(b.PaymentRef), nullString(b.WalletID),
		nullString(b.GatewayOrderID),
		b.Fare.BaseFare.String(), b.Fare.Tax.String(), b.Fare.Discount.String(), b.Fare.Total.String(),
		b.CreatedAt.Format(time.RFC3339), b.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return booking.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	for i, p := range b.Passengers {
		_, err = sqlTx.ExecContext(ctx, `
			INSERT INTO passengers (id, booking_id, position, name, age, type, seat_pref)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, b.ID, i, p.Name, p.Age, string(p.Type), nullString(p.SeatPref),
		)
		if err != nil {
			return fmt.Errorf("failed to create passenger: %w", err)
		}
	}

	return sqlTx.Commit()
}

// UpdateBooking rewrites the mutable booking fields. Passengers are frozen
// at creation and never updated.
func (s *Store) UpdateBooking(ctx context.Context, b booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, payment_status = ?, payment_method = ?, payment_ref = ?,
		    wallet_id = ?, gateway_order_id = ?, updated_at = ?
		WHERE id = ?`,
		string(b.Status), string(b.PaymentStatus),
		nullString(string(b.PaymentMethod)), nullString(b.PaymentRef),
		nullString(b.WalletID), nullString(b.GatewayOrderID),
		b.UpdatedAt.Format(time.RFC3339), b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

const bookingColumns = `id, reference, user_id, schedule_id, return_schedule_id,
	trip_type, status, payment_status, payment_method, payment_ref, wallet_id,
	gateway_order_id, base_fare, tax, discount, total, created_at, updated_at`

// GetBooking returns a booking with its passengers, nil when missing.
func (s *Store) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id)
	b, err := scanBooking(row)
	if err != nil || b == nil {
		return b, err
	}
	if err := s.loadPassengers(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBookingByReference returns a booking by its reference, nil when missing.
func (s *Store) GetBookingByReference(ctx context.Context, ref string) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE reference = ?", ref)
	b, err := scanBooking(row)
	if err != nil || b == nil {
		return b, err
	}
	if err := s.loadPassengers(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func scanBooking(row *sql.Row) (*booking.Booking, error) {
	var (
		b                                      booking.Booking
		returnScheduleID                       sql.NullString
		tripType, status, paymentStatus        string
		paymentMethod, paymentRef              sql.NullString
		walletID, gatewayOrderID               sql.NullString
		baseFare, tax, discount, total         string
		createdAt, updatedAt                   string
	)
	err := row.Scan(&b.ID, &b.Reference, &b.UserID, &b.ScheduleID, &returnScheduleID,
		&tripType, &status, &paymentStatus, &paymentMethod, &paymentRef,
		&walletID, &gatewayOrderID, &baseFare, &tax, &discount, &total,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	b.ReturnScheduleID = returnScheduleID.String
	b.TripType = booking.TripType(tripType)
	b.Status = booking.Status(status)
	b.PaymentStatus = booking.PaymentStatus(paymentStatus)
	b.PaymentMethod = booking.Method(paymentMethod.String)
	b.PaymentRef = paymentRef.String
	b.WalletID = walletID.String
	b.GatewayOrderID = gatewayOrderID.String
	var parseErr error
	b.Fare = booking.FareBreakdown{
		BaseFare: scanAmount(baseFare, &parseErr),
		Tax:      scanAmount(tax, &parseErr),
		Discount: scanAmount(discount, &parseErr),
		Total:    scanAmount(total, &parseErr),
	}
	if parseErr != nil {
		return nil, fmt.Errorf("corrupt fare on booking %s: %w", b.ID, parseErr)
	}
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &b, nil
}

func (s *Store) loadPassengers(ctx context.Context, b *booking.Booking) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, age, type, seat_pref
		FROM passengers WHERE booking_id = ? ORDER BY position ASC`, b.ID)
	if err != nil {
		return fmt.Errorf("failed to query passengers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p booking.Passenger
		var pType string
		var seatPref sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &pType, &seatPref); err != nil {
			return fmt.Errorf("failed to scan passenger: %w", err)
		}
		p.Type = inventory.PassengerType(pType)
		p.SeatPref = seatPref.String
		b.Passengers = append(b.Passengers, p)
	}
	return rows.Err()
}

// BookingsForUser returns the user's bookings, newest first, passengers
// included.
func (s *Store) BookingsForUser(ctx context.Context, userID string) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM bookings WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []booking.Booking
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx,
			"SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id)
		b, err := scanBooking(row)
		if err != nil {
			return nil, err
		}
		if b == nil {
			continue
		}
		if err := s.loadPassengers(ctx, b); err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

// Reset drops all rows. Test helper.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"wallet_transactions", "wallets", "passengers", "bookings", "schedules"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// scanAmount parses a stored decimal column, recording the first failure in
// errp. A row with an unparseable amount must fail the read, not load as zero.
func scanAmount(s string, errp *error) money.Amount {
	a, err := money.FromString(s)
	if err != nil && *errp == nil {
		*errp = err
	}
	return a
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
