package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfare/booking-engine/booking"
	"github.com/skyfare/booking-engine/inventory"
	"github.com/skyfare/booking-engine/money"
	"github.com/skyfare/booking-engine/wallet"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedSchedule(t *testing.T, store *Store, id string, available, total int) {
	t.Helper()
	require.NoError(t, store.SaveSchedule(context.Background(), inventory.Schedule{
		ID:             id,
		RouteName:      "Harbor Express",
		Origin:         "Northport",
		Destination:    "Easthaven",
		DepartureDate:  time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
		TotalSeats:     total,
		AvailableSeats: available,
		AdultFare:      money.MustParse("120.00"),
		ChildFare:      money.MustParse("90.00"),
		IsActive:       true,
	}))
}

func seedWallet(t *testing.T, store *Store, kind wallet.Kind, balance string) wallet.Wallet {
	t.Helper()
	now := time.Now().UTC()
	w := wallet.Wallet{
		ID:        uuid.NewString(),
		UserID:    "user-" + uuid.NewString(),
		Kind:      kind,
		Balance:   money.MustParse(balance),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.CreateWallet(context.Background(), w))
	return w
}

// =============================================================================
// SCHEDULES
// =============================================================================

func TestStore_ScheduleRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedSchedule(t, store, "sch-1", 38, 40)

	got, err := store.GetSchedule(ctx, "sch-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Harbor Express", got.RouteName)
	assert.Equal(t, 38, got.AvailableSeats)
	assert.Equal(t, 40, got.TotalSeats)
	assert.Equal(t, "120.00", got.AdultFare.String())
	assert.Equal(t, "90.00", got.ChildFare.String())
	assert.True(t, got.IsActive)

	missing, err := store.GetSchedule(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_ListSchedules(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedSchedule(t, store, "sch-1", 40, 40)
	require.NoError(t, store.SaveSchedule(ctx, inventory.Schedule{
		ID: "sch-2", RouteName: "Coastal", Origin: "Westbay", Destination: "Easthaven",
		DepartureDate: time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC),
		TotalSeats:    20, AvailableSeats: 20,
		AdultFare: money.MustParse("80.00"), IsActive: true,
	}))

	all, err := store.ListSchedules(ctx, "", "", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	fromNorthport, err := store.ListSchedules(ctx, "Northport", "", nil)
	require.NoError(t, err)
	require.Len(t, fromNorthport, 1)
	assert.Equal(t, "sch-1", fromNorthport[0].ID)

	day := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	onDay, err := store.ListSchedules(ctx, "", "Easthaven", &day)
	require.NoError(t, err)
	require.Len(t, onDay, 1)
	assert.Equal(t, "sch-2", onDay[0].ID)
}

func TestStore_ReserveSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("conditional decrement", func(t *testing.T) {
		store := newTestStore(t)
		seedSchedule(t, store, "sch-1", 2, 10)

		ok, err := store.ReserveSeats(ctx, "sch-1", 2)
		require.NoError(t, err)
		assert.True(t, ok)

		// Nothing left: the update must not fire.
		ok, err = store.ReserveSeats(ctx, "sch-1", 1)
		require.NoError(t, err)
		assert.False(t, ok)

		got, _ := store.GetSchedule(ctx, "sch-1")
		assert.Equal(t, 0, got.AvailableSeats)
	})

	t.Run("inactive schedule is not reservable", func(t *testing.T) {
		store := newTestStore(t)
		seedSchedule(t, store, "sch-1", 10, 10)
		sched, _ := store.GetSchedule(ctx, "sch-1")
		sched.IsActive = false
		require.NoError(t, store.SaveSchedule(ctx, *sched))

		ok, err := store.ReserveSeats(ctx, "sch-1", 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("exactly one winner under concurrency", func(t *testing.T) {
		// GIVEN one remaining seat and 8 concurrent takers
		store := newTestStore(t)
		seedSchedule(t, store, "sch-1", 1, 10)

		var wg sync.WaitGroup
		results := make(chan bool, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.ReserveSeats(ctx, "sch-1", 1)
				require.NoError(t, err)
				results <- ok
			}()
		}
		wg.Wait()
		close(results)

		wins := 0
		for ok := range results {
			if ok {
				wins++
			}
		}
		assert.Equal(t, 1, wins)
	})
}

func TestStore_ReleaseSeats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedSchedule(t, store, "sch-1", 8, 10)

	ok, err := store.ReleaseSeats(ctx, "sch-1", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// Already at capacity: rejected.
	ok, err = store.ReleaseSeats(ctx, "sch-1", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := store.GetSchedule(ctx, "sch-1")
	assert.Equal(t, 10, got.AvailableSeats)
}

// =============================================================================
// WALLETS
// =============================================================================

func TestStore_WalletRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	expiry := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	w := wallet.Wallet{
		ID:             uuid.NewString(),
		UserID:         "user-1",
		Kind:           wallet.KindAdminIssued,
		Balance:        money.MustParse("1000.00"),
		InitialBalance: money.MustParse("1000.00"),
		MaxBalance:     money.MustParse("5000.00"),
		IsActive:       true,
		ExpiresAt:      &expiry,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, store.CreateWallet(ctx, w))

	got, err := store.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, wallet.KindAdminIssued, got.Kind)
	assert.Equal(t, "1000.00", got.Balance.String())
	assert.Equal(t, "1000.00", got.InitialBalance.String())
	assert.Equal(t, "5000.00", got.MaxBalance.String())
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(expiry))

	byUser, err := store.GetWalletByUser(ctx, "user-1", wallet.KindAdminIssued)
	require.NoError(t, err)
	require.NotNil(t, byUser)
	assert.Equal(t, w.ID, byUser.ID)
}

func TestStore_CorruptBalanceFailsRead(t *testing.T) {
	// A mangled balance column must surface as an error, never load as 0.00.
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()
	w := wallet.Wallet{
		ID: uuid.NewString(), UserID: "user-1", Kind: wallet.KindSelfFunded,
		Balance: money.MustParse("500.00"), IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.CreateWallet(ctx, w))

	_, err := store.db.ExecContext(ctx,
		"UPDATE wallets SET balance = 'garbage' WHERE id = ?", w.ID)
	require.NoError(t, err)

	got, err := store.GetWallet(ctx, w.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt balance")
	assert.Nil(t, got)
}

func TestStore_WalletUniquePerUserAndKind(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	make := func(userID string, kind wallet.Kind) error {
		return store.CreateWallet(ctx, wallet.Wallet{
			ID: uuid.NewString(), UserID: userID, Kind: kind,
			Balance: money.Zero(), CreatedAt: now, UpdatedAt: now,
		})
	}

	require.NoError(t, make("user-1", wallet.KindSelfFunded))
	err := make("user-1", wallet.KindSelfFunded)
	assert.ErrorIs(t, err, wallet.ErrWalletExists)

	// Other kind and other user are both fine.
	assert.NoError(t, make("user-1", wallet.KindAdminIssued))
	assert.NoError(t, make("user-2", wallet.KindSelfFunded))
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN a wallet holding 100.00
	ctx := context.Background()
	store := newTestStore(t)
	w := seedWallet(t, store, wallet.KindSelfFunded, "100.00")

	// WHEN a transaction appends a ledger row, updates the wallet, then fails
	failure := assert.AnError
	err := store.WithTx(ctx, func(st wallet.Store) error {
		if err := st.AppendTransaction(ctx, wallet.Transaction{
			ID: uuid.NewString(), WalletID: w.ID, Type: wallet.TxPayment,
			Amount:       money.MustParse("-40.00"),
			BalanceAfter: money.MustParse("60.00"),
			CreatedAt:    time.Now().UTC(),
		}); err != nil {
			return err
		}
		w.Balance = money.MustParse("60.00")
		if err := st.UpdateWallet(ctx, w); err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)

	// THEN neither the balance nor the ledger changed
	got, err := store.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.Balance.String())

	txs, err := store.Transactions(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestStore_TransactionsChronological(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	w := seedWallet(t, store, wallet.KindSelfFunded, "0.00")

	base := time.Now().UTC()
	for i, amount := range []string{"100.00", "-30.00", "-20.00"} {
		require.NoError(t, store.AppendTransaction(ctx, wallet.Transaction{
			ID: uuid.NewString(), WalletID: w.ID, Type: wallet.TxRecharge,
			Amount:       money.MustParse(amount),
			BalanceAfter: money.Zero(),
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		}))
	}

	txs, err := store.Transactions(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "100.00", txs[0].Amount.String())
	assert.Equal(t, "-30.00", txs[1].Amount.String())
	assert.Equal(t, "-20.00", txs[2].Amount.String())
}

func TestStore_ExpiredActiveWallets(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	make := func(kind wallet.Kind, active bool, expiresAt *time.Time) string {
		w := wallet.Wallet{
			ID: uuid.NewString(), UserID: "user-" + uuid.NewString(), Kind: kind,
			Balance: money.MustParse("100.00"), IsActive: active,
			ExpiresAt: expiresAt, CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, store.CreateWallet(ctx, w))
		return w.ID
	}

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := make(wallet.KindAdminIssued, true, &past)
	make(wallet.KindAdminIssued, true, &future)   // not yet expired
	make(wallet.KindAdminIssued, false, &past)    // already settled
	make(wallet.KindSelfFunded, true, nil)        // never expires

	got, err := store.ExpiredActiveWallets(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expired, got[0].ID)
}

// =============================================================================
// BOOKINGS
// =============================================================================

func newBooking(ref string) booking.Booking {
	now := time.Now().UTC()
	return booking.Booking{
		ID:         uuid.NewString(),
		Reference:  ref,
		UserID:     "user-1",
		ScheduleID: "sch-1",
		TripType:   booking.TripOneWay,
		Passengers: []booking.Passenger{
			{ID: uuid.NewString(), Name: "Lead Traveller", Age: 34, Type: inventory.PassengerAdult},
			{ID: uuid.NewString(), Name: "Junior Traveller", Age: 8, Type: inventory.PassengerChild},
		},
		Status:        booking.StatusPending,
		PaymentStatus: booking.PaymentPending,
		Fare: booking.FareBreakdown{
			BaseFare: money.MustParse("210.00"),
			Tax:      money.MustParse("21.00"),
			Discount: money.Zero(),
			Total:    money.MustParse("231.00"),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_BookingRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	b := newBooking("SBAAA111")
	require.NoError(t, store.CreateBooking(ctx, b))

	got, err := store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SBAAA111", got.Reference)
	assert.Equal(t, booking.StatusPending, got.Status)
	assert.Equal(t, "231.00", got.Fare.Total.String())
	require.Len(t, got.Passengers, 2)
	assert.Equal(t, "Lead Traveller", got.Passengers[0].Name)
	assert.Equal(t, inventory.PassengerChild, got.Passengers[1].Type)

	byRef, err := store.GetBookingByReference(ctx, "SBAAA111")
	require.NoError(t, err)
	require.NotNil(t, byRef)
	assert.Equal(t, b.ID, byRef.ID)

	missing, err := store.GetBookingByReference(ctx, "SBZZZ999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_BookingReferenceUnique(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBooking(ctx, newBooking("SBAAA111")))

	err := store.CreateBooking(ctx, newBooking("SBAAA111"))
	assert.ErrorIs(t, err, booking.ErrDuplicateReference)
}

func TestStore_UpdateBooking(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	b := newBooking("SBAAA111")
	require.NoError(t, store.CreateBooking(ctx, b))

	require.NoError(t, b.Confirm(booking.MethodWallet, "tx-1", time.Now().UTC()))
	b.WalletID = "w-1"
	require.NoError(t, store.UpdateBooking(ctx, b))

	got, err := store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, got.Status)
	assert.Equal(t, booking.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, booking.MethodWallet, got.PaymentMethod)
	assert.Equal(t, "tx-1", got.PaymentRef)
	assert.Equal(t, "w-1", got.WalletID)

	err = store.UpdateBooking(ctx, newBooking("SBZZZ999"))
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestStore_BookingsForUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBooking(ctx, newBooking("SBAAA111")))
	require.NoError(t, store.CreateBooking(ctx, newBooking("SBBBB222")))
	other := newBooking("SBCCC333")
	other.UserID = "user-2"
	require.NoError(t, store.CreateBooking(ctx, other))

	mine, err := store.BookingsForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, b := range mine {
		assert.Equal(t, "user-1", b.UserID)
		assert.Len(t, b.Passengers, 2)
	}
}
