package booking

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfare/booking-engine/inventory"
	"github.com/skyfare/booking-engine/money"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeStore struct {
	mu       sync.Mutex
	bookings map[string]Booking

	// collideNext forces that many inserts to report a reference collision.
	collideNext int
	creates     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: make(map[string]Booking)}
}

func (f *fakeStore) CreateBooking(_ context.Context, b Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.collideNext > 0 {
		f.collideNext--
		return ErrDuplicateReference
	}
	for _, existing := range f.bookings {
		if existing.Reference == b.Reference {
			return ErrDuplicateReference
		}
	}
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeStore) GetBooking(_ context.Context, id string) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f *fakeStore) GetBookingByReference(_ context.Context, ref string) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.Reference == ref {
			cp := b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateBooking(_ context.Context, b Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeStore) BookingsForUser(_ context.Context, userID string) ([]Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeInventoryStore struct {
	mu        sync.Mutex
	schedules map[string]inventory.Schedule
}

func (f *fakeInventoryStore) GetSchedule(_ context.Context, id string) (*inventory.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeInventoryStore) SaveSchedule(_ context.Context, s inventory.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedules[s.ID] = s
	return nil
}

func (f *fakeInventoryStore) ListSchedules(_ context.Context, _, _ string, _ *time.Time) ([]inventory.Schedule, error) {
	return nil, nil
}

func (f *fakeInventoryStore) ReserveSeats(_ context.Context, id string, n int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok || !s.IsActive || s.AvailableSeats < n {
		return false, nil
	}
	s.AvailableSeats -= n
	f.schedules[id] = s
	return true, nil
}

func (f *fakeInventoryStore) ReleaseSeats(_ context.Context, id string, n int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok || s.AvailableSeats+n > s.TotalSeats {
		return false, nil
	}
	s.AvailableSeats += n
	f.schedules[id] = s
	return true, nil
}

// =============================================================================
// FIXTURES
// =============================================================================

func newTestService(t *testing.T, fares inventory.FareConfig) (*Service, *fakeStore, *fakeInventoryStore) {
	t.Helper()
	invStore := &fakeInventoryStore{schedules: make(map[string]inventory.Schedule)}
	invStore.schedules["sch-1"] = inventory.Schedule{
		ID:             "sch-1",
		RouteName:      "Harbor Express",
		Origin:         "Northport",
		Destination:    "Easthaven",
		DepartureDate:  time.Now().UTC().Add(72 * time.Hour),
		TotalSeats:     40,
		AvailableSeats: 40,
		AdultFare:      money.MustParse("100.00"),
		IsActive:       true,
	}
	invStore.schedules["sch-return"] = inventory.Schedule{
		ID:             "sch-return",
		RouteName:      "Harbor Express",
		Origin:         "Easthaven",
		Destination:    "Northport",
		DepartureDate:  time.Now().UTC().Add(96 * time.Hour),
		TotalSeats:     40,
		AvailableSeats: 40,
		AdultFare:      money.MustParse("100.00"),
		IsActive:       true,
	}
	store := newFakeStore()
	svc := NewService(store, inventory.NewService(invStore, fares))
	return svc, store, invStore
}

func party(types ...inventory.PassengerType) []Passenger {
	var out []Passenger
	for i, pt := range types {
		out = append(out, Passenger{Name: "Passenger", Age: 30 - i, Type: pt})
	}
	return out
}

// =============================================================================
// CREATE
// =============================================================================

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending booking with a priced breakdown", func(t *testing.T) {
		// GIVEN adult fare 100.00, defaults: child 75%, infant 10%
		svc, _, invStore := newTestService(t, inventory.DefaultFareConfig())

		// WHEN booking one adult, one child, one infant
		b, err := svc.Create(ctx, CreateParams{
			UserID:     "user-1",
			ScheduleID: "sch-1",
			Passengers: party(inventory.PassengerAdult, inventory.PassengerChild, inventory.PassengerInfant),
		})

		// THEN the booking is PENDING with base 100 + 75 + 10 = 185.00
		require.NoError(t, err)
		assert.Equal(t, StatusPending, b.Status)
		assert.Equal(t, PaymentPending, b.PaymentStatus)
		assert.Equal(t, "185.00", b.Fare.BaseFare.String())
		assert.Equal(t, "185.00", b.Fare.Total.String())
		assert.Equal(t, 2, b.SeatCount()) // infant holds no seat

		// AND no inventory was taken
		s, _ := invStore.GetSchedule(ctx, "sch-1")
		assert.Equal(t, 40, s.AvailableSeats)
	})

	t.Run("applies tax and discount to the total", func(t *testing.T) {
		// GIVEN a 10% tax rate
		fares := inventory.DefaultFareConfig()
		fares.TaxRatePct = 10
		svc, _, _ := newTestService(t, fares)

		// WHEN booking one adult with a 15.00 discount
		b, err := svc.Create(ctx, CreateParams{
			UserID:     "user-1",
			ScheduleID: "sch-1",
			Passengers: party(inventory.PassengerAdult),
			Discount:   money.MustParse("15.00"),
		})

		// THEN total = 100 + 10 - 15 = 95.00
		require.NoError(t, err)
		assert.Equal(t, "100.00", b.Fare.BaseFare.String())
		assert.Equal(t, "10.00", b.Fare.Tax.String())
		assert.Equal(t, "15.00", b.Fare.Discount.String())
		assert.Equal(t, "95.00", b.Fare.Total.String())
	})

	t.Run("round trip prices both legs", func(t *testing.T) {
		svc, _, _ := newTestService(t, inventory.DefaultFareConfig())

		b, err := svc.Create(ctx, CreateParams{
			UserID:           "user-1",
			ScheduleID:       "sch-1",
			ReturnScheduleID: "sch-return",
			TripType:         TripRoundTrip,
			Passengers:       party(inventory.PassengerAdult),
		})
		require.NoError(t, err)
		assert.Equal(t, "200.00", b.Fare.Total.String())
	})

	t.Run("round trip without return schedule is rejected", func(t *testing.T) {
		svc, _, _ := newTestService(t, inventory.DefaultFareConfig())

		_, err := svc.Create(ctx, CreateParams{
			UserID:     "user-1",
			ScheduleID: "sch-1",
			TripType:   TripRoundTrip,
			Passengers: party(inventory.PassengerAdult),
		})
		assert.ErrorIs(t, err, ErrReturnScheduleRequired)
	})

	t.Run("requires passengers and an adult", func(t *testing.T) {
		svc, _, _ := newTestService(t, inventory.DefaultFareConfig())

		_, err := svc.Create(ctx, CreateParams{UserID: "user-1", ScheduleID: "sch-1"})
		assert.ErrorIs(t, err, ErrNoPassengers)

		_, err = svc.Create(ctx, CreateParams{
			UserID:     "user-1",
			ScheduleID: "sch-1",
			Passengers: party(inventory.PassengerChild),
		})
		assert.ErrorIs(t, err, ErrNoAdultPassenger)
	})

	t.Run("unknown schedule", func(t *testing.T) {
		svc, _, _ := newTestService(t, inventory.DefaultFareConfig())

		_, err := svc.Create(ctx, CreateParams{
			UserID:     "user-1",
			ScheduleID: "nope",
			Passengers: party(inventory.PassengerAdult),
		})
		assert.ErrorIs(t, err, inventory.ErrScheduleNotFound)
	})
}

// =============================================================================
// REFERENCES
// =============================================================================

func TestReference_Format(t *testing.T) {
	// References are SB + 6 uppercase alphanumerics, unique per booking.
	ctx := context.Background()
	svc, _, _ := newTestService(t, inventory.DefaultFareConfig())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		b, err := svc.Create(ctx, CreateParams{
			UserID:     "user-1",
			ScheduleID: "sch-1",
			Passengers: party(inventory.PassengerAdult),
		})
		require.NoError(t, err)

		require.Len(t, b.Reference, 8)
		assert.True(t, strings.HasPrefix(b.Reference, ReferencePrefix))
		for _, c := range b.Reference[2:] {
			assert.Contains(t, referenceCharset, string(c))
		}
		assert.False(t, seen[b.Reference], "duplicate reference %s", b.Reference)
		seen[b.Reference] = true
	}
}

func TestReference_CollisionRetried(t *testing.T) {
	// A reference collision at insert time regenerates instead of failing.
	ctx := context.Background()
	svc, store, _ := newTestService(t, inventory.DefaultFareConfig())
	store.collideNext = 2

	b, err := svc.Create(ctx, CreateParams{
		UserID:     "user-1",
		ScheduleID: "sch-1",
		Passengers: party(inventory.PassengerAdult),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, b.Reference)
	assert.Equal(t, 3, store.creates)
}

func TestReference_CollisionsExhaustRetries(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, inventory.DefaultFareConfig())
	store.collideNext = referenceRetries

	_, err := svc.Create(ctx, CreateParams{
		UserID:     "user-1",
		ScheduleID: "sch-1",
		Passengers: party(inventory.PassengerAdult),
	})
	assert.ErrorIs(t, err, ErrReferenceGenerationFailed)
	assert.Equal(t, referenceRetries, store.creates)
}

// =============================================================================
// STATE MACHINE
// =============================================================================

func TestBooking_Transitions(t *testing.T) {
	now := time.Now().UTC()

	t.Run("pending confirms, confirmed completes", func(t *testing.T) {
		b := &Booking{Reference: "SBAAA111", Status: StatusPending}

		require.NoError(t, b.Confirm(MethodWallet, "tx-1", now))
		assert.Equal(t, StatusConfirmed, b.Status)
		assert.Equal(t, PaymentPaid, b.PaymentStatus)

		require.NoError(t, b.Complete(now))
		assert.Equal(t, StatusCompleted, b.Status)
	})

	t.Run("terminal states reject everything", func(t *testing.T) {
		for _, status := range []Status{StatusCancelled, StatusCompleted} {
			b := &Booking{Reference: "SBAAA111", Status: status}

			err := b.Confirm(MethodWallet, "tx-1", now)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidStateTransition)

			err = b.Cancel(PaymentRefunded, now)
			assert.ErrorIs(t, err, ErrInvalidStateTransition)

			err = b.Complete(now)
			assert.ErrorIs(t, err, ErrInvalidStateTransition)
		}
	})

	t.Run("cancel from pending or confirmed", func(t *testing.T) {
		b := &Booking{Reference: "SBAAA111", Status: StatusPending}
		require.NoError(t, b.Cancel(PaymentPending, now))
		assert.Equal(t, StatusCancelled, b.Status)

		b = &Booking{Reference: "SBBBB222", Status: StatusConfirmed}
		require.NoError(t, b.Cancel(PaymentRefunded, now))
		assert.Equal(t, PaymentRefunded, b.PaymentStatus)
	})

	t.Run("double confirm fails with transition detail", func(t *testing.T) {
		b := &Booking{Reference: "SBAAA111", Status: StatusPending}
		require.NoError(t, b.Confirm(MethodWallet, "tx-1", now))

		err := b.Confirm(MethodWallet, "tx-2", now)
		var tErr *InvalidStateTransitionError
		require.ErrorAs(t, err, &tErr)
		assert.Equal(t, StatusConfirmed, tErr.From)
		assert.Equal(t, StatusConfirmed, tErr.To)
	})
}

// =============================================================================
// COMPLETION
// =============================================================================

func TestService_MarkCompleted(t *testing.T) {
	ctx := context.Background()

	t.Run("before travel date is rejected", func(t *testing.T) {
		// GIVEN a confirmed booking on a future departure
		svc, store, _ := newTestService(t, inventory.DefaultFareConfig())
		b, err := svc.Create(ctx, CreateParams{
			UserID:     "user-1",
			ScheduleID: "sch-1",
			Passengers: party(inventory.PassengerAdult),
		})
		require.NoError(t, err)
		require.NoError(t, b.Confirm(MethodWallet, "tx-1", time.Now().UTC()))
		require.NoError(t, store.UpdateBooking(ctx, *b))

		// WHEN completing early
		_, err = svc.MarkCompleted(ctx, b.ID)

		// THEN the transition is refused
		assert.ErrorIs(t, err, ErrTravelDateNotPassed)
	})

	t.Run("after travel date succeeds", func(t *testing.T) {
		// GIVEN a confirmed booking whose departure has passed
		svc, store, invStore := newTestService(t, inventory.DefaultFareConfig())
		sched, _ := invStore.GetSchedule(ctx, "sch-1")
		sched.DepartureDate = time.Now().UTC().Add(-24 * time.Hour)
		require.NoError(t, invStore.SaveSchedule(ctx, *sched))

		b, err := svc.Create(ctx, CreateParams{
			UserID:     "user-1",
			ScheduleID: "sch-1",
			Passengers: party(inventory.PassengerAdult),
		})
		require.NoError(t, err)
		require.NoError(t, b.Confirm(MethodWallet, "tx-1", time.Now().UTC()))
		require.NoError(t, store.UpdateBooking(ctx, *b))

		// WHEN completing
		done, err := svc.MarkCompleted(ctx, b.ID)

		// THEN the booking is COMPLETED
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, done.Status)
	})
}
