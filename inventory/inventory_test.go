package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfare/booking-engine/money"
)

// fakeStore is an in-memory Store with the same conditional-update semantics
// as the sqlite implementation.
type fakeStore struct {
	mu        sync.Mutex
	schedules map[string]Schedule
}

func newFakeStore() *fakeStore {
	return &fakeStore{schedules: make(map[string]Schedule)}
}

func (f *fakeStore) GetSchedule(_ context.Context, id string) (*Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeStore) SaveSchedule(_ context.Context, s Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedules[s.ID] = s
	return nil
}

func (f *fakeStore) ListSchedules(_ context.Context, origin, destination string, date *time.Time) ([]Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Schedule
	for _, s := range f.schedules {
		if origin != "" && s.Origin != origin {
			continue
		}
		if destination != "" && s.Destination != destination {
			continue
		}
		if date != nil && !s.DepartureDate.Equal(*date) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) ReserveSeats(_ context.Context, id string, n int) (bool, error) {
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

func (f *fakeStore) ReleaseSeats(_ context.Context, id string, n int) (bool, error) {
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

func seedSchedule(t *testing.T, store *fakeStore, id string, available, total int) Schedule {
	t.Helper()
	s := Schedule{
		ID:             id,
		RouteName:      "Harbor Express",
		Origin:         "Northport",
		Destination:    "Easthaven",
		DepartureDate:  time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
		TotalSeats:     total,
		AvailableSeats: available,
		AdultFare:      money.MustParse("120.00"),
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, store.SaveSchedule(context.Background(), s))
	return s
}

func TestService_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves seats when enough are available", func(t *testing.T) {
		// GIVEN a schedule with 10 available seats
		store := newFakeStore()
		seedSchedule(t, store, "sch-1", 10, 10)
		svc := NewService(store, DefaultFareConfig())

		// WHEN reserving 3 seats
		err := svc.Reserve(ctx, "sch-1", 3)

		// THEN the reservation succeeds and the counter drops
		require.NoError(t, err)
		avail, total, err := svc.Availability(ctx, "sch-1")
		require.NoError(t, err)
		assert.Equal(t, 7, avail)
		assert.Equal(t, 10, total)
	})

	t.Run("rejects reservation beyond availability", func(t *testing.T) {
		// GIVEN a schedule with 2 available seats
		store := newFakeStore()
		seedSchedule(t, store, "sch-1", 2, 10)
		svc := NewService(store, DefaultFareConfig())

		// WHEN reserving 3 seats
		err := svc.Reserve(ctx, "sch-1", 3)

		// THEN the reservation fails with the structured error and nothing changes
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInsufficientInventory)
		var iErr *InsufficientInventoryError
		require.ErrorAs(t, err, &iErr)
		assert.Equal(t, 3, iErr.Requested)
		assert.Equal(t, 2, iErr.Available)

		avail, _, _ := svc.Availability(ctx, "sch-1")
		assert.Equal(t, 2, avail)
	})

	t.Run("zero seats is a no-op", func(t *testing.T) {
		// GIVEN a fully booked schedule
		store := newFakeStore()
		seedSchedule(t, store, "sch-1", 0, 10)
		svc := NewService(store, DefaultFareConfig())

		// WHEN reserving zero seats (infant-only booking)
		err := svc.Reserve(ctx, "sch-1", 0)

		// THEN no error even though nothing is available
		require.NoError(t, err)
	})

	t.Run("rejects reservation on an inactive schedule", func(t *testing.T) {
		store := newFakeStore()
		s := seedSchedule(t, store, "sch-1", 10, 10)
		s.IsActive = false
		require.NoError(t, store.SaveSchedule(ctx, s))
		svc := NewService(store, DefaultFareConfig())

		err := svc.Reserve(ctx, "sch-1", 1)
		assert.ErrorIs(t, err, ErrScheduleInactive)
	})

	t.Run("unknown schedule", func(t *testing.T) {
		svc := NewService(newFakeStore(), DefaultFareConfig())
		err := svc.Reserve(ctx, "nope", 1)
		assert.ErrorIs(t, err, ErrScheduleNotFound)
	})
}

func TestService_Release(t *testing.T) {
	ctx := context.Background()

	t.Run("returns seats to the pool", func(t *testing.T) {
		// GIVEN a schedule with 7 of 10 seats available
		store := newFakeStore()
		seedSchedule(t, store, "sch-1", 7, 10)
		svc := NewService(store, DefaultFareConfig())

		// WHEN releasing 2 seats
		err := svc.Release(ctx, "sch-1", 2)

		// THEN availability rises to 9
		require.NoError(t, err)
		avail, _, _ := svc.Availability(ctx, "sch-1")
		assert.Equal(t, 9, avail)
	})

	t.Run("rejects release beyond capacity", func(t *testing.T) {
		// GIVEN a schedule already at full availability
		store := newFakeStore()
		seedSchedule(t, store, "sch-1", 10, 10)
		svc := NewService(store, DefaultFareConfig())

		// WHEN releasing one more seat
		err := svc.Release(ctx, "sch-1", 1)

		// THEN the release fails and the counter stays at total
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCapacityExceeded)
		avail, _, _ := svc.Availability(ctx, "sch-1")
		assert.Equal(t, 10, avail)
	})
}

func TestService_Reserve_Concurrent(t *testing.T) {
	// GIVEN a schedule with 5 available seats
	ctx := context.Background()
	store := newFakeStore()
	seedSchedule(t, store, "sch-1", 5, 5)
	svc := NewService(store, DefaultFareConfig())

	// WHEN 20 goroutines each try to reserve one seat
	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Reserve(ctx, "sch-1", 1)
		}()
	}
	wg.Wait()
	close(results)

	// THEN exactly 5 succeed and the rest fail with insufficient inventory
	succeeded, failed := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientInventory)
			failed++
		}
	}
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 15, failed)

	avail, _, err := svc.Availability(ctx, "sch-1")
	require.NoError(t, err)
	assert.Equal(t, 0, avail)
}

func TestService_FareFor(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit fares win over percentages", func(t *testing.T) {
		store := newFakeStore()
		s := seedSchedule(t, store, "sch-1", 10, 10)
		s.ChildFare = money.MustParse("80.00")
		s.InfantFare = money.MustParse("5.00")
		require.NoError(t, store.SaveSchedule(ctx, s))
		svc := NewService(store, DefaultFareConfig())

		child, err := svc.FareFor(ctx, "sch-1", PassengerChild)
		require.NoError(t, err)
		assert.Equal(t, "80.00", child.String())

		infant, err := svc.FareFor(ctx, "sch-1", PassengerInfant)
		require.NoError(t, err)
		assert.Equal(t, "5.00", infant.String())
	})

	t.Run("falls back to percentage of adult fare", func(t *testing.T) {
		// GIVEN a schedule with only an adult fare of 120.00
		store := newFakeStore()
		seedSchedule(t, store, "sch-1", 10, 10)
		svc := NewService(store, DefaultFareConfig())

		// THEN child pays 75% and infant 10%
		adult, err := svc.FareFor(ctx, "sch-1", PassengerAdult)
		require.NoError(t, err)
		assert.Equal(t, "120.00", adult.String())

		child, err := svc.FareFor(ctx, "sch-1", PassengerChild)
		require.NoError(t, err)
		assert.Equal(t, "90.00", child.String())

		infant, err := svc.FareFor(ctx, "sch-1", PassengerInfant)
		require.NoError(t, err)
		assert.Equal(t, "12.00", infant.String())
	})
}
