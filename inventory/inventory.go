/*
Package inventory manages per-schedule seat counters and fare tables.

PURPOSE:
  A Schedule is one bookable departure: a route on a date, carrying a finite
  seat count and per-passenger-type fares. This package owns the only two
  mutations that ever touch seat counts - Reserve and Release - and both are
  conditional, so the invariant

      0 <= available_seats <= total_seats

  holds under any interleaving of concurrent callers.

CONCURRENCY:
  Reserve and Release are single conditional updates executed by the store
  (UPDATE ... WHERE available_seats >= n). Two concurrent Reserve(1) calls
  against one remaining seat yield exactly one success; the loser gets
  InsufficientInventoryError. No caller-side locking is required.

FARES:
  Child and infant fares may be configured per schedule. When unset, they
  fall back to a configured percentage of the adult fare. The fallback is
  explicit (FareConfig), never hidden in fare lookups.

SEE ALSO:
  - store/sqlite: conditional-update implementation of Store
  - booking: computes fare breakdowns through Service.FareFor
*/
package inventory

import (
	"context"
	"time"

	"github.com/skyfare/booking-engine/money"
)

// =============================================================================
// TYPES
// =============================================================================

// PassengerType classifies a traveller for fare and seat purposes.
type PassengerType string

const (
	PassengerAdult  PassengerType = "adult"
	PassengerChild  PassengerType = "child"
	PassengerInfant PassengerType = "infant"
)

// Schedule is a bookable departure with seat inventory and fares.
type Schedule struct {
	ID            string
	RouteName     string
	Origin        string
	Destination   string
	DepartureDate time.Time
	TotalSeats    int
	AvailableSeats int
	AdultFare     money.Amount
	ChildFare     money.Amount // zero = unset, fall back to percentage of adult
	InfantFare    money.Amount // zero = unset, fall back to percentage of adult
	IsActive      bool
	CreatedAt     time.Time
}

// FareConfig makes the fare fallback explicit and configurable.
// ChildFarePct/InfantFarePct are percentages of the adult fare applied when
// a schedule has no explicit child/infant fare. TaxRatePct is applied to the
// base fare when building a booking's fare breakdown.
type FareConfig struct {
	ChildFarePct  float64
	InfantFarePct float64
	TaxRatePct    float64
}

// DefaultFareConfig mirrors the carrier's standing policy: children pay 75%
// of the adult fare, infants 10%, no tax.
func DefaultFareConfig() FareConfig {
	return FareConfig{ChildFarePct: 75, InfantFarePct: 10, TaxRatePct: 0}
}

// =============================================================================
// STORE - Persistence interface
// =============================================================================

// Store persists schedules. ReserveSeats and ReleaseSeats are conditional:
// they mutate the counter only when the bounds invariant would survive, and
// report whether they did.
type Store interface {
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	SaveSchedule(ctx context.Context, s Schedule) error
	ListSchedules(ctx context.Context, origin, destination string, date *time.Time) ([]Schedule, error)

	// ReserveSeats atomically decrements available_seats by n when
	// available_seats >= n and the schedule is active. Returns false
	// without mutating anything otherwise.
	ReserveSeats(ctx context.Context, id string, n int) (bool, error)

	// ReleaseSeats atomically increments available_seats by n when
	// available_seats + n <= total_seats. Returns false otherwise.
	ReleaseSeats(ctx context.Context, id string, n int) (bool, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service exposes the inventory operations over a Store.
type Service struct {
	store Store
	fares FareConfig
}

func NewService(store Store, fares FareConfig) *Service {
	return &Service{store: store, fares: fares}
}

func (s *Service) Fares() FareConfig { return s.fares }

// Reserve takes n seats from the schedule. Reserving zero seats is a no-op:
// infant-only legs hold no inventory.
func (s *Service) Reserve(ctx context.Context, scheduleID string, n int) error {
	if n == 0 {
		return nil
	}
	ok, err := s.store.ReserveSeats(ctx, scheduleID, n)
	if err != nil {
		return err
	}
	if !ok {
		sched, err := s.store.GetSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if sched == nil {
			return ErrScheduleNotFound
		}
		if !sched.IsActive {
			return ErrScheduleInactive
		}
		return &InsufficientInventoryError{
			ScheduleID: scheduleID,
			Requested:  n,
			Available:  sched.AvailableSeats,
		}
	}
	return nil
}

// Release returns n seats to the schedule, rejecting a release that would
// exceed total capacity.
func (s *Service) Release(ctx context.Context, scheduleID string, n int) error {
	if n == 0 {
		return nil
	}
	ok, err := s.store.ReleaseSeats(ctx, scheduleID, n)
	if err != nil {
		return err
	}
	if !ok {
		sched, err := s.store.GetSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if sched == nil {
			return ErrScheduleNotFound
		}
		return &CapacityExceededError{
			ScheduleID: scheduleID,
			Releasing:  n,
			Available:  sched.AvailableSeats,
			Total:      sched.TotalSeats,
		}
	}
	return nil
}

// FareFor returns the fare for one passenger of the given type on a schedule.
// Unset child/infant fares fall back to the configured percentage of adult.
func (s *Service) FareFor(ctx context.Context, scheduleID string, pt PassengerType) (money.Amount, error) {
	sched, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return money.Zero(), err
	}
	if sched == nil {
		return money.Zero(), ErrScheduleNotFound
	}
	return s.fareOf(sched, pt), nil
}

func (s *Service) fareOf(sched *Schedule, pt PassengerType) money.Amount {
	switch pt {
	case PassengerChild:
		if !sched.ChildFare.IsZero() {
			return sched.ChildFare
		}
		return sched.AdultFare.Mul(money.Pct(s.fares.ChildFarePct)).Quantize()
	case PassengerInfant:
		if !sched.InfantFare.IsZero() {
			return sched.InfantFare
		}
		return sched.AdultFare.Mul(money.Pct(s.fares.InfantFarePct)).Quantize()
	default:
		return sched.AdultFare
	}
}

// Availability returns the current seat counters for a schedule.
func (s *Service) Availability(ctx context.Context, scheduleID string) (available, total int, err error) {
	sched, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return 0, 0, err
	}
	if sched == nil {
		return 0, 0, ErrScheduleNotFound
	}
	return sched.AvailableSeats, sched.TotalSeats, nil
}

// Get returns a schedule by id, ErrScheduleNotFound when missing.
func (s *Service) Get(ctx context.Context, scheduleID string) (*Schedule, error) {
	sched, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if sched == nil {
		return nil, ErrScheduleNotFound
	}
	return sched, nil
}

// Save creates or updates a schedule.
func (s *Service) Save(ctx context.Context, sched Schedule) error {
	return s.store.SaveSchedule(ctx, sched)
}

// Search lists schedules matching the given filters. Empty origin or
// destination matches everything; a nil date skips the date filter.
func (s *Service) Search(ctx context.Context, origin, destination string, date *time.Time) ([]Schedule, error) {
	return s.store.ListSchedules(ctx, origin, destination, date)
}
