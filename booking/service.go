/*
service.go - Booking creation, lookup, and completion

PURPOSE:
  Create prices a booking against current fares and persists it PENDING.
  No inventory is held until the payment orchestrator confirms. Complete
  closes the loop after travel: CONFIRMED -> COMPLETED, valid only once
  the departure date has passed.

SEE ALSO:
  - payment: confirm and cancel live there, with inventory and wallet
    effects coordinated as one unit
*/
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/skyfare/booking-engine/inventory"
	"github.com/skyfare/booking-engine/money"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service creates and tracks bookings. Confirmation and cancellation are
// owned by the payment orchestrator.
type Service struct {
	store Store
	inv   *inventory.Service
	now   func() time.Time
}

func NewService(store Store, inv *inventory.Service) *Service {
	return &Service{
		store: store,
		inv:   inv,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateParams is the booking request. Discount is applied to the fare
// breakdown as-is; promotions live outside this package.
type CreateParams struct {
	UserID           string
	ScheduleID       string
	ReturnScheduleID string
	TripType         TripType
	Passengers       []Passenger
	Discount         money.Amount
}

// Create prices the trip and persists a PENDING booking. Inventory is not
// touched: seats are taken at confirmation.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Booking, error) {
	if len(p.Passengers) == 0 {
		return nil, ErrNoPassengers
	}
	hasAdult := false
	for _, pax := range p.Passengers {
		if pax.Type == inventory.PassengerAdult {
			hasAdult = true
			break
		}
	}
	if !hasAdult {
		return nil, ErrNoAdultPassenger
	}
	if p.TripType == "" {
		p.TripType = TripOneWay
	}
	if p.TripType == TripRoundTrip && p.ReturnScheduleID == "" {
		return nil, ErrReturnScheduleRequired
	}

	fare, err := s.priceTrip(ctx, p)
	if err != nil {
		return nil, err
	}

	now := s.now()
	b := Booking{
		ID:               uuid.NewString(),
		UserID:           p.UserID,
		ScheduleID:       p.ScheduleID,
		ReturnScheduleID: p.ReturnScheduleID,
		TripType:         p.TripType,
		Passengers:       p.Passengers,
		Status:           StatusPending,
		PaymentStatus:    PaymentPending,
		Fare:             fare,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for i := range b.Passengers {
		if b.Passengers[i].ID == "" {
			b.Passengers[i].ID = uuid.NewString()
		}
	}

	// The store's unique index on reference is the source of truth. Insert
	// optimistically and regenerate on a collision.
	for attempt := 0; attempt < referenceRetries; attempt++ {
		ref, err := newReference()
		if err != nil {
			return nil, err
		}
		b.Reference = ref
		err = s.store.CreateBooking(ctx, b)
		if errors.Is(err, ErrDuplicateReference) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &b, nil
	}
	return nil, ErrReferenceGenerationFailed
}

// priceTrip sums per-passenger fares over both legs, then applies tax and
// discount. The breakdown is frozen on the booking record.
func (s *Service) priceTrip(ctx context.Context, p CreateParams) (FareBreakdown, error) {
	base := money.Zero()
	legs := []string{p.ScheduleID}
	if p.TripType == TripRoundTrip {
		legs = append(legs, p.ReturnScheduleID)
	}
	for _, scheduleID := range legs {
		for _, pax := range p.Passengers {
			fare, err := s.inv.FareFor(ctx, scheduleID, pax.Type)
			if err != nil {
				return FareBreakdown{}, err
			}
			base = base.Add(fare)
		}
	}

	tax := base.Mul(money.Pct(s.inv.Fares().TaxRatePct)).Quantize()
	total := base.Add(tax).Sub(p.Discount).Quantize()
	return FareBreakdown{
		BaseFare: base.Quantize(),
		Tax:      tax,
		Discount: p.Discount.Quantize(),
		Total:    total,
	}, nil
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func (s *Service) ByReference(ctx context.Context, ref string) (*Booking, error) {
	b, err := s.store.GetBookingByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func (s *Service) ForUser(ctx context.Context, userID string) ([]Booking, error) {
	return s.store.BookingsForUser(ctx, userID)
}

// =============================================================================
// COMPLETION
// =============================================================================

// MarkCompleted transitions a CONFIRMED booking to COMPLETED once the
// departure date has passed. No inventory or ledger effect.
func (s *Service) MarkCompleted(ctx context.Context, bookingID string) (*Booking, error) {
	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	sched, err := s.inv.Get(ctx, b.ScheduleID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if sched.DepartureDate.After(now) {
		return nil, ErrTravelDateNotPassed
	}

	if err := b.Complete(now); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBooking(ctx, *b); err != nil {
		return nil, err
	}
	return b, nil
}
