/*
Package booking implements the booking record and its state machine.

PURPOSE:
  A Booking is created PENDING with a computed fare breakdown and no
  inventory held. Seats are taken only at confirmation time, by the
  payment orchestrator. The legal transitions are:

    PENDING   -> CONFIRMED -> COMPLETED
    PENDING   -> CANCELLED
    CONFIRMED -> CANCELLED

  COMPLETED and CANCELLED are terminal. Bookings are never hard-deleted;
  terminal states remain for audit.

FARES:
  Total is always base + tax - discount, quantized to two decimals. The
  breakdown is computed once at creation from the schedule's fares and
  frozen on the record; later fare changes never reprice an existing
  booking.

SEATS:
  Adults and children each hold a seat; infants travel on a lap and never
  consume inventory. SeatCount is therefore adults + children.

SEE ALSO:
  - reference.go: unique human-readable booking references
  - service.go: creation, completion, and lookup
  - payment: confirm/cancel orchestration
*/
package booking

import (
	"context"
	"time"

	"github.com/skyfare/booking-engine/inventory"
	"github.com/skyfare/booking-engine/money"
)

// =============================================================================
// ENUMS
// =============================================================================

// Status is the booking lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// PaymentStatus tracks the money side independently of the lifecycle state.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// TripType distinguishes one-way from round trips.
type TripType string

const (
	TripOneWay    TripType = "ONE_WAY"
	TripRoundTrip TripType = "ROUND_TRIP"
)

// Method is how the booking was (or will be) paid.
type Method string

const (
	MethodWallet  Method = "WALLET"
	MethodGateway Method = "GATEWAY"
)

// =============================================================================
// CORE TYPES
// =============================================================================

// Passenger is one traveller on a booking.
type Passenger struct {
	ID       string
	Name     string
	Age      int
	Type     inventory.PassengerType
	SeatPref string
}

// FareBreakdown is frozen at creation. Total == base + tax - discount.
type FareBreakdown struct {
	BaseFare money.Amount
	Tax      money.Amount
	Discount money.Amount
	Total    money.Amount
}

// Booking is one reservation request and its full lifecycle.
type Booking struct {
	ID               string
	Reference        string
	UserID           string
	ScheduleID       string
	ReturnScheduleID string // empty for one-way trips
	TripType         TripType
	Passengers       []Passenger
	Status           Status
	PaymentStatus    PaymentStatus
	PaymentMethod    Method
	PaymentRef       string // wallet transaction id or gateway payment id
	WalletID         string // set for wallet payments, drives refunds
	GatewayOrderID   string // set when a gateway order was opened
	Fare             FareBreakdown
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SeatCount is the number of inventory seats this booking holds per leg.
func (b *Booking) SeatCount() int {
	n := 0
	for _, p := range b.Passengers {
		if p.Type != inventory.PassengerInfant {
			n++
		}
	}
	return n
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

// Confirm moves PENDING -> CONFIRMED and marks the booking paid.
func (b *Booking) Confirm(method Method, paymentRef string, now time.Time) error {
	if b.Status != StatusPending {
		return &InvalidStateTransitionError{Reference: b.Reference, From: b.Status, To: StatusConfirmed}
	}
	b.Status = StatusConfirmed
	b.PaymentStatus = PaymentPaid
	b.PaymentMethod = method
	b.PaymentRef = paymentRef
	b.UpdatedAt = now
	return nil
}

// Cancel moves PENDING or CONFIRMED -> CANCELLED. The caller decides the
// resulting payment status (refunded or untouched).
func (b *Booking) Cancel(paymentStatus PaymentStatus, now time.Time) error {
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return &InvalidStateTransitionError{Reference: b.Reference, From: b.Status, To: StatusCancelled}
	}
	b.Status = StatusCancelled
	b.PaymentStatus = paymentStatus
	b.UpdatedAt = now
	return nil
}

// Complete moves CONFIRMED -> COMPLETED. Bookkeeping only.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return &InvalidStateTransitionError{Reference: b.Reference, From: b.Status, To: StatusCompleted}
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now
	return nil
}

// =============================================================================
// STORE - Persistence interface
// =============================================================================

// Store persists bookings and their passenger lists. CreateBooking returns
// ErrDuplicateReference when the reference collides with an existing row.
type Store interface {
	CreateBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (*Booking, error)
	GetBookingByReference(ctx context.Context, ref string) (*Booking, error)
	UpdateBooking(ctx context.Context, b Booking) error
	BookingsForUser(ctx context.Context, userID string) ([]Booking, error)
}
