/*
orchestrator.go - Confirm and cancel as sagas

PURPOSE:
  Confirmation spans three effects: inventory seats, a wallet debit (or a
  verified gateway payment), and the booking state transition. No two of
  the three may be observed independently. The orchestrator runs them as
  a saga with an explicit compensation per step:

    1. reserve seats (both legs)      compensate: release seats
    2. debit wallet                   compensate: refund debit
    3. persist CONFIRMED booking

  Seats come first so an inventory failure rejects the payment before any
  money moves. A later failure unwinds in reverse order. Compensation
  failures are logged loudly; they leave state an operator must settle by
  hand, which is why each step is kept as small as possible.

CANCELLATION:
  PENDING bookings never held seats, so cancelling one only flips state.
  CONFIRMED bookings release their seats and, when wallet-paid, credit a
  refund. Gateway-paid bookings are marked REFUNDED; the actual money
  moves through the gateway's own refund flow.

SEE ALSO:
  - gateway.go: order creation and callback verification
  - wallet: the debit/refund ledger semantics
*/
package payment

import (
	"context"
	"log"
	"time"

	"github.com/skyfare/booking-engine/booking"
	"github.com/skyfare/booking-engine/events"
	"github.com/skyfare/booking-engine/inventory"
	"github.com/skyfare/booking-engine/wallet"
)

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator coordinates bookings, inventory, wallets, and the gateway.
// All lifecycle operations on one booking are serialized by a per-booking
// lock so the status check and the effects it guards act as one unit.
type Orchestrator struct {
	bookings *booking.Service
	store    booking.Store
	inv      *inventory.Service
	wallets  *wallet.Service
	gateway  Gateway
	events   events.Publisher
	locks    *keyedMutex
	now      func() time.Time
}

func NewOrchestrator(bookings *booking.Service, store booking.Store, inv *inventory.Service, wallets *wallet.Service, gw Gateway, bus events.Publisher) *Orchestrator {
	return &Orchestrator{
		bookings: bookings,
		store:    store,
		inv:      inv,
		wallets:  wallets,
		gateway:  gw,
		events:   bus,
		locks:    newKeyedMutex(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (o *Orchestrator) publish(event any) {
	if o.events != nil {
		o.events.Publish(event)
	}
}

// legs returns the schedules a booking holds seats on.
func legs(b *booking.Booking) []string {
	out := []string{b.ScheduleID}
	if b.TripType == booking.TripRoundTrip && b.ReturnScheduleID != "" {
		out = append(out, b.ReturnScheduleID)
	}
	return out
}

// reserveLegs takes seats on every leg, unwinding earlier legs when a later
// one fails.
func (o *Orchestrator) reserveLegs(ctx context.Context, b *booking.Booking) error {
	seats := b.SeatCount()
	var taken []string
	for _, scheduleID := range legs(b) {
		if err := o.inv.Reserve(ctx, scheduleID, seats); err != nil {
			for _, prev := range taken {
				if relErr := o.inv.Release(ctx, prev, seats); relErr != nil {
					log.Printf("[Payment] COMPENSATION FAILED: release %d seats on %s for %s: %v",
						seats, prev, b.Reference, relErr)
				}
			}
			return err
		}
		taken = append(taken, scheduleID)
	}
	return nil
}

func (o *Orchestrator) releaseLegs(ctx context.Context, b *booking.Booking) error {
	seats := b.SeatCount()
	for _, scheduleID := range legs(b) {
		if err := o.inv.Release(ctx, scheduleID, seats); err != nil {
			return err
		}
	}
	return nil
}

// reReserveLegs undoes a release during compensation. Failures are logged,
// not returned: by this point the caller is already unwinding.
func (o *Orchestrator) reReserveLegs(ctx context.Context, b *booking.Booking) {
	for _, scheduleID := range legs(b) {
		if err := o.inv.Reserve(ctx, scheduleID, b.SeatCount()); err != nil {
			log.Printf("[Payment] COMPENSATION FAILED: re-reserve seats on %s for %s: %v",
				scheduleID, b.Reference, err)
		}
	}
}

// =============================================================================
// WALLET PATH
// =============================================================================

// PayWithWallet confirms a PENDING booking by debiting the wallet for the
// booking total. Seats are reserved before the debit; any failure after a
// completed step runs that step's compensation.
func (o *Orchestrator) PayWithWallet(ctx context.Context, bookingID, walletID string) (*booking.Booking, error) {
	unlock := o.locks.Lock(bookingID)
	defer unlock()

	b, err := o.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != booking.StatusPending {
		return nil, &booking.InvalidStateTransitionError{
			Reference: b.Reference, From: b.Status, To: booking.StatusConfirmed,
		}
	}

	// Step 1: seats. Fails before any money moves.
	if err := o.reserveLegs(ctx, b); err != nil {
		return nil, err
	}

	// Step 2: debit.
	tx, err := o.wallets.Debit(ctx, walletID, b.Fare.Total, b.Reference, "payment for booking "+b.Reference)
	if err != nil {
		if relErr := o.releaseLegs(ctx, b); relErr != nil {
			log.Printf("[Payment] COMPENSATION FAILED: release seats for %s: %v", b.Reference, relErr)
		}
		return nil, err
	}

	// Step 3: persist the transition.
	now := o.now()
	if err := b.Confirm(booking.MethodWallet, tx.ID, now); err != nil {
		o.compensateWalletPayment(ctx, b, walletID)
		return nil, err
	}
	b.WalletID = walletID
	if err := o.store.UpdateBooking(ctx, *b); err != nil {
		o.compensateWalletPayment(ctx, b, walletID)
		return nil, err
	}

	o.publish(events.BookingConfirmed{
		Reference:  b.Reference,
		UserID:     b.UserID,
		ScheduleID: b.ScheduleID,
		Seats:      b.SeatCount(),
		Total:      b.Fare.Total,
		At:         now,
	})
	return b, nil
}

func (o *Orchestrator) compensateWalletPayment(ctx context.Context, b *booking.Booking, walletID string) {
	if _, err := o.wallets.Refund(ctx, walletID, b.Fare.Total, b.Reference, "reversal of failed confirmation"); err != nil {
		log.Printf("[Payment] COMPENSATION FAILED: refund %s to wallet %s for %s: %v",
			b.Fare.Total, walletID, b.Reference, err)
	}
	if err := o.releaseLegs(ctx, b); err != nil {
		log.Printf("[Payment] COMPENSATION FAILED: release seats for %s: %v", b.Reference, err)
	}
}

// =============================================================================
// GATEWAY PATH
// =============================================================================

// BeginGatewayPayment opens a gateway order for a PENDING booking. The
// booking stays PENDING and holds no seats until the verified callback.
func (o *Orchestrator) BeginGatewayPayment(ctx context.Context, bookingID string) (*Order, error) {
	unlock := o.locks.Lock(bookingID)
	defer unlock()

	b, err := o.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != booking.StatusPending {
		return nil, &booking.InvalidStateTransitionError{
			Reference: b.Reference, From: b.Status, To: booking.StatusConfirmed,
		}
	}

	order, err := o.gateway.CreateOrder(ctx, b.Fare.Total, b.Reference)
	if err != nil {
		return nil, err
	}
	b.GatewayOrderID = order.ID
	b.UpdatedAt = o.now()
	if err := o.store.UpdateBooking(ctx, *b); err != nil {
		return nil, err
	}
	return order, nil
}

// ConfirmGatewayPayment handles the signed callback. Verification failure
// leaves the booking PENDING and untouched. On success the same
// reserve-then-confirm unit runs as the wallet path, with the gateway
// payment id as the reference.
func (o *Orchestrator) ConfirmGatewayPayment(ctx context.Context, bookingID, orderID, paymentID, signature string) (*booking.Booking, error) {
	unlock := o.locks.Lock(bookingID)
	defer unlock()

	b, err := o.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != booking.StatusPending {
		return nil, &booking.InvalidStateTransitionError{
			Reference: b.Reference, From: b.Status, To: booking.StatusConfirmed,
		}
	}
	if b.GatewayOrderID == "" {
		return nil, ErrNoGatewayOrder
	}
	if b.GatewayOrderID != orderID {
		return nil, ErrOrderMismatch
	}
	if err := o.gateway.Verify(orderID, paymentID, signature); err != nil {
		return nil, err
	}

	if err := o.reserveLegs(ctx, b); err != nil {
		return nil, err
	}

	now := o.now()
	if err := b.Confirm(booking.MethodGateway, paymentID, now); err != nil {
		if relErr := o.releaseLegs(ctx, b); relErr != nil {
			log.Printf("[Payment] COMPENSATION FAILED: release seats for %s: %v", b.Reference, relErr)
		}
		return nil, err
	}
	if err := o.store.UpdateBooking(ctx, *b); err != nil {
		if relErr := o.releaseLegs(ctx, b); relErr != nil {
			log.Printf("[Payment] COMPENSATION FAILED: release seats for %s: %v", b.Reference, relErr)
		}
		return nil, err
	}

	o.publish(events.BookingConfirmed{
		Reference:  b.Reference,
		UserID:     b.UserID,
		ScheduleID: b.ScheduleID,
		Seats:      b.SeatCount(),
		Total:      b.Fare.Total,
		At:         now,
	})
	return b, nil
}

// =============================================================================
// CANCELLATION
// =============================================================================

// Cancel cancels a PENDING or CONFIRMED booking. Only a CONFIRMED booking
// releases seats: a PENDING one never held any. Wallet-paid bookings get a
// refund credit; gateway-paid ones are marked refunded and settled through
// the gateway's own flow.
func (o *Orchestrator) Cancel(ctx context.Context, bookingID string) (*booking.Booking, error) {
	unlock := o.locks.Lock(bookingID)
	defer unlock()

	b, err := o.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := o.now()
	refunded := false

	switch b.Status {
	case booking.StatusPending:
		if err := b.Cancel(b.PaymentStatus, now); err != nil {
			return nil, err
		}
		if err := o.store.UpdateBooking(ctx, *b); err != nil {
			return nil, err
		}

	case booking.StatusConfirmed:
		if err := o.releaseLegs(ctx, b); err != nil {
			return nil, err
		}
		walletRefund := b.PaymentMethod == booking.MethodWallet && b.WalletID != ""
		if walletRefund {
			if _, err := o.wallets.Refund(ctx, b.WalletID, b.Fare.Total, b.Reference, "refund for cancelled booking "+b.Reference); err != nil {
				// Undo the release so the rejected cancel is a no-op.
				o.reReserveLegs(ctx, b)
				return nil, err
			}
		}
		refunded = true
		if err := b.Cancel(booking.PaymentRefunded, now); err != nil {
			o.compensateCancellation(ctx, b, walletRefund)
			return nil, err
		}
		if err := o.store.UpdateBooking(ctx, *b); err != nil {
			o.compensateCancellation(ctx, b, walletRefund)
			return nil, err
		}

	default:
		return nil, &booking.InvalidStateTransitionError{
			Reference: b.Reference, From: b.Status, To: booking.StatusCancelled,
		}
	}

	o.publish(events.BookingCancelled{
		Reference: b.Reference,
		UserID:    b.UserID,
		Refunded:  refunded,
		At:        now,
	})
	return b, nil
}

// compensateCancellation unwinds a cancellation whose state transition could
// not be persisted: the refund is debited back and the seats re-reserved so
// the booking remains a valid CONFIRMED holding.
func (o *Orchestrator) compensateCancellation(ctx context.Context, b *booking.Booking, walletRefund bool) {
	if walletRefund {
		if _, err := o.wallets.Debit(ctx, b.WalletID, b.Fare.Total, b.Reference, "reversal of failed cancellation"); err != nil {
			log.Printf("[Payment] COMPENSATION FAILED: re-debit %s from wallet %s for %s: %v",
				b.Fare.Total, b.WalletID, b.Reference, err)
		}
	}
	o.reReserveLegs(ctx, b)
}
