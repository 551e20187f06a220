/*
Package events is a small in-process pub/sub bus for domain events.

PURPOSE:
  Decouples the core operations from their side effects. Confirming a
  booking, expiring a wallet, or issuing a recharge publishes an event;
  metrics, logging, and any future notification channel subscribe without
  the core packages knowing about them.

DELIVERY:
  Synchronous and in-order per Publish call. Handlers run on the
  publisher's goroutine, so they must be quick and must not call back
  into the publishing service.
*/
package events

import (
	"sync"
	"time"

	"github.com/skyfare/booking-engine/money"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

type BookingConfirmed struct {
	Reference  string
	UserID     string
	ScheduleID string
	Seats      int
	Total      money.Amount
	At         time.Time
}

type BookingCancelled struct {
	Reference string
	UserID    string
	Refunded  bool
	At        time.Time
}

type WalletRecharged struct {
	WalletID string
	UserID   string
	Amount   money.Amount
	At       time.Time
}

type WalletExpired struct {
	WalletID string
	UserID   string
	Clawback money.Amount
	At       time.Time
}

// =============================================================================
// BUS
// =============================================================================

// Handler receives every published event and switches on its type.
type Handler func(event any)

// Publisher is the write side of the bus. Services hold this interface so
// tests can pass a nil bus or a recording fake.
type Publisher interface {
	Publish(event any)
}

// Bus fans published events out to all subscribers, synchronously.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler. There is no unsubscribe; subscribers live
// for the life of the process.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers the event to every handler in subscription order.
// A nil *Bus is a valid no-op publisher.
func (b *Bus) Publish(event any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}
