package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/skyfare/booking-engine/money"
)

func TestBus_PublishSubscribe(t *testing.T) {
	// GIVEN a bus with two subscribers
	bus := NewBus()
	var first, second []any
	bus.Subscribe(func(e any) { first = append(first, e) })
	bus.Subscribe(func(e any) { second = append(second, e) })

	// WHEN two events are published
	bus.Publish(WalletRecharged{WalletID: "w-1", Amount: money.MustParse("500.00"), At: time.Now()})
	bus.Publish(BookingConfirmed{Reference: "SBABC123", Seats: 2, At: time.Now()})

	// THEN both subscribers see both events, in order
	assert.Len(t, first, 2)
	assert.Len(t, second, 2)
	_, ok := first[0].(WalletRecharged)
	assert.True(t, ok)
	_, ok = first[1].(BookingConfirmed)
	assert.True(t, ok)
}

func TestBus_NilIsNoOp(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() {
		bus.Publish(WalletExpired{WalletID: "w-1"})
	})
}
