/*
metrics.go - Prometheus instrumentation

PURPOSE:
  Counts the business events the engine emits. The counters are fed by
  subscribing to the event bus, so instrumentation never touches domain
  code paths.

EXPOSED AT:
  GET /metrics (Prometheus text format)

SEE ALSO:
  - events/bus.go: Event types
  - server.go: Mounts the /metrics handler
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/skyfare/booking-engine/events"
)

var (
	bookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_engine_bookings_confirmed_total",
		Help: "Bookings that reached CONFIRMED.",
	})
	bookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_engine_bookings_cancelled_total",
		Help: "Bookings that were cancelled.",
	})
	seatsSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_engine_seats_sold_total",
		Help: "Seats committed by confirmed bookings.",
	})
	walletRecharges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_engine_wallet_recharges_total",
		Help: "Wallet credit operations.",
	})
	walletsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_engine_wallets_expired_total",
		Help: "Admin-issued wallets settled by the expiry sweep.",
	})
)

// RegisterEventMetrics wires the counters to the event bus.
func RegisterEventMetrics(bus *events.Bus) {
	bus.Subscribe(func(event any) {
		switch e := event.(type) {
		case events.BookingConfirmed:
			bookingsConfirmed.Inc()
			seatsSold.Add(float64(e.Seats))
		case events.BookingCancelled:
			bookingsCancelled.Inc()
		case events.WalletRecharged:
			walletRecharges.Inc()
		case events.WalletExpired:
			walletsExpired.Inc()
		}
	})
}
