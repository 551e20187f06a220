package payment

import "errors"

var (
	// ErrPaymentVerificationFailed is returned when a gateway callback's
	// signature does not match. The booking stays PENDING.
	ErrPaymentVerificationFailed = errors.New("payment verification failed")

	// ErrOrderMismatch is returned when a callback references an order
	// that was not opened for the booking.
	ErrOrderMismatch = errors.New("callback order does not match booking")

	// ErrNoGatewayOrder is returned when confirming a gateway payment for
	// a booking that never opened one.
	ErrNoGatewayOrder = errors.New("no gateway order open for booking")
)

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPaymentVerificationFailed) ||
		errors.Is(err, ErrOrderMismatch) ||
		errors.Is(err, ErrNoGatewayOrder)
}
