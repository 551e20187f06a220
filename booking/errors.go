/*
errors.go - Booking error taxonomy

SEE ALSO:
  - types.go: transitions that raise InvalidStateTransitionError
  - service.go: validation on creation and completion
*/
package booking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBookingNotFound is returned when a referenced booking doesn't exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidStateTransition is returned for a transition the state
	// machine does not allow.
	ErrInvalidStateTransition = errors.New("invalid booking state transition")

	// ErrNoPassengers is returned when creating a booking with an empty
	// passenger list.
	ErrNoPassengers = errors.New("booking requires at least one passenger")

	// ErrNoAdultPassenger is returned when no adult accompanies the party.
	ErrNoAdultPassenger = errors.New("booking requires at least one adult passenger")

	// ErrReturnScheduleRequired is returned for a round trip without a
	// return schedule.
	ErrReturnScheduleRequired = errors.New("round trip requires a return schedule")

	// ErrTravelDateNotPassed is returned when completing a booking before
	// its departure date.
	ErrTravelDateNotPassed = errors.New("booking cannot be completed before travel date")

	// ErrDuplicateReference is returned by a store when an insert collides
	// with an existing booking reference. Callers regenerate and retry.
	ErrDuplicateReference = errors.New("booking reference already exists")

	// ErrReferenceGenerationFailed is returned when reference generation
	// keeps colliding. Collisions themselves are retried, never surfaced.
	ErrReferenceGenerationFailed = errors.New("could not generate a unique booking reference")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidStateTransitionError names the transition that was rejected.
type InvalidStateTransitionError struct {
	Reference string
	From      Status
	To        Status
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("booking %s: cannot transition from %s to %s", e.Reference, e.From, e.To)
}

func (e *InvalidStateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrNoPassengers) ||
		errors.Is(err, ErrNoAdultPassenger) ||
		errors.Is(err, ErrReturnScheduleRequired) ||
		errors.Is(err, ErrTravelDateNotPassed)
}

// IsNotFound returns true if the error indicates a missing booking.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookingNotFound)
}
