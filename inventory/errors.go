package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientInventory is returned when a reservation asks for more
	// seats than the schedule has available.
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// ErrCapacityExceeded is returned when a release would push available
	// seats above total seats.
	ErrCapacityExceeded = errors.New("release exceeds schedule capacity")

	// ErrScheduleNotFound is returned when a referenced schedule doesn't exist.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrScheduleInactive is returned when reserving against a deactivated schedule.
	ErrScheduleInactive = errors.New("schedule is not active")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientInventoryError reports how short the schedule is.
type InsufficientInventoryError struct {
	ScheduleID string
	Requested  int
	Available  int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory on schedule %s: requested %d seats, %d available",
		e.ScheduleID, e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Unwrap() error { return ErrInsufficientInventory }

// CapacityExceededError reports an over-release.
type CapacityExceededError struct {
	ScheduleID string
	Releasing  int
	Available  int
	Total      int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("cannot release %d seats on schedule %s: %d available of %d total",
		e.Releasing, e.ScheduleID, e.Available, e.Total)
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// IsClientError reports whether the error reflects bad input or an
// unsatisfiable request rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientInventory) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrScheduleNotFound) ||
		errors.Is(err, ErrScheduleInactive)
}

// IsNotFound reports whether the error is a missing-schedule error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrScheduleNotFound)
}
