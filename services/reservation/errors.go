package reservation

import (
	"errors"
	"fmt"
	"strings"

	"adspot/models"
)

// The failure taxonomy of the reservation service. Every condition a caller
// may need to branch on is a distinct sentinel or typed error; callers use
// errors.Is / errors.As and never match on message text.
var (
	// ErrNotFound: no reservation with the given id.
	ErrNotFound = errors.New("reservation not found")

	// ErrForbidden: the acting party is not the owner/renter the operation
	// requires.
	ErrForbidden = errors.New("acting party is not permitted to perform this operation")

	// ErrAlreadyCancelled: the owner tried to accept a booking the renter
	// had already cancelled. Distinguished from a plain invalid transition
	// so clients can refresh their view instead of retrying.
	ErrAlreadyCancelled = errors.New("booking was already cancelled by the renter")

	// ErrConflict: the optimistic transaction kept losing write races and
	// the bounded retry budget ran out. The caller may re-read and retry.
	ErrConflict = errors.New("reservation was modified concurrently, retries exhausted")

	// ErrPaymentFailed: the payment gateway refused or failed the charge.
	// Nothing was persisted.
	ErrPaymentFailed = errors.New("payment capture failed")

	// ErrInvalidInput: malformed create input (empty dates, bad date format,
	// non-positive amount, missing ids).
	ErrInvalidInput = errors.New("invalid reservation input")
)

// InvalidTransitionError reports an event that has no edge from the
// reservation's current status. It is a permanent condition, not a race.
type InvalidTransitionError struct {
	Status models.ReservationStatus
	Event  Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot apply event %q to a %s reservation", e.Event, e.Status)
}

// DateConflictError carries the exact dates already committed for the screen,
// sorted, so callers can show the renter which days to change.
type DateConflictError struct {
	Dates []string
}

func (e *DateConflictError) Error() string {
	return fmt.Sprintf("dates already booked for this screen: %s", strings.Join(e.Dates, ", "))
}
