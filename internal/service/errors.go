package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/repository"
)

// Error values returned by BookingService.  Handlers match them with
// errors.Is; anything else is a store failure.
var (
	// ErrValidation marks a request the client must fix.
	ErrValidation = errors.New("invalid booking request")
	// ErrNotFound is returned when the referenced booking does not exist.
	ErrNotFound = repository.ErrBookingNotFound
	// ErrSeatConflict is matched by the *repository.SeatConflictError
	// naming the seat that is already held.
	ErrSeatConflict = repository.ErrConflict
	// ErrTimeout is returned when an operation ran past the request
	// timeout.  The transaction has been rolled back.
	ErrTimeout = errors.New("booking operation timed out")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// classify turns deadline errors into ErrTimeout and annotates everything
// else with the operation name.  Sentinel errors stay matchable.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrSeatConflict) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
