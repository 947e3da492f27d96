// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and handlers to distinguish between different failure
// scenarios.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as booking a seat that an active booking already
// holds. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrBookingNotFound is returned when a booking lookup yields no rows.
var ErrBookingNotFound = errors.New("booking not found")

// ErrScreeningNotFound is returned when a screening lookup yields no rows.
var ErrScreeningNotFound = errors.New("screening not found")

// SeatConflictError names the seat that is already held by an active
// booking for the same screening. It matches ErrConflict under errors.Is.
type SeatConflictError struct {
	ScreeningID uint64
	SeatID      uint64
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat %d is already booked for screening %d", e.SeatID, e.ScreeningID)
}

func (e *SeatConflictError) Is(target error) bool { return target == ErrConflict }

const (
	mysqlDuplicateEntry  = 1062 // ER_DUP_ENTRY
	mysqlLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	mysqlLockDeadlock    = 1213 // ER_LOCK_DEADLOCK
)

func mysqlErrNumber(err error) uint16 {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}

// isSeatContention reports whether err means another transaction holds or
// is racing for the same seat rows.  InnoDB rolls back the losing
// transaction of a deadlock, so the caller sees it as a taken seat.
func isSeatContention(err error) bool {
	switch mysqlErrNumber(err) {
	case mysqlDuplicateEntry, mysqlLockWaitTimeout, mysqlLockDeadlock:
		return true
	}
	return false
}
