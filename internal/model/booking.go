package model

import (
	"strconv"
	"time"
)

// Booking status values.  The only transition is active -> cancelled.
const (
	BookingActive    = "active"
	BookingCancelled = "cancelled"
)

// Booking records a reservation of zero or more seats for one screening.
// Seats are held while Status is active; cancelling frees them for new
// bookings without deleting the BookingSeat rows.
//
// Fields:
//
//	ID            – primary key identifier.
//	BookingNumber – human-facing code, three letters then three digits.
//	                Not guaranteed unique.
//	BookingURL    – twelve upper-case hex characters used as an opaque
//	                lookup token.
//	ScreeningID   – screening being booked.
//	UserID        – booking user; nil for anonymous bookings.
//	Status        – active or cancelled.
//	CancelledAt   – set when the booking is cancelled.
//	CreatedAt     – creation timestamp.
//	Seats         – seat rows owned by the booking.
type Booking struct {
	ID            uint64        `json:"id"`            // bookings.id
	BookingNumber string        `json:"bookingNumber"` // bookings.booking_number
	BookingURL    string        `json:"bookingUrl"`    // bookings.booking_url
	ScreeningID   uint64        `json:"screeningId"`   // bookings.screening_id
	UserID        *uint64       `json:"userId"`        // bookings.user_id (nullable)
	Status        string        `json:"status"`        // bookings.status
	CancelledAt   *time.Time    `json:"cancelledAt"`   // bookings.cancelled_at (nullable)
	CreatedAt     time.Time     `json:"createdAt"`     // bookings.created_at
	Seats         []BookingSeat `json:"seats"`
}

// Active reports whether the booking still holds its seats.
func (b *Booking) Active() bool { return b.Status == BookingActive }

// BookingSeat assigns one physical seat and a ticket type to a booking.
// ScreeningID is denormalized from the owning booking so the active-seat
// constraint can be enforced on this table alone.  RowLabel and SeatNumber
// are read from the seats table and are empty when the seat row could not
// be joined.
type BookingSeat struct {
	ID           uint64 `json:"id"`                   // booking_seats.id
	BookingID    uint64 `json:"bookingId"`            // booking_seats.booking_id
	ScreeningID  uint64 `json:"screeningId"`          // booking_seats.screening_id
	SeatID       uint64 `json:"seatId"`               // booking_seats.seat_id
	TicketTypeID uint64 `json:"ticketTypeId"`         // booking_seats.ticket_type_id
	RowLabel     string `json:"rowLabel,omitempty"`   // seats.row_label
	SeatNumber   uint32 `json:"seatNumber,omitempty"` // seats.seat_number
}

// Label renders the seat as row plus number (e.g. "C7").  It falls back to
// the seat id when the position is unknown.
func (s BookingSeat) Label() string {
	if s.RowLabel == "" || s.SeatNumber == 0 {
		return "#" + strconv.FormatUint(s.SeatID, 10)
	}
	return s.RowLabel + strconv.FormatUint(uint64(s.SeatNumber), 10)
}

// SeatRequest is one requested seat in a new booking.
type SeatRequest struct {
	SeatID       uint64 `json:"seatId"`
	TicketTypeID uint64 `json:"ticketTypeId"`
}
