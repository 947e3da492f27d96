// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.  Each event type travels on its own durable queue through
// the default exchange.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published after a booking transaction commits.
// It contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID      uint64   `json:"booking_id"`
	BookingNumber  string   `json:"booking_number"`
	BookingURL     string   `json:"booking_url"`
	UserID         *uint64  `json:"user_id,omitempty"`
	ScreeningID    uint64   `json:"screening_id"`
	MovieTitle     string   `json:"movie_title,omitempty"`
	AuditoriumName string   `json:"auditorium_name,omitempty"`
	ScreeningTime  string   `json:"screening_time,omitempty"`
	SeatLabels     []string `json:"seats"`
	ConfirmedAt    string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published after a booking moves to cancelled.
type BookingCancelledEvent struct {
	BookingID     uint64   `json:"booking_id"`
	BookingNumber string   `json:"booking_number"`
	ScreeningID   uint64   `json:"screening_id"`
	SeatLabels    []string `json:"seats"`
	CancelledAt   string   `json:"cancelled_at"`
}
