package model

import "time"

// ScreeningSummary joins a screening with the names shown to customers.
// Confirmation e-mails fall back to it when the client did not send the
// movie title, auditorium name or screening time.
type ScreeningSummary struct {
	ScreeningID    uint64
	MovieTitle     string
	AuditoriumName string
	StartsAt       time.Time
}
