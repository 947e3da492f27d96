package service

import (
	"context"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/mailer"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// ScreeningSummarizer looks up display names for a screening.
type ScreeningSummarizer interface {
	Summary(ctx context.Context, id uint64) (*model.ScreeningSummary, error)
}

// screeningTimeLayout formats screening times in confirmation e-mails.
const screeningTimeLayout = "Mon 2 Jan 2006, 15:04 MST"

// EmailHook sends the booking confirmation e-mail.  Movie title,
// auditorium and time come from the client's contact info; blanks are
// filled from the screening summary when one is available.
type EmailHook struct {
	sender     mailer.Sender
	screenings ScreeningSummarizer
	baseURL    string
}

// NewEmailHook builds the hook.  screenings may be nil.
func NewEmailHook(sender mailer.Sender, screenings ScreeningSummarizer, baseURL string) *EmailHook {
	return &EmailHook{sender: sender, screenings: screenings, baseURL: baseURL}
}

// BookingCreated renders and sends the confirmation.  Bookings without an
// e-mail address are skipped.
func (h *EmailHook) BookingCreated(ctx context.Context, b *model.Booking, contact ContactInfo) error {
	if contact.Email == "" {
		return nil
	}
	conf := mailer.Confirmation{
		BookingNumber:  b.BookingNumber,
		MovieTitle:     contact.MovieTitle,
		AuditoriumName: contact.AuditoriumName,
		ScreeningTime:  contact.ScreeningTime,
		Seats:          seatLabels(b.Seats),
	}
	if h.baseURL != "" {
		conf.BookingLink = utils.BookingLink(h.baseURL, b.BookingURL)
	}
	if err := h.fillFromScreening(ctx, b.ScreeningID, &conf); err != nil {
		return err
	}
	msg, err := mailer.RenderConfirmation(contact.Email, conf)
	if err != nil {
		return err
	}
	return h.sender.Send(ctx, msg)
}

func (h *EmailHook) fillFromScreening(ctx context.Context, screeningID uint64, conf *mailer.Confirmation) error {
	if h.screenings == nil || (conf.MovieTitle != "" && conf.AuditoriumName != "" && conf.ScreeningTime != "") {
		return nil
	}
	sum, err := h.screenings.Summary(ctx, screeningID)
	if errors.Is(err, repository.ErrScreeningNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if conf.MovieTitle == "" {
		conf.MovieTitle = sum.MovieTitle
	}
	if conf.AuditoriumName == "" {
		conf.AuditoriumName = sum.AuditoriumName
	}
	if conf.ScreeningTime == "" {
		conf.ScreeningTime = sum.StartsAt.Format(screeningTimeLayout)
	}
	return nil
}

func seatLabels(seats []model.BookingSeat) []string {
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		out = append(out, s.Label())
	}
	return out
}
