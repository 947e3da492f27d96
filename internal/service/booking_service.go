// Package service holds the booking business logic that sits between the
// HTTP handlers and the repositories: input validation, booking code
// generation, request timeouts and the post-commit hooks.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// Store persists bookings.  *repository.BookingRepo is the production
// implementation; CreateWithSeats and Cancel must be atomic.
type Store interface {
	CreateWithSeats(ctx context.Context, b *model.Booking, seats []model.SeatRequest) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByURL(ctx context.Context, bookingURL string) (*model.Booking, error)
	ListAll(ctx context.Context) ([]model.Booking, error)
	Cancel(ctx context.Context, id uint64) (*model.Booking, bool, error)
	Delete(ctx context.Context, id uint64) error
	DeleteAll(ctx context.Context) (int64, error)
}

// Options configures a BookingService.  Zero timeouts fall back to ten
// seconds and a nil Logger discards output.
type Options struct {
	RequestTimeout time.Duration
	NotifyTimeout  time.Duration
	Hooks          []BookingHook
	Logger         Logger
}

// BookingService implements the booking operations.
type BookingService struct {
	store          Store
	hooks          []BookingHook
	log            Logger
	requestTimeout time.Duration
	notifyTimeout  time.Duration

	newNumber func() (string, error)
	newURL    func() (string, error)
}

// NewBookingService wires a service around store.
func NewBookingService(store Store, opts Options) *BookingService {
	s := &BookingService{
		store:          store,
		hooks:          opts.Hooks,
		log:            opts.Logger,
		requestTimeout: opts.RequestTimeout,
		notifyTimeout:  opts.NotifyTimeout,
		newNumber:      utils.NewBookingNumber,
		newURL:         utils.NewBookingURL,
	}
	if s.log == nil {
		s.log = nopLogger{}
	}
	if s.requestTimeout <= 0 {
		s.requestTimeout = 10 * time.Second
	}
	if s.notifyTimeout <= 0 {
		s.notifyTimeout = 10 * time.Second
	}
	return s
}

// CreateInput is a booking request.  ScreeningID is a pointer so that an
// absent value can be told apart from zero.
type CreateInput struct {
	ScreeningID *uint64
	UserID      *uint64
	Seats       []model.SeatRequest
	Contact     ContactInfo
}

// CreateBooking validates the request, generates the booking number and
// URL token, and persists the booking with its seats in one transaction.
// After commit the hooks run; their failures are logged only.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateInput) (*model.Booking, error) {
	if in.ScreeningID == nil || *in.ScreeningID == 0 {
		return nil, validationErr("screeningId is required")
	}
	seats := in.Seats
	if seats == nil {
		seats = []model.SeatRequest{}
	}
	for i, seat := range seats {
		if seat.SeatID == 0 {
			return nil, validationErr("seats[%d]: seatId is required", i)
		}
		if seat.TicketTypeID == 0 {
			return nil, validationErr("seats[%d]: ticketTypeId is required", i)
		}
	}

	number, err := s.newNumber()
	if err != nil {
		return nil, classify("generate booking number", err)
	}
	token, err := s.newURL()
	if err != nil {
		return nil, classify("generate booking url", err)
	}
	b := &model.Booking{
		BookingNumber: number,
		BookingURL:    token,
		ScreeningID:   *in.ScreeningID,
		UserID:        in.UserID,
		Status:        model.BookingActive,
	}

	tctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	err = s.store.CreateWithSeats(tctx, b, seats)
	err = timedOut(tctx, err)
	cancel()
	if err != nil {
		return nil, classify("create booking", err)
	}
	s.log.Infof("booking %d created: number=%s screening=%d seats=%d", b.ID, b.BookingNumber, b.ScreeningID, len(b.Seats))

	s.runCreatedHooks(ctx, b, in.Contact)
	return b, nil
}

// CancelBooking moves an active booking to cancelled and frees its seats.
// Cancelling an already cancelled booking returns it unchanged and runs no
// hooks.
func (s *BookingService) CancelBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	tctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	b, changed, err := s.store.Cancel(tctx, id)
	err = timedOut(tctx, err)
	cancel()
	if err != nil {
		return nil, classify("cancel booking", err)
	}
	if changed {
		s.log.Infof("booking %d cancelled", b.ID)
		s.runCancelledHooks(ctx, b)
	}
	return b, nil
}

// GetBooking returns one booking with its seats.
func (s *BookingService) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	tctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	b, err := s.store.GetByID(tctx, id)
	if err = timedOut(tctx, err); err != nil {
		return nil, classify("get booking", err)
	}
	return b, nil
}

// GetBookingByURL looks a booking up by its opaque URL token.
func (s *BookingService) GetBookingByURL(ctx context.Context, bookingURL string) (*model.Booking, error) {
	if bookingURL == "" {
		return nil, validationErr("bookingUrl is required")
	}
	tctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	b, err := s.store.GetByURL(tctx, bookingURL)
	if err = timedOut(tctx, err); err != nil {
		return nil, classify("get booking by url", err)
	}
	return b, nil
}

// ListBookings returns every booking, newest first.
func (s *BookingService) ListBookings(ctx context.Context) ([]model.Booking, error) {
	tctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	list, err := s.store.ListAll(tctx)
	if err = timedOut(tctx, err); err != nil {
		return nil, classify("list bookings", err)
	}
	return list, nil
}

// DeleteBooking removes a booking and its seats.
func (s *BookingService) DeleteBooking(ctx context.Context, id uint64) error {
	tctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	err := s.store.Delete(tctx, id)
	if err = timedOut(tctx, err); err != nil {
		return classify("delete booking", err)
	}
	s.log.Warnf("booking %d deleted", id)
	return nil
}

// DeleteAllBookings removes every booking and returns the count.
func (s *BookingService) DeleteAllBookings(ctx context.Context) (int64, error) {
	tctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	n, err := s.store.DeleteAll(tctx)
	if err = timedOut(tctx, err); err != nil {
		return 0, classify("delete all bookings", err)
	}
	s.log.Warnf("all bookings deleted: %d", n)
	return n, nil
}

// timedOut reports context.DeadlineExceeded when the operation failed after
// ctx expired.  Drivers do not always wrap the context error themselves.
func timedOut(ctx context.Context, err error) error {
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(err, context.DeadlineExceeded)
	}
	return err
}
