package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// BookingService is the booking API the handlers call.
// *service.BookingService implements it.
type BookingService interface {
	CreateBooking(ctx context.Context, in service.CreateInput) (*model.Booking, error)
	CancelBooking(ctx context.Context, id uint64) (*model.Booking, error)
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	GetBookingByURL(ctx context.Context, bookingURL string) (*model.Booking, error)
	ListBookings(ctx context.Context) ([]model.Booking, error)
	DeleteBooking(ctx context.Context, id uint64) error
	DeleteAllBookings(ctx context.Context) (int64, error)
}

// BookingHandler serves /api/bookings.  Every response body carries an
// "ok" flag; failures add a "message".
type BookingHandler struct {
	svc     BookingService
	baseURL string
}

// NewBookingHandler constructs a BookingHandler.  baseURL is the public
// address encoded into booking QR codes.
func NewBookingHandler(svc BookingService, baseURL string) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{svc: svc, baseURL: baseURL}
}

// createBookingRequest is the body of POST /api/bookings.  The contact
// fields are only used for the confirmation e-mail.
type createBookingRequest struct {
	UserID         *uint64             `json:"userId"`
	ScreeningID    *uint64             `json:"screeningId"`
	Seats          []model.SeatRequest `json:"seats"`
	Email          string              `json:"email"`
	MovieTitle     string              `json:"movieTitle"`
	AuditoriumName string              `json:"auditoriumName"`
	ScreeningTime  string              `json:"screeningTime"`
}

// CreateBooking handles POST /api/bookings.  It returns 201 with the
// persisted booking, 400 when screeningId is missing and 409 naming the
// seat when one is already held by an active booking.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	b, err := h.svc.CreateBooking(c.Request().Context(), service.CreateInput{
		ScreeningID: req.ScreeningID,
		UserID:      req.UserID,
		Seats:       req.Seats,
		Contact: service.ContactInfo{
			Email:          req.Email,
			MovieTitle:     req.MovieTitle,
			AuditoriumName: req.AuditoriumName,
			ScreeningTime:  req.ScreeningTime,
		},
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"ok": true, "booking": b})
}

// ListBookings handles GET /api/bookings.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	list, err := h.svc.ListBookings(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "bookings": list})
}

// GetBooking handles GET /api/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}
	b, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "booking": b})
}

// GetBookingByURL handles GET /api/bookings/url/:bookingUrl.
func (h *BookingHandler) GetBookingByURL(c echo.Context) error {
	b, err := h.svc.GetBookingByURL(c.Request().Context(), c.Param("bookingUrl"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "booking": b})
}

// CancelBooking handles PATCH /api/bookings/:id/cancel.  Cancelling a
// booking twice is not an error; the second call returns it unchanged.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}
	b, err := h.svc.CancelBooking(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "booking": b})
}

// DeleteBooking handles DELETE /api/bookings/:id.
func (h *BookingHandler) DeleteBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}
	if err := h.svc.DeleteBooking(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "deleted": 1})
}

// DeleteAllBookings handles DELETE /api/bookings.
func (h *BookingHandler) DeleteAllBookings(c echo.Context) error {
	n, err := h.svc.DeleteAllBookings(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "deleted": n})
}

// QR code size bounds in pixels.
const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// BookingQRCode handles GET /api/bookings/url/:bookingUrl/qr.  It returns
// a PNG encoding the public link of the booking.  The optional size query
// parameter is clamped to [128, 1024].
func (h *BookingHandler) BookingQRCode(c echo.Context) error {
	b, err := h.svc.GetBookingByURL(c.Request().Context(), c.Param("bookingUrl"))
	if err != nil {
		return writeError(c, err)
	}
	size := defaultQRSize
	if s := c.QueryParam("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid size")
		}
		size = min(max(n, minQRSize), maxQRSize)
	}
	png, err := utils.BookingQR(utils.BookingLink(h.baseURL, b.BookingURL), size)
	if err != nil {
		c.Logger().Errorf("qr code for booking %d: %v", b.ID, err)
		return fail(c, http.StatusInternalServerError, "failed to render qr code")
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"ok": false, "message": msg})
}

// writeError maps service errors onto HTTP statuses.  Store failures are
// logged and reported without internal detail.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return fail(c, http.StatusNotFound, "booking not found")
	case errors.Is(err, service.ErrSeatConflict):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrTimeout):
		c.Logger().Warnf("%s %s: %v", c.Request().Method, c.Path(), err)
		return fail(c, http.StatusGatewayTimeout, "request timed out")
	default:
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return fail(c, http.StatusInternalServerError, "internal server error")
	}
}
