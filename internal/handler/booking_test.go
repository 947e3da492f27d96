package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/service"
	"github.com/iliyamo/cinema-booking/internal/testutil"
)

type bookingResponse struct {
	OK      bool          `json:"ok"`
	Message string        `json:"message"`
	Booking model.Booking `json:"booking"`
}

type listResponse struct {
	OK       bool            `json:"ok"`
	Bookings []model.Booking `json:"bookings"`
}

type deleteResponse struct {
	OK      bool  `json:"ok"`
	Deleted int64 `json:"deleted"`
}

type failingHook struct{ calls int }

func (h *failingHook) BookingCreated(context.Context, *model.Booking, service.ContactInfo) error {
	h.calls++
	return errors.New("smtp: 554 rejected")
}

func newServer(t *testing.T, hooks ...service.BookingHook) (*echo.Echo, *testutil.MemStore) {
	t.Helper()
	store := testutil.NewMemStore()
	svc := service.NewBookingService(store, service.Options{Hooks: hooks})
	e := echo.New()
	router.RegisterRoutes(e, nil)
	router.RegisterBookings(e, handler.NewBookingHandler(svc, "https://cinema.example"))
	return e, store
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const seat7 = `{"screeningId":42,"seats":[{"seatId":7,"ticketTypeId":1}]}`

func TestBookingLifecycle(t *testing.T) {
	e, store := newServer(t)

	rec := do(e, http.MethodPost, "/api/bookings", seat7)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[bookingResponse](t, rec)
	assert.True(t, first.OK)
	assert.Equal(t, uint64(42), first.Booking.ScreeningID)
	assert.Equal(t, model.BookingActive, first.Booking.Status)
	require.Len(t, first.Booking.Seats, 1)
	assert.Equal(t, uint64(7), first.Booking.Seats[0].SeatID)

	rec = do(e, http.MethodPost, "/api/bookings", seat7)
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := decode[bookingResponse](t, rec)
	assert.False(t, conflict.OK)
	assert.Contains(t, conflict.Message, "seat 7")
	assert.Equal(t, 1, store.SeatCount())

	// the rejected attempt left no booking behind
	rec = do(e, http.MethodGet, "/api/bookings/"+strconv.FormatUint(first.Booking.ID+1, 10), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPatch, "/api/bookings/"+strconv.FormatUint(first.Booking.ID, 10)+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cancelled := decode[bookingResponse](t, rec)
	assert.Equal(t, model.BookingCancelled, cancelled.Booking.Status)
	assert.NotNil(t, cancelled.Booking.CancelledAt)

	rec = do(e, http.MethodPost, "/api/bookings", seat7)
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[bookingResponse](t, rec)
	assert.Equal(t, second.Booking.ID, store.Holder(42, 7))
}

func TestCreateBooking_MissingScreening(t *testing.T) {
	e, _ := newServer(t)

	for _, body := range []string{
		`{"seats":[{"seatId":7,"ticketTypeId":1}]}`,
		`{"screeningId":null,"seats":[]}`,
	} {
		rec := do(e, http.MethodPost, "/api/bookings", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		resp := decode[bookingResponse](t, rec)
		assert.False(t, resp.OK)
		assert.Contains(t, resp.Message, "screeningId")
	}

	rec := do(e, http.MethodGet, "/api/bookings", "")
	list := decode[listResponse](t, rec)
	assert.Empty(t, list.Bookings)
}

func TestCreateBooking_InvalidBody(t *testing.T) {
	e, _ := newServer(t)
	rec := do(e, http.MethodPost, "/api/bookings", `{"screeningId":"forty-two"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decode[bookingResponse](t, rec).OK)
}

func TestCreateBooking_EmptySeats(t *testing.T) {
	e, _ := newServer(t)
	rec := do(e, http.MethodPost, "/api/bookings", `{"screeningId":42,"seats":[],"userId":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[bookingResponse](t, rec)
	assert.Empty(t, resp.Booking.Seats)
	require.NotNil(t, resp.Booking.UserID)
	assert.Equal(t, uint64(5), *resp.Booking.UserID)
	assert.Contains(t, rec.Body.String(), `"seats":[]`)
}

func TestCreateBooking_EmailFailureStillCreated(t *testing.T) {
	hook := &failingHook{}
	e, store := newServer(t, hook)

	body := `{"screeningId":42,"seats":[{"seatId":7,"ticketTypeId":1}],"email":"guest@example.com","movieTitle":"Metropolis"}`
	rec := do(e, http.MethodPost, "/api/bookings", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[bookingResponse](t, rec)
	assert.True(t, resp.OK)
	assert.Equal(t, 1, hook.calls)
	assert.Equal(t, resp.Booking.ID, store.Holder(42, 7))
}

func TestGetBookingByURL(t *testing.T) {
	e, _ := newServer(t)
	created := decode[bookingResponse](t, do(e, http.MethodPost, "/api/bookings", seat7))

	rec := do(e, http.MethodGet, "/api/bookings/url/"+created.Booking.BookingURL, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Booking.ID, decode[bookingResponse](t, rec).Booking.ID)

	rec = do(e, http.MethodGet, "/api/bookings/url/000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookingQRCode(t *testing.T) {
	e, _ := newServer(t)
	created := decode[bookingResponse](t, do(e, http.MethodPost, "/api/bookings", seat7))

	rec := do(e, http.MethodGet, "/api/bookings/url/"+created.Booking.BookingURL+"/qr?size=200", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = do(e, http.MethodGet, "/api/bookings/url/"+created.Booking.BookingURL+"/qr?size=big", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/bookings/url/000000000000/qr", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidIDs(t *testing.T) {
	e, _ := newServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/bookings/abc"},
		{http.MethodGet, "/api/bookings/0"},
		{http.MethodPatch, "/api/bookings/-1/cancel"},
		{http.MethodDelete, "/api/bookings/1.5"},
	} {
		rec := do(e, tc.method, tc.path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.path)
	}
}

func TestCancelAndDelete_NotFound(t *testing.T) {
	e, _ := newServer(t)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodPatch, "/api/bookings/99/cancel", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/api/bookings/99", "").Code)
}

func TestListAndDelete(t *testing.T) {
	e, _ := newServer(t)
	a := decode[bookingResponse](t, do(e, http.MethodPost, "/api/bookings", seat7))
	decode[bookingResponse](t, do(e, http.MethodPost, "/api/bookings", `{"screeningId":42,"seats":[{"seatId":8,"ticketTypeId":2}]}`))

	rec := do(e, http.MethodGet, "/api/bookings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listResponse](t, rec)
	assert.True(t, list.OK)
	assert.Len(t, list.Bookings, 2)

	rec = do(e, http.MethodDelete, "/api/bookings/"+strconv.FormatUint(a.Booking.ID, 10), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[deleteResponse](t, rec).Deleted)

	rec = do(e, http.MethodDelete, "/api/bookings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[deleteResponse](t, rec).Deleted)

	list = decode[listResponse](t, do(e, http.MethodGet, "/api/bookings", ""))
	assert.NotNil(t, list.Bookings)
	assert.Empty(t, list.Bookings)
}

func TestStoreFailureIs500(t *testing.T) {
	e, store := newServer(t)
	store.Err = errors.New("dial tcp 127.0.0.1:3306: connection refused")

	rec := do(e, http.MethodPost, "/api/bookings", seat7)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[bookingResponse](t, rec)
	assert.False(t, resp.OK)
	assert.NotContains(t, resp.Message, "3306")
}

func TestTimeoutIs504(t *testing.T) {
	store := testutil.NewMemStore()
	svc := service.NewBookingService(slowStore{store}, service.Options{RequestTimeout: 10 * time.Millisecond})
	e := echo.New()
	router.RegisterBookings(e, handler.NewBookingHandler(svc, ""))

	rec := do(e, http.MethodPost, "/api/bookings", seat7)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

type slowStore struct{ *testutil.MemStore }

func (s slowStore) CreateWithSeats(ctx context.Context, _ *model.Booking, _ []model.SeatRequest) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestHealth(t *testing.T) {
	e, _ := newServer(t)
	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestReady(t *testing.T) {
	e := echo.New()
	e.GET("/up", handler.Ready(pinger{}))
	e.GET("/down", handler.Ready(pinger{err: errors.New("no route to host")}))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/up", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/down", "").Code)
}
