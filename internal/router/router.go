// Package router registers the HTTP routes of the booking service.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
)

// RegisterRoutes registers the health checks.  ready may be nil, in which
// case /readyz is not mounted.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready)
	}
}

// RegisterBookings mounts the booking API under /api/bookings.  mw is
// applied to the whole group; the rate limiter goes here.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/api/bookings", mw...)

	g.POST("", h.CreateBooking)
	g.GET("", h.ListBookings)
	g.DELETE("", h.DeleteAllBookings)

	// Static segment wins over :id in echo's router.
	g.GET("/url/:bookingUrl", h.GetBookingByURL)
	g.GET("/url/:bookingUrl/qr", h.BookingQRCode)

	g.GET("/:id", h.GetBooking)
	g.PATCH("/:id/cancel", h.CancelBooking)
	g.DELETE("/:id", h.DeleteBooking)
}
