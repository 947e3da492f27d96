package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ContactInfo is what the client sent for the confirmation message.  It is
// not persisted and does not have to match the stored screening.
type ContactInfo struct {
	Email          string
	MovieTitle     string
	AuditoriumName string
	ScreeningTime  string
}

// BookingHook runs after a booking transaction has committed.  Its error
// is logged by the service and never reaches the caller.
type BookingHook interface {
	BookingCreated(ctx context.Context, b *model.Booking, contact ContactInfo) error
}

// CancellationHook is implemented by hooks that also want to hear about
// cancellations.
type CancellationHook interface {
	BookingCancelled(ctx context.Context, b *model.Booking) error
}

// Logger is the subset of echo.Logger the service writes to.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{}) {}
func (nopLogger) Errorf(string, ...interface{}) {}

// detached returns a context that keeps ctx's values but not its
// cancellation, bounded by d.  Hooks run after the response is decided and
// must not die with the request.
func detached(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

func (s *BookingService) runCreatedHooks(ctx context.Context, b *model.Booking, contact ContactInfo) {
	if len(s.hooks) == 0 {
		return
	}
	hctx, cancel := detached(ctx, s.notifyTimeout)
	defer cancel()
	for _, h := range s.hooks {
		if err := h.BookingCreated(hctx, b, contact); err != nil {
			s.log.Errorf("booking %d: post-commit hook %T failed: %v", b.ID, h, err)
		}
	}
}

func (s *BookingService) runCancelledHooks(ctx context.Context, b *model.Booking) {
	hctx, cancel := detached(ctx, s.notifyTimeout)
	defer cancel()
	for _, h := range s.hooks {
		ch, ok := h.(CancellationHook)
		if !ok {
			continue
		}
		if err := ch.BookingCancelled(hctx, b); err != nil {
			s.log.Errorf("booking %d: cancellation hook %T failed: %v", b.ID, h, err)
		}
	}
}
