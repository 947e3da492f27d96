// Package testutil provides an in-memory booking store for service and
// handler tests.  It enforces the same active-seat rule as the MySQL
// schema.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

type seatKey struct{ screeningID, seatID uint64 }

// MemStore implements service.Store in memory.  Err, when set, is
// returned by every call before it touches state.
type MemStore struct {
	mu       sync.Mutex
	nextID   uint64
	nextSeat uint64
	bookings map[uint64]*model.Booking
	held     map[seatKey]uint64 // seat -> active booking id
	now      func() time.Time

	Err error
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		bookings: make(map[uint64]*model.Booking),
		held:     make(map[seatKey]uint64),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemStore) CreateWithSeats(ctx context.Context, b *model.Booking, seats []model.SeatRequest) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate every seat first so a conflict leaves nothing behind.
	pending := make(map[seatKey]bool, len(seats))
	for _, s := range seats {
		k := seatKey{b.ScreeningID, s.SeatID}
		if _, ok := m.held[k]; ok || pending[k] {
			return &repository.SeatConflictError{ScreeningID: b.ScreeningID, SeatID: s.SeatID}
		}
		pending[k] = true
	}

	m.nextID++
	created := *b
	created.ID = m.nextID
	created.Status = model.BookingActive
	created.CreatedAt = m.now()
	created.CancelledAt = nil
	created.Seats = make([]model.BookingSeat, 0, len(seats))
	for _, s := range seats {
		m.nextSeat++
		created.Seats = append(created.Seats, model.BookingSeat{
			ID:           m.nextSeat,
			BookingID:    created.ID,
			ScreeningID:  created.ScreeningID,
			SeatID:       s.SeatID,
			TicketTypeID: s.TicketTypeID,
		})
		m.held[seatKey{created.ScreeningID, s.SeatID}] = created.ID
	}
	m.bookings[created.ID] = &created
	*b = clone(&created)
	return nil
}

func (m *MemStore) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	out := clone(b)
	return &out, nil
}

func (m *MemStore) GetByURL(ctx context.Context, bookingURL string) (*model.Booking, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.BookingURL == bookingURL {
			out := clone(b)
			return &out, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (m *MemStore) ListAll(ctx context.Context) ([]model.Booking, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		out = append(out, clone(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemStore) Cancel(ctx context.Context, id uint64) (*model.Booking, bool, error) {
	if err := m.check(ctx); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, false, repository.ErrBookingNotFound
	}
	changed := false
	if b.Active() {
		now := m.now()
		b.Status = model.BookingCancelled
		b.CancelledAt = &now
		m.release(b)
		changed = true
	}
	out := clone(b)
	return &out, changed, nil
}

func (m *MemStore) Delete(ctx context.Context, id uint64) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	m.release(b)
	delete(m.bookings, id)
	return nil
}

func (m *MemStore) DeleteAll(ctx context.Context) (int64, error) {
	if err := m.check(ctx); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.bookings))
	m.bookings = make(map[uint64]*model.Booking)
	m.held = make(map[seatKey]uint64)
	return n, nil
}

// SeatCount returns the number of seat rows stored across all bookings.
func (m *MemStore) SeatCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		n += len(b.Seats)
	}
	return n
}

// Holder returns the id of the active booking holding the seat, or 0.
func (m *MemStore) Holder(screeningID, seatID uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[seatKey{screeningID, seatID}]
}

func (m *MemStore) release(b *model.Booking) {
	for _, s := range b.Seats {
		k := seatKey{s.ScreeningID, s.SeatID}
		if m.held[k] == b.ID {
			delete(m.held, k)
		}
	}
}

func (m *MemStore) check(ctx context.Context) error {
	if m.Err != nil {
		return m.Err
	}
	return ctx.Err()
}

func clone(b *model.Booking) model.Booking {
	out := *b
	out.Seats = append([]model.BookingSeat{}, b.Seats...)
	if b.CancelledAt != nil {
		t := *b.CancelledAt
		out.CancelledAt = &t
	}
	return out
}
