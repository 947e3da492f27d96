package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// BookingRepo provides persistence for bookings and their seats.  Seats
// booked under a booking are stored in the booking_seats table; a seat is
// held while the owning booking is active.  All timestamps are stored in
// UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// queryer is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txOptions is used by every write transaction on bookings.
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

const bookingColumns = `id, booking_number, booking_url, screening_id, user_id, status, cancelled_at, created_at`

// CreateWithSeats inserts the booking and one booking_seats row per
// requested seat as a single transaction.  Before each seat insert it
// checks, under a row lock, whether an active booking already holds the
// seat for the screening; if so the whole transaction is rolled back and a
// *SeatConflictError naming the seat is returned.  A duplicate-key error
// from the active-seat unique index is reported the same way, which covers
// two transactions racing past the check, and so are lock deadlocks and
// lock-wait timeouts on the seat rows.  The transaction runs at READ
// COMMITTED so InnoDB takes no gap locks for seats that have no row yet.
// On success b is populated with the generated ID, the DB defaults and the
// persisted seats.
func (r *BookingRepo) CreateWithSeats(ctx context.Context, b *model.Booking, seats []model.SeatRequest) error {
	tx, err := r.db.BeginTx(ctx, txOptions)
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const ins = `INSERT INTO bookings (booking_number, booking_url, screening_id, user_id, status) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins, b.BookingNumber, b.BookingURL, b.ScreeningID, nullableID(b.UserID), model.BookingActive)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	const insSeat = `INSERT INTO booking_seats (booking_id, screening_id, seat_id, ticket_type_id) VALUES (?, ?, ?, ?)`
	for _, s := range seats {
		held, err := seatHeldTx(ctx, tx, b.ScreeningID, s.SeatID)
		if err != nil {
			if isSeatContention(err) {
				return &SeatConflictError{ScreeningID: b.ScreeningID, SeatID: s.SeatID}
			}
			return err
		}
		if held {
			return &SeatConflictError{ScreeningID: b.ScreeningID, SeatID: s.SeatID}
		}
		if _, err := tx.ExecContext(ctx, insSeat, id, b.ScreeningID, s.SeatID, s.TicketTypeID); err != nil {
			if isSeatContention(err) {
				return &SeatConflictError{ScreeningID: b.ScreeningID, SeatID: s.SeatID}
			}
			return fmt.Errorf("insert booking seat %d: %w", s.SeatID, err)
		}
	}

	// Re-read the row and its seats so the caller sees what was persisted.
	created, err := getBooking(ctx, tx, `WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	committed = true
	*b = *created
	return nil
}

// seatHeldTx reports whether an active booking already holds seatID for
// the screening.  FOR UPDATE locks the matching rows until the caller's
// transaction ends.
func seatHeldTx(ctx context.Context, tx *sql.Tx, screeningID, seatID uint64) (bool, error) {
	const q = `SELECT bs.booking_id
               FROM booking_seats bs
               JOIN bookings b ON b.id = bs.booking_id
               WHERE bs.screening_id = ? AND bs.seat_id = ? AND b.status = ?
               LIMIT 1 FOR UPDATE`
	var holder uint64
	err := tx.QueryRowContext(ctx, q, screeningID, seatID, model.BookingActive).Scan(&holder)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check seat %d: %w", seatID, err)
	}
	return true, nil
}

// GetByID returns a booking with its seats, or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return getBooking(ctx, r.db, `WHERE id = ?`, id)
}

// GetByURL returns the booking addressed by its opaque URL token, or
// ErrBookingNotFound.
func (r *BookingRepo) GetByURL(ctx context.Context, bookingURL string) (*model.Booking, error) {
	return getBooking(ctx, r.db, `WHERE booking_url = ?`, bookingURL)
}

// ListAll returns every booking with its seats, newest first.  When no
// bookings exist, an empty slice is returned.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}
	// Populate seats for all bookings in a single query
	index := make(map[uint64]int, len(out))
	ids := make([]uint64, 0, len(out))
	for i, b := range out {
		index[b.ID] = i
		ids = append(ids, b.ID)
	}
	seats, err := loadSeats(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range seats {
		if i, ok := index[s.BookingID]; ok {
			out[i].Seats = append(out[i].Seats, s)
		}
	}
	return out, nil
}

// Cancel marks an active booking as cancelled, stamps cancelled_at and
// releases its seats by clearing booking_seats.active, all in one
// transaction.  The returned flag is false when the booking was already
// cancelled, in which case nothing is written.  ErrBookingNotFound is
// returned when no booking has the id.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64) (*model.Booking, bool, error) {
	tx, err := r.db.BeginTx(ctx, txOptions)
	if err != nil {
		return nil, false, fmt.Errorf("begin cancel tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const upd = `UPDATE bookings SET status = ?, cancelled_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, upd, model.BookingCancelled, id, model.BookingActive)
	if err != nil {
		return nil, false, fmt.Errorf("cancel booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("cancel booking: %w", err)
	}
	changed := n > 0
	if changed {
		const release = `UPDATE booking_seats SET active = NULL WHERE booking_id = ?`
		if _, err := tx.ExecContext(ctx, release, id); err != nil {
			return nil, false, fmt.Errorf("release booking seats: %w", err)
		}
	}
	b, err := getBooking(ctx, tx, `WHERE id = ?`, id)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit cancel: %w", err)
	}
	committed = true
	return b, changed, nil
}

// Delete removes a booking; its booking_seats rows go with it through the
// ON DELETE CASCADE foreign key.  ErrBookingNotFound is returned when no
// row matched.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// DeleteAll removes every booking and returns how many were deleted.
func (r *BookingRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings`)
	if err != nil {
		return 0, fmt.Errorf("delete bookings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete bookings: %w", err)
	}
	return n, nil
}

// getBooking loads one booking matching where and attaches its seats.
func getBooking(ctx context.Context, q queryer, where string, args ...any) (*model.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings `+where, args...))
	if err != nil {
		return nil, err
	}
	seats, err := loadSeats(ctx, q, []uint64{b.ID})
	if err != nil {
		return nil, err
	}
	b.Seats = seats
	return b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b           model.Booking
		userID      sql.NullInt64
		cancelledAt sql.NullTime
	)
	err := row.Scan(&b.ID, &b.BookingNumber, &b.BookingURL, &b.ScreeningID, &userID, &b.Status, &cancelledAt, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	if userID.Valid {
		uid := uint64(userID.Int64)
		b.UserID = &uid
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		b.CancelledAt = &t
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.Seats = []model.BookingSeat{}
	return &b, nil
}

// loadSeats fetches the seats of the given bookings in one query, joined
// with the seats table for row labels.  Ordering by booking then insertion
// keeps the output deterministic.
func loadSeats(ctx context.Context, q queryer, bookingIDs []uint64) ([]model.BookingSeat, error) {
	out := make([]model.BookingSeat, 0)
	if len(bookingIDs) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(bookingIDs))
	placeholders := make([]string, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		args = append(args, id)
		placeholders = append(placeholders, "?")
	}
	query := `SELECT bs.id, bs.booking_id, bs.screening_id, bs.seat_id, bs.ticket_type_id,
                     COALESCE(se.row_label, ''), COALESCE(se.seat_number, 0)
              FROM booking_seats bs
              LEFT JOIN seats se ON se.id = bs.seat_id
              WHERE bs.booking_id IN (` + strings.Join(placeholders, ",") + `)
              ORDER BY bs.booking_id, bs.id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load booking seats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s model.BookingSeat
		if err := rows.Scan(&s.ID, &s.BookingID, &s.ScreeningID, &s.SeatID, &s.TicketTypeID, &s.RowLabel, &s.SeatNumber); err != nil {
			return nil, fmt.Errorf("scan booking seat: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load booking seats: %w", err)
	}
	return out, nil
}

func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}
