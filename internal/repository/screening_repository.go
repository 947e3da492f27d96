package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ScreeningRepo reads screenings.  Screenings are maintained by the
// catalog tables and are never written by the booking flow.
type ScreeningRepo struct {
	db *sql.DB
}

// NewScreeningRepo constructs a ScreeningRepo with the given DB handle.
func NewScreeningRepo(db *sql.DB) *ScreeningRepo { return &ScreeningRepo{db: db} }

// Summary returns the movie title, auditorium name and start time of a
// screening.  It returns ErrScreeningNotFound if there is no matching row.
func (r *ScreeningRepo) Summary(ctx context.Context, id uint64) (*model.ScreeningSummary, error) {
	const q = `SELECT s.id, m.title, a.name, s.starts_at
               FROM screenings s
               JOIN movies m ON m.id = s.movie_id
               JOIN auditoriums a ON a.id = s.auditorium_id
               WHERE s.id = ?`
	var sum model.ScreeningSummary
	err := r.db.QueryRowContext(ctx, q, id).Scan(&sum.ScreeningID, &sum.MovieTitle, &sum.AuditoriumName, &sum.StartsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScreeningNotFound
		}
		return nil, fmt.Errorf("screening summary: %w", err)
	}
	sum.StartsAt = sum.StartsAt.UTC()
	return &sum, nil
}
