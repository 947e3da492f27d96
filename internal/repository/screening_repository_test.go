package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreeningSummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewScreeningRepo(db)

	starts := time.Date(2026, 5, 1, 20, 30, 0, 0, time.UTC)
	q := regexp.QuoteMeta("FROM screenings s JOIN movies m ON m.id = s.movie_id")
	mock.ExpectQuery(q).WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "name", "starts_at"}).
			AddRow(42, "Metropolis", "Hall 1", starts))
	mock.ExpectQuery(q).WithArgs(43).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "name", "starts_at"}))

	sum, err := repo.Summary(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Metropolis", sum.MovieTitle)
	assert.Equal(t, "Hall 1", sum.AuditoriumName)
	assert.Equal(t, starts, sum.StartsAt)

	_, err = repo.Summary(context.Background(), 43)
	assert.ErrorIs(t, err, ErrScreeningNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
