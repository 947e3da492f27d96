package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessage_AppendsAuditLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	uid := uint64(9)

	confirmed, err := json.Marshal(BookingConfirmedEvent{
		BookingID:     1,
		BookingNumber: "QWE123",
		ScreeningID:   42,
		UserID:        &uid,
		MovieTitle:    "Metropolis",
		SeatLabels:    []string{"C7", "C8"},
		ConfirmedAt:   "2026-01-02T03:04:05Z",
	})
	require.NoError(t, err)
	cancelled, err := json.Marshal(BookingCancelledEvent{
		BookingID:     1,
		BookingNumber: "QWE123",
		ScreeningID:   42,
		SeatLabels:    []string{"C7", "C8"},
		CancelledAt:   "2026-01-03T00:00:00Z",
	})
	require.NoError(t, err)

	require.NoError(t, handleMessage(dir, BookingConfirmedQueue, confirmed))
	require.NoError(t, handleMessage(dir, BookingCancelledQueue, cancelled))

	data, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	require.NoError(t, err)
	got := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, got, 2)
	assert.Equal(t, `[2026-01-02T03:04:05Z] Booking confirmed | booking_id=1 | number=QWE123 | screening_id=42 | user=9 | movie="Metropolis" | auditorium="" | seats=[C7,C8]`, got[0])
	assert.Equal(t, `[2026-01-03T00:00:00Z] Booking cancelled | booking_id=1 | number=QWE123 | screening_id=42 | seats=[C7,C8]`, got[1])
}

func TestHandleMessage_Rejects(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, handleMessage(dir, BookingConfirmedQueue, []byte("{not json")))
	assert.Error(t, handleMessage(dir, "booking.unknown", []byte("{}")))

	_, err := os.Stat(filepath.Join(dir, "booking.log"))
	assert.True(t, os.IsNotExist(err), "rejected messages write nothing")
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "[]", seatList(nil))
	assert.Equal(t, "anonymous", userLabel(nil))
}
