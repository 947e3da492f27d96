package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderConfirmation(t *testing.T) {
	msg, err := RenderConfirmation("guest@example.com", Confirmation{
		BookingNumber:  "QWE123",
		BookingLink:    "https://cinema.example/booking/A1B2C3D4E5F6",
		MovieTitle:     "Tom & Jerry <3",
		AuditoriumName: "Hall 1",
		ScreeningTime:  "Fri 20:30",
		Seats:          []string{"C7", "C8"},
	})
	require.NoError(t, err)

	assert.Equal(t, "guest@example.com", msg.To)
	assert.Equal(t, "Booking confirmation QWE123 - Tom & Jerry <3", msg.Subject)
	assert.Contains(t, msg.Text, "Movie: Tom & Jerry <3")
	assert.Contains(t, msg.Text, "Seats: C7, C8")
	assert.Contains(t, msg.Text, "https://cinema.example/booking/A1B2C3D4E5F6")
	assert.Contains(t, msg.HTML, "Tom &amp; Jerry &lt;3")
	assert.Contains(t, msg.HTML, `href="https://cinema.example/booking/A1B2C3D4E5F6"`)
}

func TestRenderConfirmation_NoSeatsNoLink(t *testing.T) {
	msg, err := RenderConfirmation("guest@example.com", Confirmation{BookingNumber: "QWE123"})
	require.NoError(t, err)
	assert.Equal(t, "Booking confirmation QWE123", msg.Subject)
	assert.Contains(t, msg.Text, "Seats: none")
	assert.NotContains(t, msg.Text, "View or cancel")
	assert.NotContains(t, msg.HTML, "href=")
}

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example", Port: 2525, Username: "user", Password: "pw", From: "tickets@cinema.example"})
	var (
		gotAddr string
		gotTo   []string
		gotBody string
		gotAuth smtp.Auth
	)
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotBody = addr, a, to, string(msg)
		assert.Equal(t, "tickets@cinema.example", from)
		return nil
	}

	err := s.Send(context.Background(), Message{To: "guest@example.com", Subject: "Hi", Text: "plain body", HTML: "<p>html body</p>"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example:2525", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"guest@example.com"}, gotTo)
	assert.Contains(t, gotBody, "To: guest@example.com\r\n")
	assert.Contains(t, gotBody, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, gotBody, "plain body")
	assert.Contains(t, gotBody, "<p>html body</p>")
	assert.Less(t, strings.Index(gotBody, "text/plain"), strings.Index(gotBody, "text/html"))
}

func TestSMTPSender_Errors(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example", Port: 25, From: "tickets@cinema.example"})

	assert.ErrorIs(t, s.Send(context.Background(), Message{Subject: "no rcpt"}), ErrNoRecipient)

	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("550 mailbox unavailable") }
	err := s.Send(context.Background(), Message{To: "guest@example.com"})
	assert.ErrorContains(t, err, "550 mailbox unavailable")

	release := make(chan struct{})
	defer close(release)
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "guest@example.com"}), context.DeadlineExceeded)
}

type lines struct{ got []string }

func (l *lines) Infof(format string, args ...interface{}) { l.got = append(l.got, format) }

func TestLogSender(t *testing.T) {
	l := &lines{}
	s := NewLogSender(l)
	require.NoError(t, s.Send(context.Background(), Message{To: "guest@example.com", Subject: "Hi"}))
	assert.Len(t, l.got, 1)
	assert.ErrorIs(t, s.Send(context.Background(), Message{}), ErrNoRecipient)
}
