package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Confirmation is the data rendered into a booking confirmation e-mail.
type Confirmation struct {
	BookingNumber  string
	BookingLink    string
	MovieTitle     string
	AuditoriumName string
	ScreeningTime  string
	Seats          []string
}

// SeatList joins the seat labels for display.
func (c Confirmation) SeatList() string {
	if len(c.Seats) == 0 {
		return "none"
	}
	return strings.Join(c.Seats, ", ")
}

const confirmationText = `Thank you for your booking!

Booking number: {{.BookingNumber}}
Movie: {{.MovieTitle}}
Auditorium: {{.AuditoriumName}}
Time: {{.ScreeningTime}}
Seats: {{.SeatList}}
{{if .BookingLink}}
View or cancel your booking: {{.BookingLink}}
{{end}}`

const confirmationHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Booking confirmation</title></head>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h1>Thank you for your booking!</h1>
  <p><strong>Booking number:</strong> {{.BookingNumber}}</p>
  <p><strong>Movie:</strong> {{.MovieTitle}}</p>
  <p><strong>Auditorium:</strong> {{.AuditoriumName}}</p>
  <p><strong>Time:</strong> {{.ScreeningTime}}</p>
  <p><strong>Seats:</strong> {{.SeatList}}</p>
  {{if .BookingLink}}<p><a href="{{.BookingLink}}">View or cancel your booking</a></p>{{end}}
</body>
</html>`

var (
	confirmationTextTmpl = texttemplate.Must(texttemplate.New("confirmation_text").Parse(confirmationText))
	confirmationHTMLTmpl = htmltemplate.Must(htmltemplate.New("confirmation_html").Parse(confirmationHTML))
)

// RenderConfirmation builds the confirmation message for the recipient.
func RenderConfirmation(to string, c Confirmation) (Message, error) {
	var text, html bytes.Buffer
	if err := confirmationTextTmpl.Execute(&text, c); err != nil {
		return Message{}, fmt.Errorf("render confirmation text: %w", err)
	}
	if err := confirmationHTMLTmpl.Execute(&html, c); err != nil {
		return Message{}, fmt.Errorf("render confirmation html: %w", err)
	}
	subject := "Booking confirmation " + c.BookingNumber
	if c.MovieTitle != "" {
		subject += " - " + c.MovieTitle
	}
	return Message{To: to, Subject: subject, Text: text.String(), HTML: html.String()}, nil
}
