package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
)

// EventPublisher publishes booking events to RabbitMQ.  It dials per
// message and gives up when the caller's context ends.  Publishing errors are returned so the service can log them.
type EventPublisher struct {
	url     string
	publish func(ctx context.Context, queueName string, body []byte) error
	now     func() time.Time
}

// NewEventPublisher returns a publisher for the broker at url.
func NewEventPublisher(url string) *EventPublisher {
	p := &EventPublisher{url: url, now: time.Now}
	p.publish = p.dialAndPublish
	return p
}

// BookingCreated publishes a BookingConfirmedEvent.
func (p *EventPublisher) BookingCreated(ctx context.Context, b *model.Booking, contact ContactInfo) error {
	return p.send(ctx, queue.BookingConfirmedQueue, confirmedEvent(b, contact, p.now()))
}

// BookingCancelled publishes a BookingCancelledEvent.
func (p *EventPublisher) BookingCancelled(ctx context.Context, b *model.Booking) error {
	return p.send(ctx, queue.BookingCancelledQueue, cancelledEvent(b, p.now()))
}

func (p *EventPublisher) send(ctx context.Context, queueName string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}
	return p.publish(ctx, queueName, body)
}

func confirmedEvent(b *model.Booking, contact ContactInfo, now time.Time) queue.BookingConfirmedEvent {
	return queue.BookingConfirmedEvent{
		BookingID:      b.ID,
		BookingNumber:  b.BookingNumber,
		BookingURL:     b.BookingURL,
		UserID:         b.UserID,
		ScreeningID:    b.ScreeningID,
		MovieTitle:     contact.MovieTitle,
		AuditoriumName: contact.AuditoriumName,
		ScreeningTime:  contact.ScreeningTime,
		SeatLabels:     seatLabels(b.Seats),
		ConfirmedAt:    now.UTC().Format(time.RFC3339),
	}
}

func cancelledEvent(b *model.Booking, now time.Time) queue.BookingCancelledEvent {
	at := now
	if b.CancelledAt != nil {
		at = *b.CancelledAt
	}
	return queue.BookingCancelledEvent{
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		ScreeningID:   b.ScreeningID,
		SeatLabels:    seatLabels(b.Seats),
		CancelledAt:   at.UTC().Format(time.RFC3339),
	}
}

// dial opens a broker connection bounded by ctx.  The TCP connect uses ctx
// directly and the AMQP handshake is cut off at ctx's deadline.
func (p *EventPublisher) dial(ctx context.Context) (*amqp.Connection, error) {
	var d net.Dialer
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial: func(network, addr string) (net.Conn, error) {
			c, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if deadline, ok := ctx.Deadline(); ok {
				if err := c.SetDeadline(deadline); err != nil {
					_ = c.Close()
					return nil, err
				}
			}
			return c, nil
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// The read deadline can fire just before ctx's own timer does.
		if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}
	return conn, nil
}

// dialAndPublish declares the durable queue and publishes a persistent
// JSON message through the default exchange.  The connection is closed
// when ctx ends, which unblocks any channel operation still waiting on the
// broker.
func (p *EventPublisher) dialAndPublish(ctx context.Context, queueName string, body []byte) (err error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer func() {
		if err != nil && ctx.Err() != nil {
			err = fmt.Errorf("rabbitmq: %w", ctx.Err())
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	); err != nil {
		return fmt.Errorf("rabbitmq: queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}
