// Package events publishes booking and showtime lifecycle events to RabbitMQ
// for the notification collaborator. The broker is optional: a nil Publisher
// is safe to call and publishes nothing, and publish failures never fail the
// state transition that triggered them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cinema-reservation/internal/data/entity"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	QueueBookingConfirmed  = "booking.confirmed"
	QueueBookingCancelled  = "booking.cancelled"
	QueueShowtimeCancelled = "showtime.cancelled"
)

type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.Logger
}

func NewPublisher(url string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	for _, queue := range []string{QueueBookingConfirmed, QueueBookingCancelled, QueueShowtimeCancelled} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", queue, err)
		}
	}

	return &Publisher{
		conn: conn,
		ch:   ch,
		log:  log.With(zap.String("component", "events")),
	}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

type bookingEvent struct {
	BookingID     string    `json:"booking_id"`
	ReferenceCode string    `json:"reference_code"`
	CustomerID    string    `json:"customer_id"`
	ShowtimeID    string    `json:"showtime_id"`
	TotalSeats    int       `json:"total_seats"`
	TotalPrice    float64   `json:"total_price"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type showtimeEvent struct {
	ShowtimeID string    `json:"showtime_id"`
	MovieID    string    `json:"movie_id"`
	HallID     string    `json:"hall_id"`
	StartsAt   time.Time `json:"starts_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (p *Publisher) BookingConfirmed(ctx context.Context, booking *entity.Booking) {
	p.publish(ctx, QueueBookingConfirmed, bookingEvent{
		BookingID:     booking.ID.String(),
		ReferenceCode: booking.ReferenceCode,
		CustomerID:    booking.CustomerID.String(),
		ShowtimeID:    booking.ShowtimeID.String(),
		TotalSeats:    booking.TotalSeats,
		TotalPrice:    booking.TotalPrice,
		OccurredAt:    time.Now().UTC(),
	})
}

func (p *Publisher) BookingCancelled(ctx context.Context, booking *entity.Booking, reason string) {
	p.publish(ctx, QueueBookingCancelled, bookingEvent{
		BookingID:     booking.ID.String(),
		ReferenceCode: booking.ReferenceCode,
		CustomerID:    booking.CustomerID.String(),
		ShowtimeID:    booking.ShowtimeID.String(),
		TotalSeats:    booking.TotalSeats,
		TotalPrice:    booking.TotalPrice,
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	})
}

func (p *Publisher) ShowtimeCancelled(ctx context.Context, showtime *entity.Showtime) {
	p.publish(ctx, QueueShowtimeCancelled, showtimeEvent{
		ShowtimeID: showtime.ID.String(),
		MovieID:    showtime.MovieID.String(),
		HallID:     showtime.HallID.String(),
		StartsAt:   showtime.StartsAt,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, queue string, payload any) {
	if p == nil || p.ch == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("Failed to encode event", zap.Error(err), zap.String("queue", queue))
		return
	}

	err = p.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		p.log.Error("Failed to publish event", zap.Error(err), zap.String("queue", queue))
		return
	}

	p.log.Info("Event published", zap.String("queue", queue))
}
