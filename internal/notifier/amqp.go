package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gdg-garage/reservation-api/internal/daterange"
	"github.com/streadway/amqp"
)

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher publishes booking events to a topic exchange. The routing key
// is the event type, e.g. "booking.created".
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  publisher
	exchange string
}

// DialAMQP connects to url and declares a durable topic exchange.
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

type bookingMessage struct {
	EventID     string    `json:"event_id"`
	EventType   EventType `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	BookingID   uint      `json:"booking_id"`
	Reference   string    `json:"reference"`
	UserID      uint      `json:"user_id"`
	HotelID     uint      `json:"hotel_id"`
	BookingType string    `json:"booking_type"`
	UnitID      uint      `json:"unit_id"`
	CheckIn     string    `json:"check_in_date"`
	CheckOut    string    `json:"check_out_date"`
	Guests      int       `json:"number_of_guests"`
	Status      string    `json:"status"`
	Payment     string    `json:"payment_status"`
}

func encodeEvent(event Event) ([]byte, error) {
	b := event.Booking
	return json.Marshal(bookingMessage{
		EventID:     event.ID.String(),
		EventType:   event.Type,
		OccurredAt:  event.OccurredAt,
		BookingID:   b.ID,
		Reference:   b.Reference,
		UserID:      b.UserID,
		HotelID:     b.HotelID,
		BookingType: string(b.BookingType),
		UnitID:      b.UnitID,
		CheckIn:     b.CheckIn.Format(daterange.Layout),
		CheckOut:    b.CheckOut.Format(daterange.Layout),
		Guests:      b.NumberOfGuests,
		Status:      string(b.Status),
		Payment:     string(b.PaymentStatus),
	})
}

func (p *AMQPPublisher) NotifyBooking(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := encodeEvent(event)
	if err != nil {
		return fmt.Errorf("event serialization error: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.Publish(
		p.exchange,
		string(event.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Timestamp:    event.OccurredAt,
			Headers: amqp.Table{
				"booking_id": int64(event.Booking.ID),
				"unit":       event.Booking.Target().String(),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("event publish error: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
