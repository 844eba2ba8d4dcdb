// Package notifier fans booking events out to chat and message-bus sinks
// after the ledger has committed them.
package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/gdg-garage/reservation-api/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type EventType string

const (
	BookingCreated   EventType = "booking.created"
	BookingUpdated   EventType = "booking.updated"
	BookingCancelled EventType = "booking.cancelled"
)

// Event describes one committed change to a booking, with the display names
// a human-facing sink needs.
type Event struct {
	ID         uuid.UUID
	Type       EventType
	Booking    models.Booking
	UserName   string
	HotelName  string
	UnitName   string
	OccurredAt time.Time
}

func NewEvent(t EventType, booking models.Booking) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		Booking:    booking,
		OccurredAt: time.Now().UTC(),
	}
}

type Notifier interface {
	NotifyBooking(ctx context.Context, event Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) NotifyBooking(context.Context, Event) error { return nil }

// Multi delivers to every sink and joins their errors.
type Multi []Notifier

func (m Multi) NotifyBooking(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyBooking(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logged wraps a Notifier so failures are logged instead of returned.
type Logged struct {
	Next   Notifier
	Logger logrus.FieldLogger
}

func (l Logged) NotifyBooking(ctx context.Context, event Event) error {
	if err := l.Next.NotifyBooking(ctx, event); err != nil {
		l.Logger.WithFields(logrus.Fields{
			"event":      event.Type,
			"booking_id": event.Booking.ID,
		}).WithError(err).Warn("failed to deliver booking notification")
	}
	return nil
}
