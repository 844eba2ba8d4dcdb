// Package reservation is the entry point for booking requests. It validates
// and shapes input, delegates the atomic part to the booking ledger, and
// enriches results for display.
package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/gdg-garage/reservation-api/internal/availability"
	"github.com/gdg-garage/reservation-api/internal/booking"
	"github.com/gdg-garage/reservation-api/internal/conflict"
	"github.com/gdg-garage/reservation-api/internal/daterange"
	"github.com/gdg-garage/reservation-api/internal/inventory"
	"github.com/gdg-garage/reservation-api/internal/models"
	"github.com/gdg-garage/reservation-api/internal/notifier"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const notifyTimeout = 10 * time.Second

type Workflow struct {
	units     *inventory.Store
	overrides *availability.Store
	detector  *conflict.Detector
	ledger    *booking.Ledger
	notifier  notifier.Notifier
	validate  *validator.Validate
	log       logrus.FieldLogger
}

func New(units *inventory.Store, overrides *availability.Store, detector *conflict.Detector, ledger *booking.Ledger, n notifier.Notifier, logger logrus.FieldLogger) *Workflow {
	if n == nil {
		n = notifier.Noop{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Workflow{
		units:     units,
		overrides: overrides,
		detector:  detector,
		ledger:    ledger,
		notifier:  notifier.Logged{Next: n, Logger: logger},
		validate:  newValidator(),
		log:       logger,
	}
}

type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type HotelSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	City string `json:"city,omitempty"`
}

type UnitSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// BookingDetails is a booking plus the display data around it. Its target
// is spelled out as apartment_id or room_id and stay dates use the request
// layout.
type BookingDetails struct {
	models.Booking
	CheckIn     string        `json:"check_in_date" example:"2025-06-01"`
	CheckOut    string        `json:"check_out_date" example:"2025-06-05"`
	ApartmentID *uint         `json:"apartment_id,omitempty"`
	RoomID      *uint         `json:"room_id,omitempty"`
	User        *UserSummary  `json:"user,omitempty"`
	Hotel       *HotelSummary `json:"hotel,omitempty"`
	Apartment   *UnitSummary  `json:"apartment,omitempty"`
	Room        *UnitSummary  `json:"room,omitempty"`
}

type ProbeResult struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type ListResult struct {
	Bookings []BookingDetails `json:"bookings"`
	Total    int64            `json:"total"`
	Offset   int              `json:"offset"`
	Limit    int              `json:"limit"`
}

func (w *Workflow) BookApartment(ctx context.Context, actor models.Actor, req BookApartmentRequest) (*BookingDetails, error) {
	if err := check(w.validate, req); err != nil {
		return nil, err
	}
	return w.book(ctx, actor, models.ApartmentRef(req.ApartmentID), req.BookingFields)
}

func (w *Workflow) BookRoom(ctx context.Context, actor models.Actor, req BookRoomRequest) (*BookingDetails, error) {
	if err := check(w.validate, req); err != nil {
		return nil, err
	}
	return w.book(ctx, actor, models.RoomRef(req.RoomID), req.BookingFields)
}

func (w *Workflow) book(ctx context.Context, actor models.Actor, unit models.UnitRef, f BookingFields) (*BookingDetails, error) {
	if !actor.CanActFor(f.UserID) {
		return nil, apperr.Forbidden("cannot book on behalf of another user")
	}
	r, err := daterange.ParseRange(f.CheckInDate, f.CheckOutDate)
	if err != nil {
		return nil, err
	}

	b, err := w.ledger.Create(ctx, booking.Draft{
		UserID:               f.UserID,
		HotelID:              f.HotelID,
		Unit:                 unit,
		Range:                r,
		NumberOfGuests:       f.NumberOfGuests,
		PaymentAmount:        f.PaymentAmount,
		PaymentCurrency:      f.PaymentCurrency,
		PaymentMethod:        f.PaymentMethod,
		PaymentStatus:        f.PaymentStatus,
		PaymentTransactionID: f.PaymentTransactionID,
	})
	if err != nil {
		return nil, err
	}

	details := w.enrich(ctx, *b)
	w.notify(ctx, notifier.BookingCreated, details)
	return details, nil
}

// Probe answers whether a booking could be created right now, using the same
// rules as creation. A missing unit and malformed or past dates are errors;
// every other refusal is a negative result.
func (w *Workflow) Probe(ctx context.Context, req ProbeRequest) (*ProbeResult, error) {
	if err := check(w.validate, req); err != nil {
		return nil, err
	}

	var unit models.UnitRef
	switch req.BookingType {
	case models.UnitApartment:
		if req.ApartmentID == 0 {
			return nil, apperr.InvalidInput("apartment_id is required")
		}
		unit = models.ApartmentRef(req.ApartmentID)
	case models.UnitRoom:
		if req.RoomID == 0 {
			return nil, apperr.InvalidInput("room_id is required")
		}
		unit = models.RoomRef(req.RoomID)
	default:
		return nil, apperr.InvalidInput("unknown booking type %q", req.BookingType)
	}

	r, err := daterange.ParseRange(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		return nil, err
	}

	res, err := w.detector.Check(ctx, conflict.Candidate{
		Unit:   unit,
		Range:  r,
		Guests: req.NumberOfGuests,
		Today:  w.ledger.Today(),
	})
	if err != nil {
		return nil, err
	}
	switch res.Code {
	case conflict.CodeUnitNotFound, conflict.CodeInvalidDates:
		return nil, res.Err()
	}
	return &ProbeResult{Available: res.Available, Reason: res.Reason}, nil
}

// UpdateStatus changes lifecycle or payment status. Only admins may do it;
// owners cancel through Cancel.
func (w *Workflow) UpdateStatus(ctx context.Context, actor models.Actor, id uint, req StatusUpdate) (*BookingDetails, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("only admins can change booking status")
	}
	b, err := w.ledger.Transition(ctx, id, booking.Update{Status: req.Status, PaymentStatus: req.PaymentStatus})
	if err != nil {
		return nil, err
	}

	details := w.enrich(ctx, *b)
	event := notifier.BookingUpdated
	if b.Status == models.BookingCancelled {
		event = notifier.BookingCancelled
	}
	w.notify(ctx, event, details)
	return details, nil
}

func (w *Workflow) Cancel(ctx context.Context, actor models.Actor, id uint) (*BookingDetails, error) {
	b, err := w.ledger.Cancel(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	details := w.enrich(ctx, *b)
	w.notify(ctx, notifier.BookingCancelled, details)
	return details, nil
}

// List returns bookings matching req. Non-admins only ever see their own.
func (w *Workflow) List(ctx context.Context, actor models.Actor, req ListRequest) (*ListResult, error) {
	if !actor.IsAdmin() {
		if req.UserID != 0 && req.UserID != actor.UserID {
			return nil, apperr.Forbidden("cannot list bookings of another user")
		}
		req.UserID = actor.UserID
	}

	page := booking.Page{Offset: req.Offset, Limit: req.Limit}
	bookings, total, err := w.ledger.List(ctx, booking.Filter{
		UserID:      req.UserID,
		HotelID:     req.HotelID,
		Status:      req.Status,
		BookingType: req.BookingType,
	}, page)
	if err != nil {
		return nil, err
	}
	rows := make([]BookingDetails, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, *project(b))
	}

	limit := req.Limit
	if limit <= 0 {
		limit = booking.DefaultPageLimit
	}
	if limit > booking.MaxPageLimit {
		limit = booking.MaxPageLimit
	}
	return &ListResult{Bookings: rows, Total: total, Offset: req.Offset, Limit: limit}, nil
}

// project shapes b for display without loading anything else.
func project(b models.Booking) *BookingDetails {
	details := &BookingDetails{
		Booking:  b,
		CheckIn:  b.CheckIn.Format(daterange.Layout),
		CheckOut: b.CheckOut.Format(daterange.Layout),
	}
	id := b.UnitID
	switch b.BookingType {
	case models.UnitApartment:
		details.ApartmentID = &id
	case models.UnitRoom:
		details.RoomID = &id
	}
	return details
}

func (w *Workflow) enrich(ctx context.Context, b models.Booking) *BookingDetails {
	details := project(b)
	id := b.UnitID

	if user, err := w.units.GetUser(ctx, b.UserID); err == nil {
		details.User = &UserSummary{ID: user.ID, Name: user.Name, Email: user.Email}
	} else {
		w.logLookup(err, "user", b.ID)
	}
	if hotel, err := w.units.GetHotel(ctx, b.HotelID); err == nil {
		details.Hotel = &HotelSummary{ID: hotel.ID, Name: hotel.Name, City: hotel.City}
	} else {
		w.logLookup(err, "hotel", b.ID)
	}

	switch b.BookingType {
	case models.UnitApartment:
		if a, err := w.units.GetApartment(ctx, id); err == nil {
			details.Apartment = &UnitSummary{ID: a.ID, Name: a.Name, Capacity: a.Capacity}
		} else {
			w.logLookup(err, "apartment", b.ID)
		}
	case models.UnitRoom:
		if r, err := w.units.GetRoom(ctx, id); err == nil {
			details.Room = &UnitSummary{ID: r.ID, Name: r.Name, Capacity: r.Capacity}
		} else {
			w.logLookup(err, "room", b.ID)
		}
	}
	return details
}

func (w *Workflow) logLookup(err error, what string, bookingID uint) {
	if errors.Is(err, apperr.ErrNotFound) {
		return
	}
	w.log.WithError(err).WithField("booking_id", bookingID).Warnf("failed to load %s for booking", what)
}

// notify runs after the ledger has committed and released the unit lock.
func (w *Workflow) notify(ctx context.Context, t notifier.EventType, d *BookingDetails) {
	event := notifier.NewEvent(t, d.Booking)
	if d.User != nil {
		event.UserName = d.User.Name
	}
	if d.Hotel != nil {
		event.HotelName = d.Hotel.Name
	}
	switch {
	case d.Apartment != nil:
		event.UnitName = d.Apartment.Name
	case d.Room != nil:
		event.UnitName = d.Room.Name
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	w.notifier.NotifyBooking(ctx, event)
}
