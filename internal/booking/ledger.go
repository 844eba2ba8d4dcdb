// Package booking is the ledger of bookings: creation under a per-unit
// critical section, lifecycle transitions, cancellation and listing.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/gdg-garage/reservation-api/internal/conflict"
	"github.com/gdg-garage/reservation-api/internal/daterange"
	"github.com/gdg-garage/reservation-api/internal/inventory"
	"github.com/gdg-garage/reservation-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Draft is a booking about to be created.
type Draft struct {
	UserID               uint
	HotelID              uint
	Unit                 models.UnitRef
	Range                daterange.Range
	NumberOfGuests       int
	PaymentAmount        float64
	PaymentCurrency      string
	PaymentMethod        string
	PaymentStatus        models.PaymentStatus
	PaymentTransactionID *string
}

// Update changes the lifecycle status, the payment status, or both.
type Update struct {
	Status        *models.BookingStatus
	PaymentStatus *models.PaymentStatus
}

// Filter fields are optional; zero values match everything.
type Filter struct {
	UserID      uint
	HotelID     uint
	Status      models.BookingStatus
	BookingType models.UnitKind
}

type Page struct {
	Offset int
	Limit  int
}

type Options struct {
	Locker          Locker
	Clock           func() time.Time
	Location        *time.Location
	DefaultCurrency string
	Logger          logrus.FieldLogger
}

type Ledger struct {
	db       *gorm.DB
	units    *inventory.Store
	detector *conflict.Detector
	locker   Locker
	clock    func() time.Time
	loc      *time.Location
	currency string
	log      logrus.FieldLogger
	tracer   trace.Tracer
}

func NewLedger(db *gorm.DB, units *inventory.Store, detector *conflict.Detector, opts Options) *Ledger {
	l := &Ledger{
		db:       db,
		units:    units,
		detector: detector,
		locker:   opts.Locker,
		clock:    opts.Clock,
		loc:      opts.Location,
		currency: opts.DefaultCurrency,
		log:      opts.Logger,
		tracer:   otel.Tracer("reservation-api/booking"),
	}
	if l.locker == nil {
		l.locker = NewMemoryLocker()
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.loc == nil {
		l.loc = time.UTC
	}
	if l.currency == "" {
		l.currency = "USD"
	}
	if l.log == nil {
		l.log = logrus.StandardLogger()
	}
	return l
}

// Today is the first bookable calendar day.
func (l *Ledger) Today() time.Time {
	return daterange.Today(l.clock(), l.loc)
}

// Create re-runs every availability rule and inserts the booking as one
// atomic section. Creations whose units share a lock root are serialized by
// the locker; the transaction makes the read and the insert commit together.
func (l *Ledger) Create(ctx context.Context, d Draft) (*models.Booking, error) {
	ctx, span := l.tracer.Start(ctx, "booking.create",
		trace.WithAttributes(
			attribute.String("unit", d.Unit.String()),
			attribute.String("range", d.Range.String()),
		),
	)
	defer span.End()

	if err := validateDraft(d); err != nil {
		return nil, err
	}

	unit, err := l.units.GetUnit(ctx, d.Unit)
	if err != nil {
		return nil, err
	}

	unlock, err := l.locker.Lock(ctx, unit.LockRoot().String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	booking := models.Booking{
		Reference:            uuid.NewString(),
		UserID:               d.UserID,
		HotelID:              d.HotelID,
		BookingType:          d.Unit.Kind,
		UnitID:               d.Unit.ID,
		CheckIn:              d.Range.CheckIn,
		CheckOut:             d.Range.CheckOut,
		NumberOfGuests:       d.NumberOfGuests,
		PaymentAmount:        d.PaymentAmount,
		PaymentCurrency:      d.PaymentCurrency,
		PaymentMethod:        d.PaymentMethod,
		PaymentStatus:        d.PaymentStatus,
		PaymentTransactionID: d.PaymentTransactionID,
		Status:               models.BookingPending,
	}
	if booking.PaymentCurrency == "" {
		booking.PaymentCurrency = l.currency
	}
	if booking.PaymentStatus == "" {
		booking.PaymentStatus = models.PaymentPending
	}
	if booking.PaymentStatus == models.PaymentCompleted {
		now := l.clock()
		booking.PaymentCompletedAt = &now
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		units := l.units.WithTx(tx)
		if _, err := units.GetUser(ctx, d.UserID); err != nil {
			return err
		}
		if _, err := units.GetHotel(ctx, d.HotelID); err != nil {
			return err
		}

		res, err := l.detector.WithTx(tx).Check(ctx, conflict.Candidate{
			Unit:   d.Unit,
			Range:  d.Range,
			Guests: d.NumberOfGuests,
			Today:  l.Today(),
		})
		if err != nil {
			return err
		}
		if res.Unit != nil && res.Unit.HotelID != d.HotelID {
			return apperr.InvalidInput("%s does not belong to hotel %d", d.Unit, d.HotelID)
		}
		if !res.Available {
			return res.Err()
		}

		if err := tx.Create(&booking).Error; err != nil {
			return storageError(err, "failed to create booking")
		}
		return nil
	}, txOptions(l.db)...)
	if err != nil {
		span.SetAttributes(attribute.String("error.kind", string(apperr.KindOf(err))))
		return nil, storageError(err, "failed to create booking")
	}

	span.SetAttributes(attribute.Int("booking_id", int(booking.ID)))
	l.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"unit":       d.Unit.String(),
		"check_in":   d.Range.CheckIn.Format(daterange.Layout),
		"check_out":  d.Range.CheckOut.Format(daterange.Layout),
	}).Info("booking created")

	return &booking, nil
}

func validateDraft(d Draft) error {
	if !d.Unit.Kind.Valid() {
		return apperr.InvalidInput("unknown booking type %q", d.Unit.Kind)
	}
	if d.Unit.ID == 0 {
		return apperr.InvalidInput("unit id is required")
	}
	if !d.Range.CheckIn.Before(d.Range.CheckOut) {
		return apperr.InvalidInput("check-out date must be after check-in date")
	}
	if d.NumberOfGuests < 1 {
		return apperr.InvalidInput("number of guests must be at least 1")
	}
	if d.PaymentAmount < 0 {
		return apperr.InvalidInput("payment amount must not be negative")
	}
	if d.PaymentStatus != "" && !d.PaymentStatus.Valid() {
		return apperr.InvalidInput("unknown payment status %q", d.PaymentStatus)
	}
	return nil
}

// txOptions raises isolation to serializable on postgres. SQLite runs every
// transaction on its single connection, which is already serial.
func txOptions(db *gorm.DB) []*sql.TxOptions {
	if db.Dialector.Name() == "postgres" {
		return []*sql.TxOptions{{Isolation: sql.LevelSerializable}}
	}
	return nil
}

// storageError turns serialization failures and unique violations into
// Conflict so the caller retries from scratch.
func storageError(err error, message string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("booking conflicts with a concurrent booking")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "23505":
			return apperr.Conflict("booking conflicts with a concurrent booking")
		}
	}
	return apperr.Wrap(err, "%s", message)
}

func (l *Ledger) Get(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := l.db.WithContext(ctx).First(&booking, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("booking %d not found", id)
	}
	if err != nil {
		return nil, apperr.Unavailable(err, "failed to read booking")
	}
	return &booking, nil
}

// Transition applies a status change and/or a payment status change.
//
// Allowed status moves are PENDING -> CONFIRMED and PENDING|CONFIRMED ->
// CANCELLED|COMPLETED. Setting an active booking to the status it already
// has is a no-op.
func (l *Ledger) Transition(ctx context.Context, id uint, u Update) (*models.Booking, error) {
	ctx, span := l.tracer.Start(ctx, "booking.transition", trace.WithAttributes(attribute.Int("booking_id", int(id))))
	defer span.End()

	if u.Status == nil && u.PaymentStatus == nil {
		return nil, apperr.InvalidInput("status or payment status is required")
	}
	if u.Status != nil && !u.Status.Valid() {
		return nil, apperr.InvalidInput("unknown status %q", *u.Status)
	}
	if u.PaymentStatus != nil && !u.PaymentStatus.Valid() {
		return nil, apperr.InvalidInput("unknown payment status %q", *u.PaymentStatus)
	}

	booking, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if u.Status != nil {
		if err := checkTransition(booking.Status, *u.Status); err != nil {
			return nil, err
		}
		if *u.Status != booking.Status {
			changes["status"] = *u.Status
		}
	}
	if u.PaymentStatus != nil && *u.PaymentStatus != booking.PaymentStatus {
		changes["payment_status"] = *u.PaymentStatus
		if *u.PaymentStatus == models.PaymentCompleted && booking.PaymentCompletedAt == nil {
			changes["payment_completed_at"] = l.clock()
		}
	}
	if len(changes) == 0 {
		return booking, nil
	}

	// Conditional on the status we validated against, so two racing
	// transitions cannot both apply.
	res := l.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, booking.Status).
		Updates(changes)
	if res.Error != nil {
		return nil, apperr.Unavailable(res.Error, "failed to update booking")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Conflict("booking %d was modified concurrently", id)
	}

	updated, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	l.log.WithFields(logrus.Fields{
		"booking_id":     id,
		"status":         updated.Status,
		"payment_status": updated.PaymentStatus,
	}).Info("booking updated")
	return updated, nil
}

func checkTransition(from, to models.BookingStatus) error {
	if from == models.BookingCancelled {
		if to == models.BookingCancelled {
			return apperr.InvalidState("booking is already cancelled")
		}
		return apperr.InvalidState("cannot change status of a cancelled booking")
	}
	if from == models.BookingCompleted {
		if to == models.BookingCancelled {
			return apperr.InvalidState("cannot cancel a completed booking")
		}
		return apperr.InvalidState("cannot change status of a completed booking")
	}
	if from == to {
		return nil
	}
	switch to {
	case models.BookingCancelled, models.BookingCompleted:
		return nil
	case models.BookingConfirmed:
		if from == models.BookingPending {
			return nil
		}
	}
	return apperr.InvalidState("cannot change status from %s to %s", from, to)
}

// Cancel cancels a booking on behalf of its owner or an admin.
func (l *Ledger) Cancel(ctx context.Context, id uint, actor models.Actor) (*models.Booking, error) {
	booking, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(booking.UserID) {
		return nil, apperr.Forbidden("not allowed to cancel booking %d", id)
	}
	cancelled := models.BookingCancelled
	return l.Transition(ctx, id, Update{Status: &cancelled})
}

// List returns one page of matching bookings, newest first, and the total
// number of matches.
func (l *Ledger) List(ctx context.Context, f Filter, p Page) ([]models.Booking, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.InvalidInput("unknown status %q", f.Status)
	}
	if f.BookingType != "" && !f.BookingType.Valid() {
		return nil, 0, apperr.InvalidInput("unknown booking type %q", f.BookingType)
	}
	if p.Offset < 0 {
		return nil, 0, apperr.InvalidInput("offset must not be negative")
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}

	query := l.db.WithContext(ctx).Model(&models.Booking{})
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.HotelID != 0 {
		query = query.Where("hotel_id = ?", f.HotelID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.BookingType != "" {
		query = query.Where("booking_type = ?", f.BookingType)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Unavailable(err, "failed to count bookings")
	}

	var bookings []models.Booking
	err := query.Order("created_at desc").Order("id desc").
		Offset(p.Offset).Limit(p.Limit).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, apperr.Unavailable(err, "failed to list bookings")
	}
	return bookings, total, nil
}
