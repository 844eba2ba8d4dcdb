// Package conflict decides whether a unit can be newly booked for a stay.
//
// Apartments contain rooms, so the check runs in both directions: an
// apartment is blocked by bookings on any of its rooms, and a room is blocked
// by bookings on its parent apartment. Sibling rooms never block each other.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/gdg-garage/reservation-api/internal/availability"
	"github.com/gdg-garage/reservation-api/internal/daterange"
	"github.com/gdg-garage/reservation-api/internal/inventory"
	"github.com/gdg-garage/reservation-api/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// Code classifies why a candidate is not available.
type Code string

const (
	CodeNone                  Code = ""
	CodeUnitNotFound          Code = "unit_not_found"
	CodeUnitUnavailable       Code = "unit_unavailable"
	CodeNotBookableIndividual Code = "not_bookable_individually"
	CodeOverCapacity          Code = "over_capacity"
	CodeInvalidDates          Code = "invalid_dates"
	CodeUnitBooked            Code = "unit_booked"
	CodeApartmentBooked       Code = "apartment_booked"
	CodeRoomsBooked           Code = "rooms_booked"
	CodeManualBlock           Code = "manual_block"
)

// Candidate is a prospective booking. Guests of zero skips the capacity
// check; a zero Today skips the past-date check.
type Candidate struct {
	Unit   models.UnitRef
	Range  daterange.Range
	Guests int
	Today  time.Time
}

type Result struct {
	Available bool   `json:"available"`
	Code      Code   `json:"code,omitempty"`
	Reason    string `json:"reason,omitempty"`
	// Unit is the resolved target, nil when it does not exist.
	Unit *inventory.Unit `json:"-"`
}

func unavailable(unit *inventory.Unit, code Code, format string, args ...any) Result {
	return Result{Code: code, Reason: fmt.Sprintf(format, args...), Unit: unit}
}

// Err converts a negative result into the error kind a booking attempt
// should fail with. It returns nil for an available result.
func (r Result) Err() error {
	switch r.Code {
	case CodeNone:
		return nil
	case CodeUnitNotFound:
		return apperr.NotFound("%s", r.Reason)
	case CodeOverCapacity, CodeInvalidDates:
		return apperr.InvalidInput("%s", r.Reason)
	default:
		return apperr.Conflict("%s", r.Reason)
	}
}

type Detector struct {
	db        *gorm.DB
	units     *inventory.Store
	overrides *availability.Store
	tracer    trace.Tracer
}

func NewDetector(db *gorm.DB, units *inventory.Store, overrides *availability.Store) *Detector {
	return &Detector{
		db:        db,
		units:     units,
		overrides: overrides,
		tracer:    otel.Tracer("reservation-api/conflict"),
	}
}

// WithTx returns a Detector whose reads all go through tx.
func (d *Detector) WithTx(tx *gorm.DB) *Detector {
	return &Detector{
		db:        tx,
		units:     d.units.WithTx(tx),
		overrides: d.overrides.WithTx(tx),
		tracer:    d.tracer,
	}
}

// Check runs the eligibility preconditions in order, then the hierarchical
// overlap check, then the override check. A negative answer is a Result,
// not an error; errors are reserved for malformed candidates and storage
// failures.
func (d *Detector) Check(ctx context.Context, c Candidate) (Result, error) {
	ctx, span := d.tracer.Start(ctx, "conflict.check",
		trace.WithAttributes(
			attribute.String("unit", c.Unit.String()),
			attribute.String("range", c.Range.String()),
			attribute.Int("guests", c.Guests),
		),
	)
	defer span.End()

	res, err := d.check(ctx, c)
	if err == nil {
		span.SetAttributes(
			attribute.Bool("available", res.Available),
			attribute.String("code", string(res.Code)),
		)
	}
	return res, err
}

func (d *Detector) check(ctx context.Context, c Candidate) (Result, error) {
	if !c.Unit.Kind.Valid() {
		return Result{}, apperr.InvalidInput("unknown booking type %q", c.Unit.Kind)
	}
	if !c.Range.CheckIn.Before(c.Range.CheckOut) {
		return Result{}, apperr.InvalidInput("check-out date must be after check-in date")
	}

	label := unitLabel(c.Unit.Kind)

	unit, err := d.units.GetUnit(ctx, c.Unit)
	if errors.Is(err, apperr.ErrNotFound) {
		return unavailable(nil, CodeUnitNotFound, "%s not found", label), nil
	}
	if err != nil {
		return Result{}, err
	}

	if !unit.IsAvailable {
		return unavailable(unit, CodeUnitUnavailable, "%s is not available for booking", label), nil
	}
	if c.Unit.Kind == models.UnitRoom && !unit.BookableIndividually {
		return unavailable(unit, CodeNotBookableIndividual, "room cannot be booked individually"), nil
	}
	if c.Guests > unit.Capacity {
		return unavailable(unit, CodeOverCapacity, "number of guests (%d) exceeds %s capacity (%d)", c.Guests, label, unit.Capacity), nil
	}
	if !c.Today.IsZero() {
		if err := c.Range.ValidateForCreation(c.Today); err != nil {
			return unavailable(unit, CodeInvalidDates, "%s", apperr.MessageOf(err)), nil
		}
	}

	if res, blocked, err := d.checkBookings(ctx, unit, c.Range); err != nil || blocked {
		return res, err
	}

	blockedOn, err := d.overrides.FirstBlockingDate(ctx, c.Unit, c.Range)
	if err != nil {
		return Result{}, err
	}
	if blockedOn != nil {
		return unavailable(unit, CodeManualBlock, "%s is manually blocked on %s", label, blockedOn.Format(daterange.Layout)), nil
	}

	return Result{Available: true, Unit: unit}, nil
}

func (d *Detector) checkBookings(ctx context.Context, unit *inventory.Unit, r daterange.Range) (Result, bool, error) {
	switch unit.Ref.Kind {
	case models.UnitApartment:
		hit, err := d.hasOverlap(ctx, models.UnitApartment, []uint{unit.Ref.ID}, r)
		if err != nil {
			return Result{}, false, err
		}
		if hit {
			return unavailable(unit, CodeUnitBooked, "apartment already booked for the selected dates"), true, nil
		}
		hit, err = d.hasOverlap(ctx, models.UnitRoom, unit.RoomIDs, r)
		if err != nil {
			return Result{}, false, err
		}
		if hit {
			return unavailable(unit, CodeRoomsBooked, "one or more rooms in this apartment are already booked for the selected dates"), true, nil
		}
	case models.UnitRoom:
		hit, err := d.hasOverlap(ctx, models.UnitRoom, []uint{unit.Ref.ID}, r)
		if err != nil {
			return Result{}, false, err
		}
		if hit {
			return unavailable(unit, CodeUnitBooked, "room already booked for the selected dates"), true, nil
		}
		if unit.ParentApartmentID != nil {
			hit, err = d.hasOverlap(ctx, models.UnitApartment, []uint{*unit.ParentApartmentID}, r)
			if err != nil {
				return Result{}, false, err
			}
			if hit {
				return unavailable(unit, CodeApartmentBooked, "apartment already booked for the selected dates"), true, nil
			}
		}
	}
	return Result{}, false, nil
}

// hasOverlap reports whether any active booking of kind on one of ids
// shares a night with r.
func (d *Detector) hasOverlap(ctx context.Context, kind models.UnitKind, ids []uint, r daterange.Range) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	var count int64
	err := d.db.WithContext(ctx).Model(&models.Booking{}).
		Where("booking_type = ? AND unit_id IN ?", kind, ids).
		Where("status IN ?", models.ActiveStatuses).
		Where("check_in < ? AND check_out > ?", r.CheckOut, r.CheckIn).
		Count(&count).Error
	if err != nil {
		return false, apperr.Unavailable(err, "failed to check booking overlaps")
	}
	return count > 0, nil
}

func unitLabel(kind models.UnitKind) string {
	if kind == models.UnitApartment {
		return "apartment"
	}
	return "room"
}
