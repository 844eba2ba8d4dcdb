// Package availability stores per-unit, per-date availability overrides set by
// operators, independently of bookings.
package availability

import (
	"context"
	"errors"
	"time"

	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/gdg-garage/reservation-api/internal/daterange"
	"github.com/gdg-garage/reservation-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a Store bound to tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// SetOverride upserts the flag for (unit, date). Setting the same pair twice
// replaces the stored value.
func (s *Store) SetOverride(ctx context.Context, unit models.UnitRef, date time.Time, isAvailable bool) (*models.AvailabilityOverride, error) {
	day := daterange.Day(date)
	override := models.AvailabilityOverride{
		UnitKind:    unit.Kind,
		UnitID:      unit.ID,
		Date:        day,
		IsAvailable: isAvailable,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "unit_kind"}, {Name: "unit_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_available", "updated_at"}),
	}).Create(&override).Error
	if err != nil {
		return nil, apperr.Unavailable(err, "failed to set availability override")
	}

	// Re-read so the caller sees the surviving row's id and created_at.
	var stored models.AvailabilityOverride
	err = s.db.WithContext(ctx).
		Where("unit_kind = ? AND unit_id = ? AND date = ?", unit.Kind, unit.ID, day).
		First(&stored).Error
	if err != nil {
		return nil, apperr.Unavailable(err, "failed to read availability override")
	}
	return &stored, nil
}

// SetRange upserts one override per calendar day in [start, end]. It is not
// atomic: on failure the returned count says how many days were written.
func (s *Store) SetRange(ctx context.Context, unit models.UnitRef, start, end time.Time, isAvailable bool) (int, error) {
	if daterange.Day(end).Before(daterange.Day(start)) {
		return 0, apperr.InvalidInput("end date must not be before start date")
	}

	count := 0
	err := daterange.EachDay(start, end, func(day time.Time) error {
		if err := ctx.Err(); err != nil {
			return apperr.Unavailable(err, "request cancelled")
		}
		if _, err := s.SetOverride(ctx, unit, day, isAvailable); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// Query returns the unit's overrides with dates in [start, end], oldest first.
func (s *Store) Query(ctx context.Context, unit models.UnitRef, start, end time.Time) ([]models.AvailabilityOverride, error) {
	var overrides []models.AvailabilityOverride
	err := s.db.WithContext(ctx).
		Where("unit_kind = ? AND unit_id = ? AND date >= ? AND date <= ?", unit.Kind, unit.ID, daterange.Day(start), daterange.Day(end)).
		Order("date asc").
		Find(&overrides).Error
	if err != nil {
		return nil, apperr.Unavailable(err, "failed to query availability overrides")
	}
	return overrides, nil
}

// FirstBlockingDate returns the earliest date in [CheckIn, CheckOut) on which
// the unit is marked unavailable, or nil when there is none.
func (s *Store) FirstBlockingDate(ctx context.Context, unit models.UnitRef, r daterange.Range) (*time.Time, error) {
	var override models.AvailabilityOverride
	err := s.db.WithContext(ctx).
		Where("unit_kind = ? AND unit_id = ? AND is_available = ? AND date >= ? AND date < ?", unit.Kind, unit.ID, false, r.CheckIn, r.CheckOut).
		Order("date asc").
		First(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unavailable(err, "failed to check availability overrides")
	}
	day := daterange.Day(override.Date)
	return &day, nil
}

func (s *Store) HasBlockingOverride(ctx context.Context, unit models.UnitRef, r daterange.Range) (bool, error) {
	day, err := s.FirstBlockingDate(ctx, unit, r)
	if err != nil {
		return false, err
	}
	return day != nil, nil
}

// Delete removes the override for (unit, date).
func (s *Store) Delete(ctx context.Context, unit models.UnitRef, date time.Time) error {
	day := daterange.Day(date)
	res := s.db.WithContext(ctx).
		Where("unit_kind = ? AND unit_id = ? AND date = ?", unit.Kind, unit.ID, day).
		Delete(&models.AvailabilityOverride{})
	if res.Error != nil {
		return apperr.Unavailable(res.Error, "failed to delete availability override")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("no override for %s on %s", unit, day.Format(daterange.Layout))
	}
	return nil
}
