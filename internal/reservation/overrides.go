package reservation

import (
	"context"

	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/gdg-garage/reservation-api/internal/daterange"
	"github.com/gdg-garage/reservation-api/internal/models"
	"github.com/sirupsen/logrus"
)

type RangeResult struct {
	Written int `json:"written"`
}

func (w *Workflow) overrideUnit(ctx context.Context, actor models.Actor, kind models.UnitKind, id uint) (models.UnitRef, error) {
	if !actor.IsAdmin() {
		return models.UnitRef{}, apperr.Forbidden("only admins can manage availability overrides")
	}
	ref := models.UnitRef{Kind: kind, ID: id}
	if _, err := w.units.GetUnit(ctx, ref); err != nil {
		return models.UnitRef{}, err
	}
	return ref, nil
}

func (w *Workflow) SetOverride(ctx context.Context, actor models.Actor, req OverrideRequest) (*models.AvailabilityOverride, error) {
	if err := check(w.validate, req); err != nil {
		return nil, err
	}
	day, err := daterange.Parse(req.Date)
	if err != nil {
		return nil, err
	}
	unit, err := w.overrideUnit(ctx, actor, req.UnitKind, req.UnitID)
	if err != nil {
		return nil, err
	}
	return w.overrides.SetOverride(ctx, unit, day, req.IsAvailable)
}

// SetOverrideRange writes one override per day in [start, end]. On failure
// the result still reports how many days were written.
func (w *Workflow) SetOverrideRange(ctx context.Context, actor models.Actor, req OverrideRangeRequest) (*RangeResult, error) {
	if err := check(w.validate, req); err != nil {
		return nil, err
	}
	start, err := daterange.Parse(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := daterange.Parse(req.EndDate)
	if err != nil {
		return nil, err
	}
	unit, err := w.overrideUnit(ctx, actor, req.UnitKind, req.UnitID)
	if err != nil {
		return nil, err
	}

	written, err := w.overrides.SetRange(ctx, unit, start, end, req.IsAvailable)
	if err != nil {
		w.log.WithError(err).WithFields(logrus.Fields{
			"unit":    unit.String(),
			"written": written,
		}).Warn("override range partially applied")
		return &RangeResult{Written: written}, err
	}
	return &RangeResult{Written: written}, nil
}

func (w *Workflow) QueryOverrides(ctx context.Context, actor models.Actor, kind models.UnitKind, id uint, startDate, endDate string) ([]models.AvailabilityOverride, error) {
	start, err := daterange.Parse(startDate)
	if err != nil {
		return nil, err
	}
	end, err := daterange.Parse(endDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, apperr.InvalidInput("end date must not be before start date")
	}
	unit, err := w.overrideUnit(ctx, actor, kind, id)
	if err != nil {
		return nil, err
	}
	overrides, err := w.overrides.Query(ctx, unit, start, end)
	if err != nil {
		return nil, err
	}
	if overrides == nil {
		overrides = []models.AvailabilityOverride{}
	}
	return overrides, nil
}

func (w *Workflow) DeleteOverride(ctx context.Context, actor models.Actor, kind models.UnitKind, id uint, date string) error {
	day, err := daterange.Parse(date)
	if err != nil {
		return err
	}
	unit, err := w.overrideUnit(ctx, actor, kind, id)
	if err != nil {
		return err
	}
	return w.overrides.Delete(ctx, unit, day)
}
