package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/gdg-garage/reservation-api/internal/auth"
	"github.com/gdg-garage/reservation-api/internal/models"
	"github.com/gdg-garage/reservation-api/internal/reservation"
	"github.com/sirupsen/logrus"
)

type OverrideHandler struct {
	workflow    *reservation.Workflow
	authHandler *auth.AuthHandler
	log         logrus.FieldLogger
}

func NewOverrideHandler(workflow *reservation.Workflow, authHandler *auth.AuthHandler, log logrus.FieldLogger) *OverrideHandler {
	return &OverrideHandler{workflow: workflow, authHandler: authHandler, log: log}
}

type SetOverrideInput struct {
	auth.AuthInput
	Body reservation.OverrideRequest
}

type OverrideOutput struct {
	Body *models.AvailabilityOverride
}

func (h *OverrideHandler) HandleSetOverride(ctx context.Context, input *SetOverrideInput) (*OverrideOutput, error) {
	actor, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	override, err := h.workflow.SetOverride(ctx, actor, input.Body)
	if err != nil {
		return nil, httpError(h.log, err)
	}
	return &OverrideOutput{Body: override}, nil
}

type SetOverrideRangeInput struct {
	auth.AuthInput
	Body reservation.OverrideRangeRequest
}

type SetOverrideRangeOutput struct {
	Body *reservation.RangeResult
}

func (h *OverrideHandler) HandleSetOverrideRange(ctx context.Context, input *SetOverrideRangeInput) (*SetOverrideRangeOutput, error) {
	actor, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	res, err := h.workflow.SetOverrideRange(ctx, actor, input.Body)
	if err != nil {
		if res != nil && apperr.KindOf(err) == apperr.KindUnavailable {
			h.log.WithError(err).Error("override range failed")
			return nil, huma.Error503ServiceUnavailable(fmt.Sprintf("%s (%d days written)", apperr.MessageOf(err), res.Written))
		}
		return nil, httpError(h.log, err)
	}
	return &SetOverrideRangeOutput{Body: res}, nil
}

type OverrideUnitParams struct {
	UnitKind string `query:"unit_kind" required:"true" enum:"APARTMENT,ROOM"`
	UnitID   uint   `query:"unit_id" required:"true"`
}

type QueryOverridesInput struct {
	auth.AuthInput
	OverrideUnitParams
	StartDate string `query:"start_date" required:"true" example:"2025-08-01"`
	EndDate   string `query:"end_date" required:"true" example:"2025-08-31"`
}

type QueryOverridesOutput struct {
	Body []models.AvailabilityOverride
}

func (h *OverrideHandler) HandleQueryOverrides(ctx context.Context, input *QueryOverridesInput) (*QueryOverridesOutput, error) {
	actor, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	overrides, err := h.workflow.QueryOverrides(ctx, actor, models.UnitKind(input.UnitKind), input.UnitID, input.StartDate, input.EndDate)
	if err != nil {
		return nil, httpError(h.log, err)
	}
	return &QueryOverridesOutput{Body: overrides}, nil
}

type DeleteOverrideInput struct {
	auth.AuthInput
	OverrideUnitParams
	Date string `query:"date" required:"true" example:"2025-08-10"`
}

func (h *OverrideHandler) HandleDeleteOverride(ctx context.Context, input *DeleteOverrideInput) (*struct{}, error) {
	actor, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.workflow.DeleteOverride(ctx, actor, models.UnitKind(input.UnitKind), input.UnitID, input.Date); err != nil {
		return nil, httpError(h.log, err)
	}
	return nil, nil
}
