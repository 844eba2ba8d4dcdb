package handlers

import (
	"context"

	"github.com/gdg-garage/reservation-api/internal/auth"
	"github.com/gdg-garage/reservation-api/internal/models"
	"github.com/gdg-garage/reservation-api/internal/reservation"
	"github.com/sirupsen/logrus"
)

type BookingHandler struct {
	workflow    *reservation.Workflow
	authHandler *auth.AuthHandler
	log         logrus.FieldLogger
}

func NewBookingHandler(workflow *reservation.Workflow, authHandler *auth.AuthHandler, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{workflow: workflow, authHandler: authHandler, log: log}
}

type BookApartmentInput struct {
	auth.AuthInput
	Body reservation.BookApartmentRequest
}

type BookRoomInput struct {
	auth.AuthInput
	Body reservation.BookRoomRequest
}

type BookingOutput struct {
	Body *reservation.BookingDetails
}

func (h *BookingHandler) HandleBookApartment(ctx context.Context, input *BookApartmentInput) (*BookingOutput, error) {
	actor, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	details, err := h.workflow.BookApartment(ctx, actor, input.Body)
	if err != nil {
		return nil, httpError(h.log, err)
	}
	return &BookingOutput{Body: details}, nil
}

func (h *BookingHandler) HandleBookRoom(ctx context.Context, input *BookRoomInput) (*BookingOutput, error) {
	actor, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	details, err := h.workflow.BookRoom(ctx, actor, input.Body)
	if err != nil {
		return nil, httpError(h.log, err)
	}
	return &BookingOutput{Body: details}, nil
}

type ProbeInput struct {
	auth.AuthInput
	Body reservation.ProbeRequest
}

type ProbeOutput struct {
	Body *reservation.ProbeResult
}

func (h *BookingHandler) HandleProbe(ctx context.Context, input *ProbeInput) (*ProbeOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}
	res, err := h.workflow.Probe(ctx, input.Body)
	if err != nil {
		return nil, httpError(h.log, err)
	}
	return &ProbeOutput{Body: res}, nil
}

type UpdateBookingInput struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body reservation.StatusUpdate
}

func (h *BookingHandler) HandleUpdateBooking(ctx context.Context, input *UpdateBookingInput) (*BookingOutput, error) {
	actor, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	details, err := h.workflow.UpdateStatus(ctx, actor, input.ID, input.Body)
	if err != nil {
		return nil, httpError(h.log, err)
	}
	return &BookingOutput{Body: details}, nil
}

type CancelBookingInput struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *BookingHandler) HandleCancelBooking(ctx context.Context, input *CancelBookingInput) (*BookingOutput, error) {
	actor, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	details, err := h.workflow.Cancel(ctx, actor, input.ID)
	if err != nil {
		return nil, httpError(h.log, err)
	}
	return &BookingOutput{Body: details}, nil
}

type ListBookingsInput struct {
	auth.AuthInput
	UserID      uint   `query:"user_id" doc:"Only bookings of this user"`
	HotelID     uint   `query:"hotel_id" doc:"Only bookings in this hotel"`
	Status      string `query:"status" enum:"PENDING,CONFIRMED,CANCELLED,COMPLETED" doc:"Only bookings in this status"`
	BookingType string `query:"booking_type" enum:"APARTMENT,ROOM" doc:"Only bookings of this type"`
	Offset      int    `query:"offset" minimum:"0" default:"0"`
	Limit       int    `query:"limit" minimum:"0" maximum:"100" default:"20"`
}

type ListBookingsOutput struct {
	Body *reservation.ListResult
}

func (h *BookingHandler) HandleListBookings(ctx context.Context, input *ListBookingsInput) (*ListBookingsOutput, error) {
	actor, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	res, err := h.workflow.List(ctx, actor, reservation.ListRequest{
		UserID:      input.UserID,
		HotelID:     input.HotelID,
		Status:      models.BookingStatus(input.Status),
		BookingType: models.UnitKind(input.BookingType),
		Offset:      input.Offset,
		Limit:       input.Limit,
	})
	if err != nil {
		return nil, httpError(h.log, err)
	}
	return &ListBookingsOutput{Body: res}, nil
}
