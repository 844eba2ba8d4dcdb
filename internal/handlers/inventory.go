package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/reservation-api/internal/auth"
	"github.com/gdg-garage/reservation-api/internal/inventory"
	"github.com/gdg-garage/reservation-api/internal/models"
	"github.com/sirupsen/logrus"
)

// InventoryHandler exposes admin management of users, hotels, apartments and
// rooms.
type InventoryHandler struct {
	units       *inventory.Store
	authHandler *auth.AuthHandler
	log         logrus.FieldLogger
}

func NewInventoryHandler(units *inventory.Store, authHandler *auth.AuthHandler, log logrus.FieldLogger) *InventoryHandler {
	return &InventoryHandler{units: units, authHandler: authHandler, log: log}
}

func (h *InventoryHandler) requireAdmin(ctx context.Context, in auth.AuthInput) error {
	actor, err := h.authHandler.Authorize(ctx, in)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return huma.Error403Forbidden("Access denied: admin role required")
	}
	return nil
}

type CreateUserInput struct {
	auth.AuthInput
	Body struct {
		Name  string      `json:"name" doc:"Display name" minLength:"1"`
		Email string      `json:"email" doc:"Unique email" format:"email"`
		Role  models.Role `json:"role,omitempty" enum:"USER,ADMIN" doc:"Defaults to USER"`
	}
}

type UserOutput struct {
	Body *models.User
}

func (h *InventoryHandler) HandleCreateUser(ctx context.Context, input *CreateUserInput) (*UserOutput, error) {
	if err := h.requireAdmin(ctx, input.AuthInput); err != nil {
		return nil, err
	}
	user := models.User{Name: input.Body.Name, Email: input.Body.Email, Role: input.Body.Role}
	if err := h.units.CreateUser(ctx, &user); err != nil {
		return nil, httpError(h.log, err)
	}
	return &UserOutput{Body: &user}, nil
}

type CreateHotelInput struct {
	auth.AuthInput
	Body struct {
		Name string `json:"name" minLength:"1"`
		City string `json:"city,omitempty"`
	}
}

type HotelOutput struct {
	Body *models.Hotel
}

func (h *InventoryHandler) HandleCreateHotel(ctx context.Context, input *CreateHotelInput) (*HotelOutput, error) {
	if err := h.requireAdmin(ctx, input.AuthInput); err != nil {
		return nil, err
	}
	hotel := models.Hotel{Name: input.Body.Name, City: input.Body.City}
	if err := h.units.CreateHotel(ctx, &hotel); err != nil {
		return nil, httpError(h.log, err)
	}
	return &HotelOutput{Body: &hotel}, nil
}

type CreateApartmentInput struct {
	auth.AuthInput
	Body struct {
		HotelID     uint   `json:"hotel_id"`
		Name        string `json:"name"`
		Capacity    int    `json:"capacity" minimum:"1"`
		IsAvailable *bool  `json:"is_available,omitempty" doc:"Defaults to true"`
	}
}

type ApartmentOutput struct {
	Body *models.Apartment
}

func (h *InventoryHandler) HandleCreateApartment(ctx context.Context, input *CreateApartmentInput) (*ApartmentOutput, error) {
	if err := h.requireAdmin(ctx, input.AuthInput); err != nil {
		return nil, err
	}
	apartment := models.Apartment{
		HotelID:     input.Body.HotelID,
		Name:        input.Body.Name,
		Capacity:    input.Body.Capacity,
		IsAvailable: boolOr(input.Body.IsAvailable, true),
	}
	if err := h.units.CreateApartment(ctx, &apartment); err != nil {
		return nil, httpError(h.log, err)
	}
	return &ApartmentOutput{Body: &apartment}, nil
}

type CreateRoomInput struct {
	auth.AuthInput
	Body struct {
		HotelID              uint   `json:"hotel_id"`
		ApartmentID          *uint  `json:"apartment_id,omitempty" doc:"Parent apartment, if any"`
		Name                 string `json:"name"`
		Capacity             int    `json:"capacity" minimum:"1"`
		IsAvailable          *bool  `json:"is_available,omitempty" doc:"Defaults to true"`
		BookableIndividually *bool  `json:"bookable_individually,omitempty" doc:"Defaults to true for standalone rooms and false inside an apartment"`
	}
}

type RoomOutput struct {
	Body *models.Room
}

func (h *InventoryHandler) HandleCreateRoom(ctx context.Context, input *CreateRoomInput) (*RoomOutput, error) {
	if err := h.requireAdmin(ctx, input.AuthInput); err != nil {
		return nil, err
	}
	room := models.Room{
		HotelID:              input.Body.HotelID,
		ApartmentID:          input.Body.ApartmentID,
		Name:                 input.Body.Name,
		Capacity:             input.Body.Capacity,
		IsAvailable:          boolOr(input.Body.IsAvailable, true),
		BookableIndividually: boolOr(input.Body.BookableIndividually, input.Body.ApartmentID == nil),
	}
	if err := h.units.CreateRoom(ctx, &room); err != nil {
		return nil, httpError(h.log, err)
	}
	return &RoomOutput{Body: &room}, nil
}

type ApartmentRoomsInput struct {
	auth.AuthInput
	ID uint `path:"id"`
}

type ApartmentRoomsOutput struct {
	Body []models.Room
}

func (h *InventoryHandler) HandleApartmentRooms(ctx context.Context, input *ApartmentRoomsInput) (*ApartmentRoomsOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}
	rooms, err := h.units.RoomsOfApartment(ctx, input.ID)
	if err != nil {
		return nil, httpError(h.log, err)
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	return &ApartmentRoomsOutput{Body: rooms}, nil
}

type DeleteByIDInput struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *InventoryHandler) HandleDeleteHotel(ctx context.Context, input *DeleteByIDInput) (*struct{}, error) {
	return h.delete(ctx, input, h.units.DeleteHotel)
}

func (h *InventoryHandler) HandleDeleteApartment(ctx context.Context, input *DeleteByIDInput) (*struct{}, error) {
	return h.delete(ctx, input, h.units.DeleteApartment)
}

func (h *InventoryHandler) HandleDeleteRoom(ctx context.Context, input *DeleteByIDInput) (*struct{}, error) {
	return h.delete(ctx, input, h.units.DeleteRoom)
}

func (h *InventoryHandler) delete(ctx context.Context, input *DeleteByIDInput, del func(context.Context, uint) error) (*struct{}, error) {
	if err := h.requireAdmin(ctx, input.AuthInput); err != nil {
		return nil, err
	}
	if err := del(ctx, input.ID); err != nil {
		return nil, httpError(h.log, err)
	}
	return nil, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
