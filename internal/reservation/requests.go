package reservation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/gdg-garage/reservation-api/internal/models"
	"github.com/go-playground/validator/v10"
)

// BookingFields are shared by both booking variants.
type BookingFields struct {
	UserID               uint                 `json:"user_id" validate:"required"`
	HotelID              uint                 `json:"hotel_id" validate:"required"`
	CheckInDate          string               `json:"check_in_date" validate:"required" example:"2025-06-01"`
	CheckOutDate         string               `json:"check_out_date" validate:"required" example:"2025-06-05"`
	NumberOfGuests       int                  `json:"number_of_guests" validate:"required,min=1"`
	PaymentAmount        float64              `json:"payment_amount" validate:"min=0"`
	PaymentCurrency      string               `json:"payment_currency,omitempty" validate:"omitempty,len=3"`
	PaymentMethod        string               `json:"payment_method" validate:"required"`
	PaymentStatus        models.PaymentStatus `json:"payment_status,omitempty"`
	PaymentTransactionID *string              `json:"payment_transaction_id,omitempty"`
}

type BookApartmentRequest struct {
	ApartmentID uint `json:"apartment_id" validate:"required"`
	BookingFields
}

type BookRoomRequest struct {
	RoomID uint `json:"room_id" validate:"required"`
	BookingFields
}

// ProbeRequest asks whether a unit could be booked. NumberOfGuests is
// optional; when zero the capacity rule is skipped.
type ProbeRequest struct {
	BookingType    models.UnitKind `json:"booking_type" validate:"required"`
	ApartmentID    uint            `json:"apartment_id,omitempty"`
	RoomID         uint            `json:"room_id,omitempty"`
	CheckInDate    string          `json:"check_in_date" validate:"required"`
	CheckOutDate   string          `json:"check_out_date" validate:"required"`
	NumberOfGuests int             `json:"number_of_guests,omitempty" validate:"min=0"`
}

type StatusUpdate struct {
	Status        *models.BookingStatus `json:"status,omitempty"`
	PaymentStatus *models.PaymentStatus `json:"payment_status,omitempty"`
}

type ListRequest struct {
	UserID      uint
	HotelID     uint
	Status      models.BookingStatus
	BookingType models.UnitKind
	Offset      int
	Limit       int
}

type OverrideRequest struct {
	UnitKind    models.UnitKind `json:"unit_kind" validate:"required"`
	UnitID      uint            `json:"unit_id" validate:"required"`
	Date        string          `json:"date" validate:"required"`
	IsAvailable bool            `json:"is_available"`
}

type OverrideRangeRequest struct {
	UnitKind    models.UnitKind `json:"unit_kind" validate:"required"`
	UnitID      uint            `json:"unit_id" validate:"required"`
	StartDate   string          `json:"start_date" validate:"required"`
	EndDate     string          `json:"end_date" validate:"required"`
	IsAvailable bool            `json:"is_available"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates req and reports the first failing field as InvalidInput.
func check(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return apperr.InvalidInput("invalid request")
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return apperr.InvalidInput("%s is required", fe.Field())
	case "min":
		return apperr.InvalidInput("%s must be at least %s", fe.Field(), fe.Param())
	case "len":
		return apperr.InvalidInput("%s must be %s characters long", fe.Field(), fe.Param())
	default:
		return apperr.InvalidInput("%s is invalid", fe.Field())
	}
}
