package models

import (
	"time"

	"github.com/gdg-garage/reservation-api/internal/daterange"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// ActiveStatuses are the statuses that hold inventory.
var ActiveStatuses = []BookingStatus{BookingPending, BookingConfirmed}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Booking targets one unit through (BookingType, UnitID), so an apartment and
// a room can never both be set.
type Booking struct {
	ID                   uint          `gorm:"primaryKey" json:"id"`
	Reference            string        `gorm:"size:36;uniqueIndex" json:"reference"`
	UserID               uint          `gorm:"not null;index" json:"user_id"`
	HotelID              uint          `gorm:"not null;index" json:"hotel_id"`
	BookingType          UnitKind      `gorm:"size:16;not null;index:idx_booking_unit,priority:1" json:"booking_type"`
	UnitID               uint          `gorm:"not null;index:idx_booking_unit,priority:2" json:"-"`
	CheckIn              time.Time     `gorm:"not null;index" json:"check_in_date"`
	CheckOut             time.Time     `gorm:"not null" json:"check_out_date"`
	NumberOfGuests       int           `gorm:"not null" json:"number_of_guests"`
	PaymentAmount        float64       `json:"payment_amount"`
	PaymentCurrency      string        `gorm:"size:3" json:"payment_currency"`
	PaymentMethod        string        `json:"payment_method"`
	PaymentStatus        PaymentStatus `gorm:"size:16" json:"payment_status"`
	PaymentTransactionID *string       `json:"payment_transaction_id,omitempty"`
	PaymentCompletedAt   *time.Time    `json:"payment_completed_at,omitempty"`
	Status               BookingStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedAt            time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

func (b Booking) Target() UnitRef {
	return UnitRef{Kind: b.BookingType, ID: b.UnitID}
}

func (b Booking) Range() daterange.Range {
	return daterange.Range{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

func (b Booking) Active() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}
