package models

import (
	"fmt"

	"gorm.io/gorm"
)

// UnitKind tags a bookable unit. It doubles as the booking type.
type UnitKind string

const (
	UnitApartment UnitKind = "APARTMENT"
	UnitRoom      UnitKind = "ROOM"
)

func (k UnitKind) Valid() bool {
	return k == UnitApartment || k == UnitRoom
}

// UnitRef identifies exactly one apartment or one room.
type UnitRef struct {
	Kind UnitKind `json:"kind"`
	ID   uint     `json:"id"`
}

func ApartmentRef(id uint) UnitRef { return UnitRef{Kind: UnitApartment, ID: id} }
func RoomRef(id uint) UnitRef      { return UnitRef{Kind: UnitRoom, ID: id} }

func (u UnitRef) String() string {
	return fmt.Sprintf("%s:%d", u.Kind, u.ID)
}

type Apartment struct {
	gorm.Model
	HotelID     uint   `gorm:"not null;index" json:"hotel_id"`
	Name        string `json:"name"`
	Capacity    int    `gorm:"not null" json:"capacity"`
	IsAvailable bool   `gorm:"not null" json:"is_available"`
	Rooms       []Room `gorm:"foreignKey:ApartmentID" json:"rooms,omitempty"`
}

func (a Apartment) Ref() UnitRef { return ApartmentRef(a.ID) }

type Room struct {
	gorm.Model
	HotelID              uint   `gorm:"not null;index" json:"hotel_id"`
	ApartmentID          *uint  `gorm:"index" json:"apartment_id,omitempty"`
	Name                 string `json:"name"`
	Capacity             int    `gorm:"not null" json:"capacity"`
	IsAvailable          bool   `gorm:"not null" json:"is_available"`
	BookableIndividually bool   `gorm:"not null" json:"bookable_individually"`
}

func (r Room) Ref() UnitRef { return RoomRef(r.ID) }
