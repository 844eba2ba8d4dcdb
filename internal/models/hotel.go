package models

import (
	"gorm.io/gorm"
)

type Hotel struct {
	gorm.Model
	Name       string      `gorm:"not null" json:"name"`
	City       string      `json:"city"`
	Apartments []Apartment `gorm:"foreignKey:HotelID" json:"apartments,omitempty"`
}
