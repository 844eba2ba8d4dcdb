package models

import (
	"time"
)

// AvailabilityOverride is an operator-declared availability flag for one unit
// on one date. There is at most one row per (unit, date).
type AvailabilityOverride struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UnitKind    UnitKind  `gorm:"size:16;not null;uniqueIndex:idx_override_unit_date,priority:1" json:"unit_kind"`
	UnitID      uint      `gorm:"not null;uniqueIndex:idx_override_unit_date,priority:2" json:"unit_id"`
	Date        time.Time `gorm:"not null;uniqueIndex:idx_override_unit_date,priority:3" json:"date"`
	IsAvailable bool      `gorm:"not null" json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (o AvailabilityOverride) Unit() UnitRef {
	return UnitRef{Kind: o.UnitKind, ID: o.UnitID}
}
