package models

import (
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	gorm.Model
	Name  string `json:"name"`
	Email string `gorm:"uniqueIndex" json:"email"`
	Role  Role   `gorm:"size:16;not null" json:"role"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanActFor reports whether the actor may operate on a record owned by userID.
func (a Actor) CanActFor(userID uint) bool {
	return a.IsAdmin() || a.UserID == userID
}
