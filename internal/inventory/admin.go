package inventory

import (
	"context"
	"errors"

	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/gdg-garage/reservation-api/internal/models"
	"gorm.io/gorm"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Role != models.RoleUser && user.Role != models.RoleAdmin {
		return apperr.InvalidInput("unknown role %q", user.Role)
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("user with email %q already exists", user.Email)
		}
		return apperr.Unavailable(err, "failed to create user")
	}
	return nil
}

// EnsureAdmin returns the user with the given email, creating it as an admin
// when missing and promoting it when it exists with a lower role.
func (s *Store) EnsureAdmin(ctx context.Context, name, email string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		user = &models.User{Name: name, Email: email, Role: models.RoleAdmin}
		if err := s.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleAdmin {
		if err := s.db.WithContext(ctx).Model(user).Update("role", models.RoleAdmin).Error; err != nil {
			return nil, apperr.Unavailable(err, "failed to promote user")
		}
		user.Role = models.RoleAdmin
	}
	return user, nil
}

func (s *Store) CreateHotel(ctx context.Context, hotel *models.Hotel) error {
	if hotel.Name == "" {
		return apperr.InvalidInput("name is required")
	}
	if err := s.db.WithContext(ctx).Create(hotel).Error; err != nil {
		return apperr.Unavailable(err, "failed to create hotel")
	}
	return nil
}

func (s *Store) CreateApartment(ctx context.Context, apartment *models.Apartment) error {
	if apartment.Capacity < 1 {
		return apperr.InvalidInput("capacity must be at least 1")
	}
	if _, err := s.GetHotel(ctx, apartment.HotelID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Omit("Rooms").Create(apartment).Error; err != nil {
		return apperr.Unavailable(err, "failed to create apartment")
	}
	return nil
}

// CreateRoom stores a room. A room inside an apartment must belong to the
// apartment's hotel.
func (s *Store) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.Capacity < 1 {
		return apperr.InvalidInput("capacity must be at least 1")
	}
	if _, err := s.GetHotel(ctx, room.HotelID); err != nil {
		return err
	}
	if room.ApartmentID != nil {
		apartment, err := s.GetApartment(ctx, *room.ApartmentID)
		if err != nil {
			return err
		}
		if apartment.HotelID != room.HotelID {
			return apperr.InvalidInput("room hotel %d does not match apartment hotel %d", room.HotelID, apartment.HotelID)
		}
	}
	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		return apperr.Unavailable(err, "failed to create room")
	}
	return nil
}

// DeleteHotel removes the hotel together with its apartments, rooms, their
// bookings and overrides.
func (s *Store) DeleteHotel(ctx context.Context, id uint) error {
	if _, err := s.GetHotel(ctx, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var apartmentIDs, roomIDs []uint
		if err := tx.Model(&models.Apartment{}).Where("hotel_id = ?", id).Pluck("id", &apartmentIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Room{}).Where("hotel_id = ?", id).Pluck("id", &roomIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("hotel_id = ?", id).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
		if err := deleteOverrides(tx, models.UnitApartment, apartmentIDs); err != nil {
			return err
		}
		if err := deleteOverrides(tx, models.UnitRoom, roomIDs); err != nil {
			return err
		}
		if err := tx.Unscoped().Where("hotel_id = ?", id).Delete(&models.Room{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("hotel_id = ?", id).Delete(&models.Apartment{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Hotel{}, id).Error
	})
	if err != nil {
		return apperr.Unavailable(err, "failed to delete hotel")
	}
	return nil
}

// DeleteApartment removes the apartment and every room inside it, with all
// bookings and overrides that reference any of them.
func (s *Store) DeleteApartment(ctx context.Context, id uint) error {
	if _, err := s.GetApartment(ctx, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var roomIDs []uint
		if err := tx.Model(&models.Room{}).Where("apartment_id = ?", id).Pluck("id", &roomIDs).Error; err != nil {
			return err
		}
		if err := deleteBookings(tx, models.UnitRoom, roomIDs); err != nil {
			return err
		}
		if err := deleteBookings(tx, models.UnitApartment, []uint{id}); err != nil {
			return err
		}
		if err := deleteOverrides(tx, models.UnitRoom, roomIDs); err != nil {
			return err
		}
		if err := deleteOverrides(tx, models.UnitApartment, []uint{id}); err != nil {
			return err
		}
		if err := tx.Unscoped().Where("apartment_id = ?", id).Delete(&models.Room{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Apartment{}, id).Error
	})
	if err != nil {
		return apperr.Unavailable(err, "failed to delete apartment")
	}
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, id uint) error {
	if _, err := s.GetRoom(ctx, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteBookings(tx, models.UnitRoom, []uint{id}); err != nil {
			return err
		}
		if err := deleteOverrides(tx, models.UnitRoom, []uint{id}); err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Room{}, id).Error
	})
	if err != nil {
		return apperr.Unavailable(err, "failed to delete room")
	}
	return nil
}

func deleteBookings(tx *gorm.DB, kind models.UnitKind, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Where("booking_type = ? AND unit_id IN ?", kind, ids).Delete(&models.Booking{}).Error
}

func deleteOverrides(tx *gorm.DB, kind models.UnitKind, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Where("unit_kind = ? AND unit_id IN ?", kind, ids).Delete(&models.AvailabilityOverride{}).Error
}
