// Package inventory gives read access to hotels, apartments and rooms and
// owns their creation and cascading deletion.
package inventory

import (
	"context"
	"errors"

	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/gdg-garage/reservation-api/internal/models"
	"gorm.io/gorm"
)

// Unit is the common view of an apartment or a room.
type Unit struct {
	Ref                  models.UnitRef `json:"ref"`
	HotelID              uint           `json:"hotel_id"`
	Name                 string         `json:"name"`
	Capacity             int            `json:"capacity"`
	IsAvailable          bool           `json:"is_available"`
	BookableIndividually bool           `json:"bookable_individually"`
	// ParentApartmentID is set for rooms that belong to an apartment.
	ParentApartmentID *uint `json:"parent_apartment_id,omitempty"`
	// RoomIDs lists an apartment's rooms in ascending id order.
	RoomIDs []uint `json:"room_ids,omitempty"`
}

// LockRoot is the unit whose bookings and whose contained or containing
// units' bookings can conflict with this one.
func (u Unit) LockRoot() models.UnitRef {
	if u.Ref.Kind == models.UnitRoom && u.ParentApartmentID != nil {
		return models.ApartmentRef(*u.ParentApartmentID)
	}
	return u.Ref
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a Store bound to tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

func (s *Store) GetUnit(ctx context.Context, ref models.UnitRef) (*Unit, error) {
	switch ref.Kind {
	case models.UnitApartment:
		apartment, err := s.GetApartment(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		roomIDs, err := s.roomIDsOfApartment(ctx, apartment.ID)
		if err != nil {
			return nil, err
		}
		return &Unit{
			Ref:                  ref,
			HotelID:              apartment.HotelID,
			Name:                 apartment.Name,
			Capacity:             apartment.Capacity,
			IsAvailable:          apartment.IsAvailable,
			BookableIndividually: true,
			RoomIDs:              roomIDs,
		}, nil
	case models.UnitRoom:
		room, err := s.GetRoom(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return &Unit{
			Ref:                  ref,
			HotelID:              room.HotelID,
			Name:                 room.Name,
			Capacity:             room.Capacity,
			IsAvailable:          room.IsAvailable,
			BookableIndividually: room.BookableIndividually,
			ParentApartmentID:    room.ApartmentID,
		}, nil
	default:
		return nil, apperr.InvalidInput("unknown unit kind %q", ref.Kind)
	}
}

func (s *Store) GetApartment(ctx context.Context, id uint) (*models.Apartment, error) {
	var apartment models.Apartment
	if err := s.db.WithContext(ctx).First(&apartment, id).Error; err != nil {
		return nil, lookupError(err, "apartment %d not found", id)
	}
	return &apartment, nil
}

func (s *Store) GetRoom(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, lookupError(err, "room %d not found", id)
	}
	return &room, nil
}

// RoomsOfApartment returns the apartment's rooms ordered by id.
func (s *Store) RoomsOfApartment(ctx context.Context, apartmentID uint) ([]models.Room, error) {
	if _, err := s.GetApartment(ctx, apartmentID); err != nil {
		return nil, err
	}
	var rooms []models.Room
	if err := s.db.WithContext(ctx).Where("apartment_id = ?", apartmentID).Order("id asc").Find(&rooms).Error; err != nil {
		return nil, apperr.Unavailable(err, "failed to list rooms")
	}
	return rooms, nil
}

func (s *Store) roomIDsOfApartment(ctx context.Context, apartmentID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Room{}).
		Where("apartment_id = ?", apartmentID).
		Order("id asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, apperr.Unavailable(err, "failed to list rooms")
	}
	return ids, nil
}

func (s *Store) GetHotel(ctx context.Context, id uint) (*models.Hotel, error) {
	var hotel models.Hotel
	if err := s.db.WithContext(ctx).First(&hotel, id).Error; err != nil {
		return nil, lookupError(err, "hotel %d not found", id)
	}
	return &hotel, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, lookupError(err, "user %d not found", id)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, lookupError(err, "user %q not found", email)
	}
	return &user, nil
}

func lookupError(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return apperr.Unavailable(err, "failed to read inventory")
}
