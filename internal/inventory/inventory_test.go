package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/gdg-garage/reservation-api/internal/database/dbtest"
	"github.com/gdg-garage/reservation-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *Store
	hotel     models.Hotel
	apartment models.Apartment
	rooms     []models.Room
	loose     models.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: NewStore(dbtest.New(t))}

	f.hotel = models.Hotel{Name: "Seaside"}
	require.NoError(t, f.store.CreateHotel(ctx, &f.hotel))

	f.apartment = models.Apartment{HotelID: f.hotel.ID, Name: "A101", Capacity: 4, IsAvailable: true}
	require.NoError(t, f.store.CreateApartment(ctx, &f.apartment))

	for _, name := range []string{"R1", "R2"} {
		room := models.Room{HotelID: f.hotel.ID, ApartmentID: &f.apartment.ID, Name: name, Capacity: 2, IsAvailable: true, BookableIndividually: true}
		require.NoError(t, f.store.CreateRoom(ctx, &room))
		f.rooms = append(f.rooms, room)
	}

	f.loose = models.Room{HotelID: f.hotel.ID, Name: "R9", Capacity: 2, IsAvailable: true, BookableIndividually: true}
	require.NoError(t, f.store.CreateRoom(ctx, &f.loose))
	return f
}

func TestGetUnitApartment(t *testing.T) {
	f := newFixture(t)

	unit, err := f.store.GetUnit(context.Background(), f.apartment.Ref())
	require.NoError(t, err)

	assert.Equal(t, f.hotel.ID, unit.HotelID)
	assert.Equal(t, 4, unit.Capacity)
	assert.Equal(t, []uint{f.rooms[0].ID, f.rooms[1].ID}, unit.RoomIDs)
	assert.Equal(t, f.apartment.Ref(), unit.LockRoot())
}

func TestGetUnitRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unit, err := f.store.GetUnit(ctx, f.rooms[0].Ref())
	require.NoError(t, err)
	require.NotNil(t, unit.ParentApartmentID)
	assert.Equal(t, f.apartment.ID, *unit.ParentApartmentID)
	assert.Equal(t, f.apartment.Ref(), unit.LockRoot())

	standalone, err := f.store.GetUnit(ctx, f.loose.Ref())
	require.NoError(t, err)
	assert.Nil(t, standalone.ParentApartmentID)
	assert.Equal(t, f.loose.Ref(), standalone.LockRoot())
}

func TestGetUnitNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.GetUnit(context.Background(), models.RoomRef(999))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.store.GetUnit(context.Background(), models.UnitRef{Kind: "HOUSE", ID: 1})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestRoomsOfApartment(t *testing.T) {
	f := newFixture(t)

	rooms, err := f.store.RoomsOfApartment(context.Background(), f.apartment.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "R1", rooms[0].Name)
	assert.Equal(t, "R2", rooms[1].Name)

	_, err = f.store.RoomsOfApartment(context.Background(), 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateRoomRejectsHotelMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := models.Hotel{Name: "Mountain"}
	require.NoError(t, f.store.CreateHotel(ctx, &other))

	room := models.Room{HotelID: other.ID, ApartmentID: &f.apartment.ID, Capacity: 1}
	err := f.store.CreateRoom(ctx, &room)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestCreateRejectsZeroCapacity(t *testing.T) {
	f := newFixture(t)
	err := f.store.CreateApartment(context.Background(), &models.Apartment{HotelID: f.hotel.ID})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestDeleteHotelCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	db := f.store.db

	user := models.User{Name: "guest", Email: "guest@example.com"}
	require.NoError(t, f.store.CreateUser(ctx, &user))

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.Booking{
		Reference: "b1", UserID: user.ID, HotelID: f.hotel.ID, BookingType: models.UnitRoom, UnitID: f.rooms[0].ID,
		CheckIn: day, CheckOut: day.AddDate(0, 0, 2), NumberOfGuests: 1, Status: models.BookingConfirmed,
	}).Error)
	require.NoError(t, db.Create(&models.AvailabilityOverride{UnitKind: models.UnitApartment, UnitID: f.apartment.ID, Date: day}).Error)

	require.NoError(t, f.store.DeleteHotel(ctx, f.hotel.ID))

	var count int64
	db.Model(&models.Booking{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.AvailabilityOverride{}).Count(&count)
	assert.Zero(t, count)
	db.Unscoped().Model(&models.Room{}).Count(&count)
	assert.Zero(t, count)
	db.Unscoped().Model(&models.Apartment{}).Count(&count)
	assert.Zero(t, count)

	_, err := f.store.GetHotel(ctx, f.hotel.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteApartmentRemovesItsRoomsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.DeleteApartment(ctx, f.apartment.ID))

	_, err := f.store.GetRoom(ctx, f.rooms[0].ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.store.GetRoom(ctx, f.loose.ID)
	assert.NoError(t, err)
}

func TestDeleteRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.DeleteRoom(ctx, f.rooms[1].ID))

	unit, err := f.store.GetUnit(ctx, f.apartment.Ref())
	require.NoError(t, err)
	assert.Equal(t, []uint{f.rooms[0].ID}, unit.RoomIDs)

	assert.ErrorIs(t, f.store.DeleteRoom(ctx, f.rooms[1].ID), apperr.ErrNotFound)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.CreateUser(ctx, &models.User{Name: "a", Email: "dup@example.com"}))
	err := f.store.CreateUser(ctx, &models.User{Name: "b", Email: "dup@example.com"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	err = f.store.CreateUser(ctx, &models.User{Name: "c", Email: "c@example.com", Role: "ROOT"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.store.EnsureAdmin(ctx, "Root", "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, created.Role)

	again, err := f.store.EnsureAdmin(ctx, "Other", "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	require.NoError(t, f.store.CreateUser(ctx, &models.User{Name: "Bob", Email: "bob@example.com"}))
	promoted, err := f.store.EnsureAdmin(ctx, "Bob", "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	stored, err := f.store.GetUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, stored.Role)

	_, err = f.store.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
