package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/gdg-garage/reservation-api/internal/auth"
	"github.com/gdg-garage/reservation-api/internal/availability"
	"github.com/gdg-garage/reservation-api/internal/booking"
	"github.com/gdg-garage/reservation-api/internal/conflict"
	"github.com/gdg-garage/reservation-api/internal/database/dbtest"
	"github.com/gdg-garage/reservation-api/internal/inventory"
	"github.com/gdg-garage/reservation-api/internal/logging"
	"github.com/gdg-garage/reservation-api/internal/models"
	"github.com/gdg-garage/reservation-api/internal/reservation"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	api        humatest.TestAPI
	units      *inventory.Store
	userAuth   string
	adminAuth  string
	user       models.User
	admin      models.User
	hotel      models.Hotel
	apartment  models.Apartment
	room       models.Room
	standalone models.Room
}

func newServer(t *testing.T) *server {
	t.Helper()
	ctx := context.Background()
	log := logging.Discard()

	db := dbtest.New(t)
	units := inventory.NewStore(db)
	overrides := availability.NewStore(db)
	detector := conflict.NewDetector(db, units, overrides)
	ledger := booking.NewLedger(db, units, detector, booking.Options{
		Clock:  func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) },
		Logger: log,
	})
	workflow := reservation.New(units, overrides, detector, ledger, nil, log)
	authHandler := auth.NewAuthHandler("test-secret", units)

	r := chi.NewMux()
	api := RegisterRoutes(r, RouteOptions{
		RequestTimeout: 5 * time.Second,
		EnableCORS:     true,
		AllowedOrigins: []string{"https://app.example.com"},
	}, Handlers{
		Auth:      authHandler,
		Bookings:  NewBookingHandler(workflow, authHandler, log),
		Overrides: NewOverrideHandler(workflow, authHandler, log),
		Inventory: NewInventoryHandler(units, authHandler, log),
	})

	s := &server{api: humatest.Wrap(t, api), units: units}

	s.user = models.User{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, units.CreateUser(ctx, &s.user))
	s.admin = models.User{Name: "Root", Email: "root@example.com", Role: models.RoleAdmin}
	require.NoError(t, units.CreateUser(ctx, &s.admin))

	token, err := authHandler.GenerateToken(s.user)
	require.NoError(t, err)
	s.userAuth = "Authorization: Bearer " + token
	token, err = authHandler.GenerateToken(s.admin)
	require.NoError(t, err)
	s.adminAuth = "Authorization: Bearer " + token

	s.hotel = models.Hotel{Name: "Seaside"}
	require.NoError(t, units.CreateHotel(ctx, &s.hotel))
	s.apartment = models.Apartment{HotelID: s.hotel.ID, Name: "A101", Capacity: 4, IsAvailable: true}
	require.NoError(t, units.CreateApartment(ctx, &s.apartment))
	s.room = models.Room{HotelID: s.hotel.ID, ApartmentID: &s.apartment.ID, Name: "R1", Capacity: 2, IsAvailable: true, BookableIndividually: true}
	require.NoError(t, units.CreateRoom(ctx, &s.room))
	s.standalone = models.Room{HotelID: s.hotel.ID, Name: "R9", Capacity: 2, IsAvailable: true, BookableIndividually: true}
	require.NoError(t, units.CreateRoom(ctx, &s.standalone))
	return s
}

func (s *server) bookingBody(in, out string) map[string]any {
	return map[string]any{
		"user_id":          s.user.ID,
		"hotel_id":         s.hotel.ID,
		"check_in_date":    in,
		"check_out_date":   out,
		"number_of_guests": 2,
		"payment_amount":   200,
		"payment_method":   "card",
	}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

type problem struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	resp := s.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "OK", resp.Body.String())
}

func TestBookingFlow(t *testing.T) {
	s := newServer(t)

	body := s.bookingBody("2025-06-01", "2025-06-05")
	body["apartment_id"] = s.apartment.ID
	resp := s.api.Post("/bookings/apartments", s.userAuth, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	created := decode[map[string]any](t, resp.Body.Bytes())
	assert.Equal(t, "APARTMENT", created["booking_type"])
	assert.Equal(t, "PENDING", created["status"])
	assert.Equal(t, "USD", created["payment_currency"])
	assert.Equal(t, float64(s.apartment.ID), created["apartment_id"])
	assert.NotContains(t, created, "room_id")
	assert.Equal(t, "2025-06-01", created["check_in_date"])
	assert.Equal(t, "2025-06-05", created["check_out_date"])
	id := uint(created["id"].(float64))

	body = s.bookingBody("2025-06-02", "2025-06-03")
	body["room_id"] = s.room.ID
	resp = s.api.Post("/bookings/rooms", s.userAuth, body)
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, decode[problem](t, resp.Body.Bytes()).Detail, "apartment already booked")

	resp = s.api.Post("/availability/check", s.userAuth, map[string]any{
		"booking_type":   "ROOM",
		"room_id":        s.room.ID,
		"check_in_date":  "2025-06-05",
		"check_out_date": "2025-06-07",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, true, decode[map[string]any](t, resp.Body.Bytes())["available"])

	resp = s.api.Get("/bookings", s.userAuth)
	require.Equal(t, http.StatusOK, resp.Code)
	list := decode[struct {
		Bookings []map[string]any `json:"bookings"`
		Total    int64            `json:"total"`
	}](t, resp.Body.Bytes())
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Bookings, 1)
	assert.Equal(t, float64(s.apartment.ID), list.Bookings[0]["apartment_id"])
	assert.NotContains(t, list.Bookings[0], "room_id")
	assert.Equal(t, "2025-06-01", list.Bookings[0]["check_in_date"])

	resp = s.api.Patch("/bookings/"+itoa(id), s.userAuth, map[string]any{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = s.api.Patch("/bookings/"+itoa(id), s.adminAuth, map[string]any{"status": "CONFIRMED", "payment_status": "COMPLETED"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[map[string]any](t, resp.Body.Bytes())
	assert.Equal(t, "CONFIRMED", updated["status"])
	assert.NotNil(t, updated["payment_completed_at"])

	resp = s.api.Delete("/bookings/"+itoa(id), s.userAuth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "CANCELLED", decode[map[string]any](t, resp.Body.Bytes())["status"])

	resp = s.api.Delete("/bookings/"+itoa(id), s.userAuth)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, decode[problem](t, resp.Body.Bytes()).Detail, "already cancelled")

	resp = s.api.Delete("/bookings/9999", s.userAuth)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestBookingRequiresAuth(t *testing.T) {
	s := newServer(t)
	body := s.bookingBody("2025-06-01", "2025-06-02")
	body["room_id"] = s.standalone.ID

	resp := s.api.Post("/bookings/rooms", body)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = s.api.Post("/bookings/rooms", "Authorization: Bearer garbage", body)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestBookingInputErrors(t *testing.T) {
	s := newServer(t)

	body := s.bookingBody("2025-04-30", "2025-05-02")
	body["room_id"] = s.standalone.ID
	resp := s.api.Post("/bookings/rooms", s.userAuth, body)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	body = s.bookingBody("2025-06-01", "2025-06-02")
	body["room_id"] = 9999
	resp = s.api.Post("/bookings/rooms", s.userAuth, body)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	body = s.bookingBody("2025-06-01", "2025-06-02")
	body["room_id"] = s.standalone.ID
	body["user_id"] = s.admin.ID
	resp = s.api.Post("/bookings/rooms", s.userAuth, body)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// Schema-level required fields are enforced before the handler runs.
	resp = s.api.Post("/bookings/rooms", s.userAuth, map[string]any{"room_id": s.standalone.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestOverrideEndpoints(t *testing.T) {
	s := newServer(t)

	override := map[string]any{"unit_kind": "ROOM", "unit_id": s.standalone.ID, "date": "2025-08-10", "is_available": false}
	resp := s.api.Put("/overrides", s.userAuth, override)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = s.api.Put("/overrides", s.adminAuth, override)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = s.api.Post("/availability/check", s.userAuth, map[string]any{
		"booking_type":   "ROOM",
		"room_id":        s.standalone.ID,
		"check_in_date":  "2025-08-09",
		"check_out_date": "2025-08-11",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	verdict := decode[reservation.ProbeResult](t, resp.Body.Bytes())
	assert.False(t, verdict.Available)
	assert.Contains(t, verdict.Reason, "manually blocked")

	resp = s.api.Put("/overrides/range", s.adminAuth, map[string]any{
		"unit_kind": "ROOM", "unit_id": s.standalone.ID, "start_date": "2025-08-11", "end_date": "2025-08-13", "is_available": false,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 3, decode[reservation.RangeResult](t, resp.Body.Bytes()).Written)

	resp = s.api.Get("/overrides?unit_kind=ROOM&unit_id="+itoa(s.standalone.ID)+"&start_date=2025-08-01&end_date=2025-08-31", s.adminAuth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]models.AvailabilityOverride](t, resp.Body.Bytes()), 4)

	resp = s.api.Delete("/overrides?unit_kind=ROOM&unit_id="+itoa(s.standalone.ID)+"&date=2025-08-10", s.adminAuth)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = s.api.Delete("/overrides?unit_kind=ROOM&unit_id="+itoa(s.standalone.ID)+"&date=2025-08-10", s.adminAuth)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestInventoryEndpoints(t *testing.T) {
	s := newServer(t)

	resp := s.api.Post("/hotels", s.userAuth, map[string]any{"name": "Mountain"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = s.api.Post("/hotels", s.adminAuth, map[string]any{"name": "Mountain", "city": "Zermatt"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	hotel := decode[models.Hotel](t, resp.Body.Bytes())

	resp = s.api.Post("/apartments", s.adminAuth, map[string]any{"hotel_id": hotel.ID, "name": "B1", "capacity": 3})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	apartment := decode[models.Apartment](t, resp.Body.Bytes())
	assert.True(t, apartment.IsAvailable)

	resp = s.api.Post("/rooms", s.adminAuth, map[string]any{"hotel_id": hotel.ID, "apartment_id": apartment.ID, "name": "B1-1", "capacity": 1})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	room := decode[models.Room](t, resp.Body.Bytes())
	assert.False(t, room.BookableIndividually)

	resp = s.api.Post("/rooms", s.adminAuth, map[string]any{"hotel_id": s.hotel.ID, "apartment_id": apartment.ID, "name": "X", "capacity": 1})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.api.Get("/apartments/"+itoa(apartment.ID)+"/rooms", s.userAuth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]models.Room](t, resp.Body.Bytes()), 1)

	resp = s.api.Post("/users", s.adminAuth, map[string]any{"name": "Bob", "email": "ada@example.com"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = s.api.Delete("/hotels/"+itoa(hotel.ID), s.adminAuth)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	_, err := s.units.GetRoom(context.Background(), room.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	resp = s.api.Delete("/rooms/"+itoa(room.ID), s.adminAuth)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestMe(t *testing.T) {
	s := newServer(t)
	resp := s.api.Get("/me", s.adminAuth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ADMIN", decode[map[string]any](t, resp.Body.Bytes())["role"])
}

func TestListShowsRoomTarget(t *testing.T) {
	s := newServer(t)

	body := s.bookingBody("2025-06-01", "2025-06-03")
	body["room_id"] = s.standalone.ID
	resp := s.api.Post("/bookings/rooms", s.userAuth, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = s.api.Get("/bookings?booking_type=ROOM", s.userAuth)
	require.Equal(t, http.StatusOK, resp.Code)
	list := decode[struct {
		Bookings []map[string]any `json:"bookings"`
	}](t, resp.Body.Bytes())
	require.Len(t, list.Bookings, 1)
	row := list.Bookings[0]
	assert.Equal(t, "ROOM", row["booking_type"])
	assert.Equal(t, float64(s.standalone.ID), row["room_id"])
	assert.NotContains(t, row, "apartment_id")
	assert.Equal(t, "2025-06-03", row["check_out_date"])
}

func TestCORSOnlyAnswersAllowedOrigins(t *testing.T) {
	s := newServer(t)

	resp := s.api.Get("/health", "Origin: https://app.example.com")
	assert.Equal(t, "https://app.example.com", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header().Get("Access-Control-Allow-Credentials"))

	resp = s.api.Get("/health", "Origin: https://evil.example.net")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header().Get("Access-Control-Allow-Credentials"))

	resp = s.api.Do(http.MethodOptions, "/bookings", "Origin: https://app.example.com")
	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
