package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/gdg-garage/reservation-api/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouteOptions struct {
	RequestTimeout time.Duration
	EnableCORS     bool
	// AllowedOrigins lists the browser origins CORS answers for. An empty
	// list allows none.
	AllowedOrigins []string
}

type Handlers struct {
	Auth      *auth.AuthHandler
	Bookings  *BookingHandler
	Overrides *OverrideHandler
	Inventory *InventoryHandler
}

func RegisterRoutes(r *chi.Mux, opts RouteOptions, h Handlers) huma.API {
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	if opts.EnableCORS {
		r.Use(cors(opts.AllowedOrigins))
	}
	r.Use(h.Auth.AuthMiddleware)

	// Initialize Huma API
	config := huma.DefaultConfig("Reservation API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	api := humachi.New(r, config)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	security := []map[string][]string{{"cookieAuth": {}}, {"bearerAuth": {}}}
	secured := func(o *huma.Operation) {
		o.Security = security
	}

	huma.Get(api, "/me", h.Auth.HandleMe, secured)

	huma.Register(api, huma.Operation{
		OperationID:   "book-apartment",
		Method:        http.MethodPost,
		Path:          "/bookings/apartments",
		Summary:       "Book a whole apartment",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Bookings"},
		Security:      security,
	}, h.Bookings.HandleBookApartment)
	huma.Register(api, huma.Operation{
		OperationID:   "book-room",
		Method:        http.MethodPost,
		Path:          "/bookings/rooms",
		Summary:       "Book a single room",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Bookings"},
		Security:      security,
	}, h.Bookings.HandleBookRoom)
	huma.Post(api, "/availability/check", h.Bookings.HandleProbe, secured)
	huma.Get(api, "/bookings", h.Bookings.HandleListBookings, secured)
	huma.Patch(api, "/bookings/{id}", h.Bookings.HandleUpdateBooking, secured)
	huma.Delete(api, "/bookings/{id}", h.Bookings.HandleCancelBooking, secured)

	huma.Put(api, "/overrides", h.Overrides.HandleSetOverride, secured)
	huma.Put(api, "/overrides/range", h.Overrides.HandleSetOverrideRange, secured)
	huma.Get(api, "/overrides", h.Overrides.HandleQueryOverrides, secured)
	huma.Delete(api, "/overrides", h.Overrides.HandleDeleteOverride, secured)

	huma.Post(api, "/users", h.Inventory.HandleCreateUser, secured)
	huma.Post(api, "/hotels", h.Inventory.HandleCreateHotel, secured)
	huma.Post(api, "/apartments", h.Inventory.HandleCreateApartment, secured)
	huma.Post(api, "/rooms", h.Inventory.HandleCreateRoom, secured)
	huma.Get(api, "/apartments/{id}/rooms", h.Inventory.HandleApartmentRooms, secured)
	huma.Delete(api, "/hotels/{id}", h.Inventory.HandleDeleteHotel, secured)
	huma.Delete(api, "/apartments/{id}", h.Inventory.HandleDeleteApartment, secured)
	huma.Delete(api, "/rooms/{id}", h.Inventory.HandleDeleteRoom, secured)

	return api
}

// cors reflects allowed origins so browser clients on those hosts can send
// the auth cookie. Other origins get no CORS headers.
func cors(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")
			if origin == "" || !allowed[origin] {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
