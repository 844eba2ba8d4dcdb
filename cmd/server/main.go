package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdg-garage/reservation-api/internal/auth"
	"github.com/gdg-garage/reservation-api/internal/availability"
	"github.com/gdg-garage/reservation-api/internal/booking"
	"github.com/gdg-garage/reservation-api/internal/config"
	"github.com/gdg-garage/reservation-api/internal/conflict"
	"github.com/gdg-garage/reservation-api/internal/database"
	"github.com/gdg-garage/reservation-api/internal/handlers"
	"github.com/gdg-garage/reservation-api/internal/inventory"
	"github.com/gdg-garage/reservation-api/internal/logging"
	"github.com/gdg-garage/reservation-api/internal/notifier"
	"github.com/gdg-garage/reservation-api/internal/reservation"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	issueToken := flag.String("issue-token", "", "print a token for the user with this email and exit")
	flag.Parse()

	// Load Configuration
	cfg := config.LoadConfig()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close(db)

	units := inventory.NewStore(db)
	overrides := availability.NewStore(db)
	detector := conflict.NewDetector(db, units, overrides)

	ctx := context.Background()
	if cfg.AdminEmail != "" {
		admin, err := units.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail)
		if err != nil {
			log.WithError(err).Fatal("Failed to bootstrap admin user")
		}
		log.WithField("user_id", admin.ID).Info("Admin user ready")
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	authHandler := auth.NewAuthHandler(cfg.JWTSecret, units)

	if *issueToken != "" {
		user, err := units.GetUserByEmail(ctx, *issueToken)
		if err != nil {
			log.WithError(err).Fatal("Cannot issue token")
		}
		token, err := authHandler.GenerateToken(*user)
		if err != nil {
			log.WithError(err).Fatal("Cannot issue token")
		}
		fmt.Println(token)
		return
	}

	locker, closeLocker := newLocker(cfg, log)
	defer closeLocker()

	ledger := booking.NewLedger(db, units, detector, booking.Options{
		Locker:          locker,
		Location:        cfg.Location(),
		DefaultCurrency: cfg.DefaultCurrency,
		Logger:          log,
	})

	n, closeNotifiers := newNotifier(cfg, log)
	defer closeNotifiers()

	workflow := reservation.New(units, overrides, detector, ledger, n, log)

	// Initialize Router
	r := chi.NewRouter()
	handlers.RegisterRoutes(r, handlers.RouteOptions{
		RequestTimeout: cfg.RequestTimeout,
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.CORSOrigins,
	}, handlers.Handlers{
		Auth:      authHandler,
		Bookings:  handlers.NewBookingHandler(workflow, authHandler, log),
		Overrides: handlers.NewOverrideHandler(workflow, authHandler, log),
		Inventory: handlers.NewInventoryHandler(units, authHandler, log),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("port", cfg.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-stop
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

func newLocker(cfg *config.Config, log logrus.FieldLogger) (booking.Locker, func()) {
	switch cfg.LockBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Fatal("Redis lock backend unreachable")
		}
		log.WithField("addr", cfg.RedisAddr).Info("Using redis unit locks")
		return booking.NewRedisLocker(client, cfg.LockTTL, log), func() { client.Close() }
	case "memory", "":
		return booking.NewMemoryLocker(), func() {}
	default:
		log.Fatalf("Unknown LOCK_BACKEND %q", cfg.LockBackend)
		return nil, nil
	}
}

// newNotifier builds the configured sinks. A sink that fails to start is
// logged and skipped; bookings never depend on it.
func newNotifier(cfg *config.Config, log logrus.FieldLogger) (notifier.Notifier, func()) {
	var sinks notifier.Multi
	var closers []func()

	if cfg.DiscordBotToken != "" && cfg.DiscordNotificationsChannelID != "" {
		session, err := notifier.NewDiscordSession(cfg.DiscordBotToken)
		if err != nil {
			log.WithError(err).Warn("Discord notifier not initialized")
		} else {
			sinks = append(sinks, notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID))
		}
	}

	if cfg.AMQPURL != "" {
		publisher, err := notifier.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.WithError(err).Warn("AMQP notifier not initialized")
		} else {
			sinks = append(sinks, publisher)
			closers = append(closers, func() { publisher.Close() })
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(sinks) == 0 {
		return notifier.Noop{}, closeAll
	}
	return sinks, closeAll
}
