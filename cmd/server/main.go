package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"parkspot/internal/api"
	"parkspot/internal/auth"
	"parkspot/internal/metrics"
	"parkspot/internal/repository"
	"parkspot/internal/service"
)

func main() {
	godotenv.Load()

	logger := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open DB")
	}
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to DB")
	}

	bookingRepo := repository.NewBookingRepository(db)
	areaRepo := repository.NewAreaRepository(db)
	userRepo := repository.NewUserRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	jobRepo := repository.NewJobRepository(db)

	m := metrics.New(prometheus.DefaultRegisterer)

	senderService := service.NewSenderService(userRepo, logger)
	bookingService := service.NewBookingService(bookingRepo, senderService, m, logger)
	historyService := service.NewHistoryService(historyRepo)
	authService := service.NewAuthService(userRepo)
	stripeService := service.NewStripeService()
	paymentService := service.NewPaymentService(stripeService, bookingRepo, userRepo, logger)
	jobService := service.NewJobService(jobRepo, pendingTTL(), logger)

	bookingHandler := api.NewBookingHandler(bookingService)
	historyHandler := api.NewHistoryHandler(historyService, areaRepo)
	authHandler := api.NewAuthHandler(authService)
	paymentHandler := api.NewPaymentHandler(paymentService)
	stripeHandler := api.NewStripeWebhookHandler(os.Getenv("STRIPE_WEBHOOK_SECRET"), bookingService, paymentService, logger)

	c := cron.New()
	if _, err := c.AddFunc("@every 5m", func() {
		if err := jobService.PurgeStalePendingBookings(context.Background()); err != nil {
			logger.Error().Err(err).Msg("stale pending purge failed")
		}
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule purge job")
	}
	c.Start()
	defer c.Stop()

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/v1/areas", historyHandler.ListAreas).Methods("GET")
	r.HandleFunc("/api/payments/webhook", stripeHandler.HandleWebhook).Methods("POST")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Authenticated endpoints
	app := r.PathPrefix("/api").Subrouter()
	app.Use(auth.UserAuthMiddleware)
	app.HandleFunc("/availability", bookingHandler.CheckAvailability).Methods("POST")
	app.HandleFunc("/bookings", bookingHandler.CreateBooking).Methods("POST")
	app.HandleFunc("/bookings/latest", historyHandler.LatestBooking).Methods("GET")
	app.HandleFunc("/bookings/{id:[0-9]+}", bookingHandler.GetBooking).Methods("GET")
	app.HandleFunc("/bookings/{id:[0-9]+}", bookingHandler.CancelBooking).Methods("DELETE")
	app.HandleFunc("/bookings/{id:[0-9]+}/entry", bookingHandler.RegisterEntry).Methods("POST")
	app.HandleFunc("/bookings/{id:[0-9]+}/exit", bookingHandler.RegisterExit).Methods("POST")
	app.HandleFunc("/history", historyHandler.BookingHistory).Methods("GET")
	app.HandleFunc("/payments/checkout", paymentHandler.StartCheckout).Methods("POST")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info().Str("port", port).Msg("server running")
	if err := http.ListenAndServe(":"+port, handlers.CombinedLoggingHandler(os.Stdout, cors(r))); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func pendingTTL() time.Duration {
	minutes := 30
	if raw := os.Getenv("PENDING_TTL_MINUTES"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			minutes = parsed
		}
	}
	return time.Duration(minutes) * time.Minute
}
