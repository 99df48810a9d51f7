package main // Entry point package

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/quanvu/homestay-reservation/internal/booking"
	"github.com/quanvu/homestay-reservation/internal/client"
	"github.com/quanvu/homestay-reservation/internal/config"
	"github.com/quanvu/homestay-reservation/internal/database"
	"github.com/quanvu/homestay-reservation/internal/handler"
	"github.com/quanvu/homestay-reservation/internal/payment"
	"github.com/quanvu/homestay-reservation/internal/queue"
	"github.com/quanvu/homestay-reservation/internal/repository"
	"github.com/quanvu/homestay-reservation/internal/router"
	queue_publisher "github.com/quanvu/homestay-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	log := logrus.WithField("component", "main")

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable; limiter fails open

	resources := repository.NewResourceRepo(db)
	sessions := repository.NewSessionRepo(db)
	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)

	var profiles booking.ProfileDirectory
	if cfg.ProfileServiceURL != "" {
		profiles = client.NewProfileClient(cfg.ProfileServiceURL)
	} else {
		profiles = client.NewLocalDirectory(repository.NewUserRepo(db))
	}

	bookingSvc := booking.NewService(db, resources, sessions, bookings,
		queue_publisher.PublishNotification, profiles)
	paymentSvc := payment.NewService(db, payments, bookings, payment.GatewayConfig{
		TmnCode:     cfg.VNPTmnCode,
		HashSecret:  cfg.VNPHashSecret,
		PayURL:      cfg.VNPPayURL,
		ReturnURL:   cfg.VNPReturnURL,
		SuccessPage: cfg.VNPSuccessPage,
		FailurePage: cfg.VNPFailurePage,
	}, queue_publisher.PublishNotification)

	// Background workers. The consumer reconnects on its own; the
	// sweeper cancels unpaid PENDING bookings past their age limit so
	// abandoned checkouts release their dates and seats.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.WithError(err).Error("notification consumer stopped")
		}
	}()
	go func() {
		interval := time.Duration(cfg.SweepIntervalMin) * time.Minute
		maxAge := time.Duration(cfg.PendingMaxAgeMin) * time.Minute
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			bookingSvc.SweepStalePending(ctx, maxAge)
			cancel()
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.Register(e, router.Deps{
		DB:        db,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimitPerMin,
		CacheTTL:  time.Duration(cfg.BrowseCacheSec) * time.Second,
		Browse:    handler.NewBrowseHandler(resources, sessions),
		Booking:   handler.NewBookingHandler(bookingSvc),
		Payment:   handler.NewPaymentHandler(paymentSvc),
	})

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
