package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/quanvu/homestay-reservation/internal/handler"
	"github.com/quanvu/homestay-reservation/internal/middleware"
)

// Deps carries everything route registration needs. Handlers are
// constructed by the caller so the router stays free of wiring logic.
type Deps struct {
	DB        *sql.DB
	Redis     *redis.Client
	JWTSecret string
	RateLimit int
	CacheTTL  time.Duration

	Browse  *handler.BrowseHandler
	Booking *handler.BookingHandler
	Payment *handler.PaymentHandler
}

// Register mounts all routes on the Echo instance.
//
// Public endpoints cover the health check, catalog browsing, and the
// two gateway callback legs (the gateway cannot carry a bearer
// token). Everything that creates or mutates state requires a valid
// access token and sits behind the per-client rate limiter.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))

	cached := middleware.CacheBrowse(d.Redis, d.CacheTTL)
	pub := e.Group("/v1")
	pub.GET("/listings", d.Browse.ListListings, cached)
	pub.GET("/listings/:id", d.Browse.GetListing, cached)
	pub.GET("/listings/:id/sessions", d.Browse.ListSessions, cached)

	// Gateway callbacks are authenticated by their HMAC signature,
	// not by a bearer token.
	pub.GET("/payments/vnpay/return", d.Payment.Return)
	pub.GET("/payments/vnpay/ipn", d.Payment.IPN)

	auth := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
	limited := middleware.RateLimit(d.Redis, d.RateLimit)

	auth.POST("/listings/:id/bookings", d.Booking.CreateDwellingBooking, limited)
	auth.POST("/sessions/:id/bookings", d.Booking.CreateSessionBooking, limited)
	auth.GET("/my-bookings", d.Booking.List)
	auth.GET("/bookings/:id", d.Booking.Get)
	auth.POST("/bookings/:id/confirm", d.Booking.Confirm, limited)
	auth.DELETE("/bookings/:id", d.Booking.Cancel, limited)

	auth.POST("/bookings/:id/checkout", d.Payment.CreateCheckout, limited)
	auth.GET("/bookings/:id/payment", d.Payment.GetByBooking)
}
