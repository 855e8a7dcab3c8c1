// Package router maps the HTTP surface onto handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/laughtrack/comedy-ticketing/internal/config"
	"github.com/laughtrack/comedy-ticketing/internal/handler"
	"github.com/laughtrack/comedy-ticketing/internal/middleware"
	"github.com/laughtrack/comedy-ticketing/internal/model"
)

// Deps collects everything route registration needs.
type Deps struct {
	Cfg       config.Config
	RateCfg   config.RateLimitConfig
	Redis     *redis.Client
	Auth      *handler.AuthHandler
	Shows     *handler.ShowHandler
	Bookings  *handler.BookingHandler
	Webhooks  *handler.WebhookHandler
	FeeConfig *handler.FeeConfigHandler
}

// Register wires every route. Public browsing and the gateway webhook are
// unauthenticated; the webhook authenticates with its HMAC signature
// instead of a JWT. Everything else sits behind JWTAuth, with role checks
// per group.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	// Auth endpoints that establish or exchange sessions.
	auth := e.Group("/v1/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/refresh-access", d.Auth.RefreshAccess)
	auth.POST("/logout", d.Auth.Logout)

	// Public marketplace browsing.
	e.GET("/v1/shows", d.Shows.ListPublished)
	e.GET("/v1/shows/:id", d.Shows.Get)

	// Payment gateway callback; authenticated by signature, never by JWT.
	e.POST("/v1/webhooks/payment", d.Webhooks.HandlePayment)

	jwtAuth := middleware.JWTAuth(d.Cfg.JWTSecret)

	// Any authenticated user.
	user := e.Group("/v1", jwtAuth)
	user.GET("/me", d.Auth.Me)
	user.GET("/my-bookings", d.Bookings.ListMine)
	user.GET("/bookings/:id", d.Bookings.Get)

	// Booking creation is the hot path during on-sales; it gets the token
	// bucket on top of authentication.
	user.POST("/bookings", d.Bookings.Create,
		middleware.NewTokenBucket(d.RateCfg, d.Redis))

	// Organizer show management (admins may act on any show).
	org := e.Group("/v1/organizer", jwtAuth,
		middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin))
	org.POST("/shows", d.Shows.Create)
	org.GET("/shows", d.Shows.ListMine)
	org.PUT("/shows/:id", d.Shows.Update)
	org.POST("/shows/:id/publish", d.Shows.Publish)
	org.POST("/shows/:id/unpublish", d.Shows.Unpublish)
	org.GET("/shows/:id/bookings", d.Shows.Bookings)

	// Platform administration.
	admin := e.Group("/v1/admin", jwtAuth, middleware.RequireRole(model.RoleAdmin))
	admin.GET("/fees", d.FeeConfig.Get)
	admin.PUT("/fees", d.FeeConfig.Update)
	admin.POST("/bookings/:id/confirm-unpaid", d.Bookings.ConfirmUnpaid)
	admin.POST("/shows/:id/disburse", d.Shows.Disburse)
}
