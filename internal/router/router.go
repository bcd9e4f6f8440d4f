package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/railgate/ticketing/internal/config"
	"github.com/railgate/ticketing/internal/handler"
	"github.com/railgate/ticketing/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance. Currently it exposes only a health
// check, used by load balancers to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterRider registers the rider-facing endpoints: account
// creation, wallet adjustment, ticket issuance and ticket listing.
// These are called by the UI and voice layers on the rider's behalf;
// they carry no session because the uid itself is the client-held
// identifier.
func RegisterRider(e *echo.Echo, u *handler.UserHandler, w *handler.WalletHandler, t *handler.TicketHandler) {
	e.POST("/users", u.CreateUser)
	e.GET("/users/:uid/tickets", u.ListTickets)
	e.POST("/wallet/adjust", w.Adjust)
	e.POST("/tickets", t.Issue)
}

// RegisterGate registers the validation endpoint under its own group.
// GateAuth runs before the handler so an unauthenticated caller is
// rejected before any ticket lookup, and the Redis token bucket sits
// in front to absorb retry storms from mis-reading scanners. Pass a
// nil redis client to run without rate limiting.
func RegisterGate(e *echo.Echo, g *handler.GateHandler, cfg config.Config, rl config.RateLimitConfig, rdb *redis.Client) {
	grp := e.Group("/gate")
	grp.Use(middleware.NewTokenBucket(rl, rdb))
	grp.Use(middleware.GateAuth(cfg.GateAPIKey, cfg.GateAPIKeyHash))
	grp.POST("/validate", g.Validate)
}
