package router // package router registers the HTTP routes of the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ingressos/internal/config"
	"github.com/iliyamo/ingressos/internal/handler"
	"github.com/iliyamo/ingressos/internal/middleware"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Events     *handler.EventHandler
	Sessions   *handler.SessionHandler
	Sales      *handler.SalesHandler
	Redemption *handler.RedemptionHandler
	SeatHolds  *handler.SeatHoldHandler
	Ready      echo.HandlerFunc
}

// Options configure the middleware around the routes.  Redis may be nil;
// caching and rate limiting are then skipped.
type Options struct {
	JWTSecret string
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
}

// Register mounts health, metrics and the /v1 API on e.
//
// Public reads are cached and rate limited.  Authenticated routes are
// grouped by role: PRODUCER manages events and sessions, CUSTOMER buys,
// GATEWAY confirms payments and STAFF (or the producer) redeems at the door.
func Register(e *echo.Echo, h Handlers, opts Options) {
	e.GET("/healthz", handler.Health)
	if h.Ready != nil {
		e.GET("/readyz", h.Ready)
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// A nil *redis.Client must not reach the middleware as a non-nil
	// interface.
	var cmd redis.Cmdable
	var scripter redis.Scripter
	if opts.Redis != nil {
		cmd, scripter = opts.Redis, opts.Redis
	}
	limit := middleware.NewTokenBucket(opts.RateLimit, 0, scripter)
	redeemLimit := middleware.NewTokenBucket(opts.RateLimit, opts.RateLimit.RedeemCapacity, scripter)
	cache := middleware.NewRedisCache(opts.Cache, cmd)
	auth := middleware.JWTAuth(opts.JWTSecret)

	v1 := e.Group("/v1")

	// public
	v1.GET("/events/:id", h.Events.GetEvent, limit, cache)
	v1.GET("/events/:id/sessions", h.Events.ListSessions, limit, cache)
	v1.GET("/sessions/:id/availability", h.Sessions.Availability, limit, cache)

	registerProducer(v1, h, auth, limit)
	registerCustomer(v1, h, auth, limit)

	gateway := []echo.MiddlewareFunc{auth, middleware.RequireRole(middleware.RoleGateway)}
	v1.POST("/orders/:id/confirm", h.Sales.ConfirmPayment, gateway...)

	door := []echo.MiddlewareFunc{auth, middleware.RequireRole(middleware.RoleStaff, middleware.RoleProducer), redeemLimit}
	v1.POST("/events/:id/redeem", h.Redemption.Redeem, door...)
}

func registerProducer(v1 *echo.Group, h Handlers, auth, limit echo.MiddlewareFunc) {
	m := []echo.MiddlewareFunc{auth, middleware.RequireRole(middleware.RoleProducer), limit}
	v1.POST("/events", h.Events.PublishEvent, m...)
	v1.POST("/events/:id/sessions", h.Sessions.CloneSession, m...)
	v1.DELETE("/sessions/:id", h.Sessions.DeleteSession, m...)
	v1.POST("/ticket-types/:id/inventory", h.Events.AddInventory, m...)
	v1.POST("/courtesies", h.Sales.IssueCourtesy, m...)
}

func registerCustomer(v1 *echo.Group, h Handlers, auth, limit echo.MiddlewareFunc) {
	m := []echo.MiddlewareFunc{auth, middleware.RequireRole(middleware.RoleCustomer), limit}
	v1.POST("/sessions/:id/holds", h.SeatHolds.Hold, m...)
	v1.DELETE("/sessions/:id/holds", h.SeatHolds.Release, m...)
	v1.POST("/orders", h.Sales.CreateOrder, m...)
	v1.GET("/orders/:id", h.Sales.GetOrder, m...)
}
