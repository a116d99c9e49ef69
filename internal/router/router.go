// Package router registers the MapIt HTTP routes on an Echo instance.
package router

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/mapit/internal/handler"
	"github.com/iliyamo/mapit/internal/middleware"
	"github.com/iliyamo/mapit/internal/utils"
)

// Options carries the middleware that depends on configuration. Nil
// RateLimit and Cache disable those layers.
type Options struct {
	JWTSecret   string
	CORSOrigins []string
	RateLimit   *middleware.RateLimiter
	Cache       *middleware.ResponseCache
	Log         *slog.Logger
}

// New returns an Echo instance with the global middleware installed and
// every route registered.
func New(h *handler.Handler, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = h.HTTPError

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(opts.Log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins(opts.CORSOrigins),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	RegisterRoutes(e, h)
	RegisterAuth(e, h, opts.RateLimit)
	RegisterAPI(e, h, opts.Cache)
	RegisterAdmin(e, h, opts.JWTSecret)
	return e
}

func origins(list []string) []string {
	if len(list) == 0 {
		return []string{"*"}
	}
	return list
}

// RegisterRoutes registers unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, h *handler.Handler) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers the credential endpoints behind the rate limiter.
func RegisterAuth(e *echo.Echo, h *handler.Handler, rl *middleware.RateLimiter) {
	limit := rl.Middleware()
	e.POST("/api/register", h.Register, limit)
	e.POST("/api/login", h.Login, limit)
	e.POST("/api/admin/login", h.AdminLogin, limit)
}

// RegisterAPI registers the customer-facing map, zone and order routes.
// The package catalog is served through the response cache.
func RegisterAPI(e *echo.Echo, h *handler.Handler, cache *middleware.ResponseCache) {
	api := e.Group("/api")

	api.POST("/map", h.CreateMap)
	api.GET("/map/code/:code", h.GetMapByCode)
	api.GET("/map/:map_id", h.GetMap)
	api.PUT("/map/:map_id", h.UpdateMap)
	api.DELETE("/map/:map_id", h.DeleteMap)

	api.GET("/customer/:customer_id", h.GetCustomer)
	api.GET("/customer/:customer_id/maps", h.CustomerMaps)
	api.GET("/customer/:customer_id/zones", h.CustomerZones)
	api.GET("/customer/:customer_id/orders", h.CustomerOrders)
	api.GET("/customer/:customer_id/package", h.CustomerPackage)

	api.GET("/zones", h.ListZones)
	api.POST("/zones", h.CreateZone)
	api.POST("/zones/bulk", h.BulkSaveZones)
	api.GET("/zones/:id", h.GetZone)
	api.PUT("/zones/:id", h.UpdateZone)
	api.DELETE("/zones/:id", h.DeleteZone)

	api.GET("/packages", h.ListPackages, cache.Middleware())
	api.POST("/orders", h.CreateOrder)
}

// RegisterAdmin registers the dashboard views. Every route requires a
// token with the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.Handler, jwtSecret string) {
	g := e.Group("/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAdmin),
	)
	g.GET("/maps", h.AdminMaps)
	g.GET("/orders", h.AdminOrders)
	g.GET("/stats", h.AdminStats)
	g.GET("/customers", h.AdminCustomers)
	g.GET("/packages", h.AdminPackages)
}
