package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/receipt-booklet-ledger/internal/handler"
	"github.com/iliyamo/receipt-booklet-ledger/internal/middleware"
	"github.com/iliyamo/receipt-booklet-ledger/internal/utils"
)

// Deps carries what the donation and admin routes need.
type Deps struct {
	Donations *handler.DonationHandler
	Admin     *handler.AdminHandler
	JWTSecret string
	Cache     *middleware.ResponseCache // nil disables caching
	WriteRate echo.MiddlewareFunc      // nil disables rate limiting
	Gatherer  prometheus.Gatherer      // nil uses the default registry
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, g prometheus.Gatherer) {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

// RegisterDonations registers /v1/layout and the /v1/donations endpoints.
// Listing and grouping reads are cached; the total and single lookups are
// not.  Every write purges the cache and is rate limited.
func RegisterDonations(e *echo.Echo, d Deps) {
	h := d.Donations
	cached := d.Cache.Middleware()
	write := []echo.MiddlewareFunc{d.Cache.PurgeOnWrite()}
	if d.WriteRate != nil {
		write = append([]echo.MiddlewareFunc{d.WriteRate}, write...)
	}

	e.GET("/v1/layout", h.GetLayout)

	g := e.Group("/v1/donations")
	g.GET("", h.List, cached)
	g.GET("/available-serials", h.AvailableSerials, cached)
	g.GET("/total", h.Total)
	g.GET("/booklets", h.Booklets, cached)
	g.GET("/booklets/:number", h.Booklet, cached)
	g.GET("/blocks", h.Blocks, cached)
	g.GET("/blocks/:block", h.Block, cached)
	g.GET("/:serial", h.Get)

	g.POST("", h.Create, write...)
	g.DELETE("/:serial", h.DeleteBySerial, write...)

	// bulk delete needs an admin token
	admin := append([]echo.MiddlewareFunc{middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(utils.RoleAdmin)}, write...)
	g.DELETE("", h.DeleteAll, admin...)
}

// RegisterAdmin registers the admin login endpoint.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, writeRate echo.MiddlewareFunc) {
	if writeRate != nil {
		e.POST("/v1/admin/login", a.Login, writeRate)
		return
	}
	e.POST("/v1/admin/login", a.Login)
}

// Register wires every route.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d.Gatherer)
	RegisterDonations(e, d)
	RegisterAdmin(e, d.Admin, d.WriteRate)
}
