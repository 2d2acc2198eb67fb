package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/tour-backoffice/internal/handler"    // HTTP handlers
	"github.com/iliyamo/tour-backoffice/internal/middleware" // JWT authentication and role enforcement
	"github.com/iliyamo/tour-backoffice/internal/model"
)

// RegisterRoutes registers routes that do not require authentication:
// liveness and readiness checks.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers the staff authentication routes.  Login and
// refresh live under /v1/auth; /v1/me and /v1/logout need an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
}

// Tours groups the handlers mounted under /v1/tours.
type Tours struct {
	Tour       *handler.TourHandler
	Roster     *handler.RosterHandler
	Allocation *handler.AllocationHandler
}

// RegisterTours registers the back-office tour routes.  Every route needs
// an OPERATOR or ADMIN access token; extra middleware such as the rate
// limiter runs after authentication so limits can key on the staff id.
func RegisterTours(e *echo.Echo, h Tours, jwtSecret string, extra ...echo.MiddlewareFunc) {
	g := e.Group("/v1/tours")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.StaffRoleOperator, model.StaffRoleAdmin))
	g.Use(extra...)

	g.POST("", h.Tour.Create)
	g.DELETE("/:id", h.Tour.Cancel)

	g.GET("/:id/roster", h.Roster.Get)
	g.POST("/:id/roster/assign", h.Roster.Assign)
	g.POST("/:id/roster/unassign", h.Roster.Unassign)
	g.POST("/:id/roster/reassign", h.Roster.Reassign)
	g.DELETE("/:id/roster", h.Roster.Clear)

	g.GET("/:id/allocation", h.Allocation.Get)
	g.PUT("/:id/allocation/pool", h.Allocation.SetPool)
	g.PATCH("/:id/allocation/top", h.Allocation.SetTop)
	g.PUT("/:id/allocation/op-members/:member", h.Allocation.ToggleMember)
	g.PATCH("/:id/allocation/op-members/:member", h.Allocation.SetMember)
}
