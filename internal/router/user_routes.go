package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-seating/internal/handler"
	"github.com/iliyamo/venue-seating/internal/middleware"
)

// RegisterUser registers the authenticated booking endpoints under /v1.
// limit, when non-nil, throttles hold acquisition.
func RegisterUser(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.GET("/me", h.Me)

	var throttled []echo.MiddlewareFunc
	if limit != nil {
		throttled = append(throttled, limit)
	}
	g.POST("/holds", h.Hold, throttled...)
	g.DELETE("/holds", h.Release)
	g.POST("/holds/extend", h.Extend)
	g.POST("/reservations", h.Reserve, throttled...)
}
