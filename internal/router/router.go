// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/venue-seating/internal/handler"
)

// Public groups what the unauthenticated routes need.
type Public struct {
	Seats  *handler.SeatsHandler
	Stream echo.HandlerFunc
	DB     handler.Pinger
	// Cache wraps the read-mostly listings; nil means uncached.
	Cache echo.MiddlewareFunc
}

// RegisterRoutes registers health, metrics and the public seat endpoints.
func RegisterRoutes(e *echo.Echo, p Public) {
	e.GET("/healthz", handler.Health)
	if p.DB != nil {
		e.GET("/readyz", handler.Ready(p.DB))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var cached []echo.MiddlewareFunc
	if p.Cache != nil {
		cached = append(cached, p.Cache)
	}
	v1 := e.Group("/v1")
	v1.GET("/rows", p.Seats.Rows, cached...)
	v1.GET("/layout", p.Seats.Layout, cached...)
	// availability changes with every hold and is never cached
	v1.GET("/seats", p.Seats.Seats)
	if p.Stream != nil {
		v1.GET("/seats/stream", p.Stream)
	}
}
