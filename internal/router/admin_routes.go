package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-seating/internal/handler"
	"github.com/iliyamo/venue-seating/internal/middleware"
)

// RegisterAdmin registers /v1/admin.  Callers must present a valid token
// for an email on the admin allow-list.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, admins middleware.Admins) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireAdmin(admins))
	g.POST("/import", h.Import)
	g.POST("/layout", h.ImportLayout)
	g.GET("/reservations", h.Search)
	g.DELETE("/reservations/:row/:seat", h.FreeSeat)
	g.POST("/reservations/undo", h.UndoLast)
	g.GET("/export/reservations.csv", h.ExportReservations)
	g.GET("/export/audit.csv", h.ExportAudit)
}
