package handler

import (
    "context"
    "database/sql"
    "database/sql/driver"
    "errors"
    "net"
    "net/http"

    "github.com/go-sql-driver/mysql"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/venue-seating/internal/repository"
    "github.com/iliyamo/venue-seating/internal/seatmap"
    "github.com/iliyamo/venue-seating/internal/service"
    "github.com/iliyamo/venue-seating/internal/sheet"
)

// fail writes the JSON error body for err.  Unknown errors are logged and
// their text is not sent to the client.
func fail(c echo.Context, err error) error {
    var (
        he *echo.HTTPError
        ce *service.SeatConflictError
    )
    switch {
    case errors.As(err, &he):
        msg, _ := he.Message.(string)
        if msg == "" {
            msg = http.StatusText(he.Code)
        }
        code := "invalid"
        if he.Code != http.StatusBadRequest {
            code = "error"
        }
        return c.JSON(he.Code, echo.Map{"error": code, "message": msg})
    case errors.Is(err, seatmap.ErrNoCapacity):
        return c.JSON(http.StatusConflict, echo.Map{"error": "no_capacity", "message": "no contiguous block of that size near the chosen seat"})
    case errors.Is(err, repository.ErrUnknownSeat):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown_seat", "message": err.Error()})
    case errors.As(err, &ce):
        return c.JSON(http.StatusConflict, echo.Map{"error": "seat_conflict", "message": ce.Error(), "row": ce.Row, "seat": ce.Seat})
    case errors.Is(err, service.ErrInFlight):
        return c.JSON(http.StatusConflict, echo.Map{"error": "in_flight", "message": err.Error()})
    case errors.Is(err, service.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "not allowed"})
    case errors.Is(err, service.ErrInvalid), errors.Is(err, sheet.ErrUnsupportedFormat):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid", "message": err.Error()})
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "nothing to delete"})
    case unavailable(err):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "unavailable", "message": "database unavailable, try again"})
    default:
        c.Logger().Error(err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal error"})
    }
}

// unavailable reports whether err means the database could not be reached.
func unavailable(err error) bool {
    var ne net.Error
    return errors.Is(err, driver.ErrBadConn) ||
        errors.Is(err, sql.ErrConnDone) ||
        errors.Is(err, mysql.ErrInvalidConn) ||
        errors.Is(err, context.DeadlineExceeded) ||
        errors.As(err, &ne)
}
