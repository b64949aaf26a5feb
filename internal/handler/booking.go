package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/venue-seating/internal/middleware"
    "github.com/iliyamo/venue-seating/internal/service"
)

// Booker is satisfied by *service.BookingService.
type Booker interface {
    HoldBlock(ctx context.Context, actor, row string, anchor, size int) (*service.HeldBlock, error)
    Finalize(ctx context.Context, actor, row string, seats []int, displayName string) (*service.Booked, error)
    ReleaseBlock(ctx context.Context, actor, row string, seats []int) ([]int, error)
    ExtendBlock(ctx context.Context, actor, row string, seats []int) (*service.HeldBlock, error)
}

// BookingHandler serves the authenticated user endpoints.  Every route
// runs behind middleware.JWTAuth.
type BookingHandler struct {
    Svc    Booker
    Admins middleware.Admins
}

func NewBookingHandler(svc Booker, admins middleware.Admins) *BookingHandler {
    if svc == nil || admins == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Svc: svc, Admins: admins}
}

type holdRequest struct {
    Row  string `json:"row" validate:"required,max=8"`
    Seat int    `json:"seat" validate:"required,min=1"`
    Size int    `json:"size"`
}

type seatsRequest struct {
    Row   string `json:"row" validate:"required,max=8"`
    Seats []int  `json:"seats" validate:"required,min=1,max=6,dive,min=1"`
}

type reserveRequest struct {
    Row         string `json:"row" validate:"required,max=8"`
    Seats       []int  `json:"seats" validate:"required,min=1,max=6,dive,min=1"`
    DisplayName string `json:"display_name" validate:"max=200"`
}

func bindValid(c echo.Context, v interface{}) error {
    if err := c.Bind(v); err != nil {
        return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
    }
    return c.Validate(v)
}

// Me handles GET /v1/me.
func (h *BookingHandler) Me(c echo.Context) error {
    actor := middleware.Actor(c)
    return c.JSON(http.StatusOK, echo.Map{"email": actor, "is_admin": h.Admins.IsAdmin(actor)})
}

// Hold handles POST /v1/holds.  size defaults to 1 and is clamped to 1..6.
func (h *BookingHandler) Hold(c echo.Context) error {
    var req holdRequest
    if err := bindValid(c, &req); err != nil {
        return fail(c, err)
    }
    block, err := h.Svc.HoldBlock(c.Request().Context(), middleware.Actor(c), req.Row, req.Seat, req.Size)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, block)
}

// Release handles DELETE /v1/holds.
func (h *BookingHandler) Release(c echo.Context) error {
    var req seatsRequest
    if err := bindValid(c, &req); err != nil {
        return fail(c, err)
    }
    released, err := h.Svc.ReleaseBlock(c.Request().Context(), middleware.Actor(c), req.Row, req.Seats)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"row": req.Row, "released": released})
}

// Extend handles POST /v1/holds/extend.
func (h *BookingHandler) Extend(c echo.Context) error {
    var req seatsRequest
    if err := bindValid(c, &req); err != nil {
        return fail(c, err)
    }
    block, err := h.Svc.ExtendBlock(c.Request().Context(), middleware.Actor(c), req.Row, req.Seats)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, block)
}

// Reserve handles POST /v1/reservations.
func (h *BookingHandler) Reserve(c echo.Context) error {
    var req reserveRequest
    if err := bindValid(c, &req); err != nil {
        return fail(c, err)
    }
    booked, err := h.Svc.Finalize(c.Request().Context(), middleware.Actor(c), req.Row, req.Seats, req.DisplayName)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, booked)
}
