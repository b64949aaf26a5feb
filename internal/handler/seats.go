package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/venue-seating/internal/model"
    "github.com/iliyamo/venue-seating/internal/seatmap"
)

// MapSource hands out copies of the live availability map.
// *seatmap.Projector satisfies it.
type MapSource interface {
    Snapshot() *seatmap.Map
}

// LayoutLister is satisfied by *repository.LayoutRepo.
type LayoutLister interface {
    List(ctx context.Context) ([]model.Coordinate, error)
}

// SeatsHandler serves the public read endpoints.
type SeatsHandler struct {
    Map     MapSource
    Coords  LayoutLister
    HoldFor time.Duration
    Now     func() time.Time
}

func NewSeatsHandler(m MapSource, layout LayoutLister, holdFor time.Duration) *SeatsHandler {
    if m == nil || layout == nil {
        panic("nil dependency passed to NewSeatsHandler")
    }
    return &SeatsHandler{Map: m, Coords: layout, HoldFor: holdFor, Now: time.Now}
}

type seatView struct {
    Seat          int          `json:"seat"`
    Status        model.Status `json:"status"`
    HeldBy        string       `json:"held_by,omitempty"`
    HoldRemaining string       `json:"hold_remaining,omitempty"`
    HoldSeconds   int          `json:"hold_seconds,omitempty"`
    ReservedBy    string       `json:"reserved_by,omitempty"`
}

type rowView struct {
    Row   string     `json:"row"`
    Seats []seatView `json:"seats"`
}

// Rows handles GET /v1/rows?prefix=.
func (h *SeatsHandler) Rows(c echo.Context) error {
    rows := seatmap.FilterRows(h.Map.Snapshot().Rows(), c.QueryParam("prefix"))
    return c.JSON(http.StatusOK, echo.Map{"rows": rows})
}

// Seats handles GET /v1/seats.  With ?row= only that row is returned.
func (h *SeatsHandler) Seats(c echo.Context) error {
    m := h.Map.Snapshot()
    now := h.Now()

    rows := m.Rows()
    if r := seatmap.NormalizeRow(c.QueryParam("row")); r != "" {
        rows = []string{r}
    }
    out := make([]rowView, 0, len(rows))
    for _, r := range rows {
        states := m.Seats(r)
        if len(states) == 0 {
            continue
        }
        rv := rowView{Row: r, Seats: make([]seatView, 0, len(states))}
        for _, s := range states {
            v := seatView{Seat: s.Number, Status: s.Status, ReservedBy: s.ReservedBy}
            if s.Status == model.StatusHeld {
                secs := s.Remaining(now)
                v.HeldBy = s.HeldBy
                v.HoldSeconds = secs
                v.HoldRemaining = seatmap.FormatRemaining(secs)
            }
            rv.Seats = append(rv.Seats, v)
        }
        out = append(out, rv)
    }
    if len(out) == 0 && c.QueryParam("row") != "" {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "no such row"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "rows":                  out,
        "counts":                m.Counts(),
        "hold_duration_seconds": int(h.HoldFor / time.Second),
    })
}

// Layout handles GET /v1/layout.
func (h *SeatsHandler) Layout(c echo.Context) error {
    coords, err := h.Coords.List(c.Request().Context())
    if err != nil {
        return fail(c, err)
    }
    if coords == nil {
        coords = []model.Coordinate{}
    }
    return c.JSON(http.StatusOK, echo.Map{"coordinates": coords})
}
