package handler

import (
    "bytes"
    "context"
    "io"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/venue-seating/internal/middleware"
    "github.com/iliyamo/venue-seating/internal/model"
    "github.com/iliyamo/venue-seating/internal/service"
    "github.com/iliyamo/venue-seating/internal/sheet"
)

// MaxUploadBytes bounds admin file uploads.
const MaxUploadBytes = 10 << 20

// AdminOps is satisfied by *service.AdminService.
type AdminOps interface {
    FreeSeat(ctx context.Context, actor, row string, seat int) (model.Reservation, error)
    UndoLast(ctx context.Context, actor string) (model.Reservation, error)
    Import(ctx context.Context, actor string, m *sheet.Master) (service.ImportResult, error)
    ImportLayout(ctx context.Context, actor string, coords []model.Coordinate) (int, error)
    SearchReservations(ctx context.Context, actor, name string) ([]model.Reservation, error)
    ExportReservations(ctx context.Context, actor string, w io.Writer) error
    ExportAudit(ctx context.Context, actor string, w io.Writer) error
}

// AdminHandler serves /v1/admin.  Routes run behind JWTAuth and
// RequireAdmin; the service checks the allow-list again.
type AdminHandler struct {
    Svc AdminOps
    // Purge drops cached public responses after an import.  May be nil.
    Purge func(ctx context.Context)
}

func NewAdminHandler(svc AdminOps, purge func(ctx context.Context)) *AdminHandler {
    if svc == nil {
        panic("nil service passed to NewAdminHandler")
    }
    return &AdminHandler{Svc: svc, Purge: purge}
}

type reservationView struct {
    Row        string    `json:"row"`
    Seat       int       `json:"seat"`
    Name       string    `json:"name"`
    ReservedAt time.Time `json:"reserved_at"`
}

func viewOf(r model.Reservation) reservationView {
    return reservationView{Row: r.RowLabel, Seat: r.SeatNumber, Name: r.ReservedBy, ReservedAt: r.ReservedAt}
}

func (h *AdminHandler) purge(c echo.Context) {
    if h.Purge != nil {
        h.Purge(c.Request().Context())
    }
}

// upload reads the multipart "file" field into memory.
func upload(c echo.Context) ([]byte, string, error) {
    fh, err := c.FormFile("file")
    if err != nil {
        return nil, "", echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
    }
    if fh.Size > MaxUploadBytes {
        return nil, "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
    }
    f, err := fh.Open()
    if err != nil {
        return nil, "", err
    }
    defer f.Close()
    b, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
    if err != nil {
        return nil, "", err
    }
    return b, fh.Filename, nil
}

// Import handles POST /v1/admin/import.
func (h *AdminHandler) Import(c echo.Context) error {
    data, name, err := upload(c)
    if err != nil {
        return fail(c, err)
    }
    m, err := sheet.ParseMaster(bytes.NewReader(data), name)
    if err != nil {
        return fail(c, echo.NewHTTPError(http.StatusBadRequest, "master sheet: "+err.Error()))
    }
    res, err := h.Svc.Import(c.Request().Context(), middleware.Actor(c), m)
    if err != nil {
        return fail(c, err)
    }
    h.purge(c)
    return c.JSON(http.StatusOK, res)
}

// ImportLayout handles POST /v1/admin/layout.
func (h *AdminHandler) ImportLayout(c echo.Context) error {
    data, _, err := upload(c)
    if err != nil {
        return fail(c, err)
    }
    coords, skipped, err := sheet.ParseCoordinates(bytes.NewReader(data))
    if err != nil {
        return fail(c, echo.NewHTTPError(http.StatusBadRequest, "coordinates: "+err.Error()))
    }
    n, err := h.Svc.ImportLayout(c.Request().Context(), middleware.Actor(c), coords)
    if err != nil {
        return fail(c, err)
    }
    h.purge(c)
    return c.JSON(http.StatusOK, echo.Map{"placed": n, "skipped": skipped})
}

// FreeSeat handles DELETE /v1/admin/reservations/:row/:seat.
func (h *AdminHandler) FreeSeat(c echo.Context) error {
    seat, err := strconv.Atoi(c.Param("seat"))
    if err != nil || seat < 1 {
        return fail(c, echo.NewHTTPError(http.StatusBadRequest, "invalid seat number"))
    }
    r, err := h.Svc.FreeSeat(c.Request().Context(), middleware.Actor(c), c.Param("row"), seat)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"freed": viewOf(r)})
}

// UndoLast handles POST /v1/admin/reservations/undo.
func (h *AdminHandler) UndoLast(c echo.Context) error {
    r, err := h.Svc.UndoLast(c.Request().Context(), middleware.Actor(c))
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"undone": viewOf(r)})
}

// Search handles GET /v1/admin/reservations?name=.
func (h *AdminHandler) Search(c echo.Context) error {
    rsv, err := h.Svc.SearchReservations(c.Request().Context(), middleware.Actor(c), c.QueryParam("name"))
    if err != nil {
        return fail(c, err)
    }
    out := make([]reservationView, 0, len(rsv))
    for _, r := range rsv {
        out = append(out, viewOf(r))
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// ExportReservations handles GET /v1/admin/export/reservations.csv.
func (h *AdminHandler) ExportReservations(c echo.Context) error {
    var buf bytes.Buffer
    if err := h.Svc.ExportReservations(c.Request().Context(), middleware.Actor(c), &buf); err != nil {
        return fail(c, err)
    }
    return csvAttachment(c, "reservations.csv", buf.Bytes())
}

// ExportAudit handles GET /v1/admin/export/audit.csv.
func (h *AdminHandler) ExportAudit(c echo.Context) error {
    var buf bytes.Buffer
    if err := h.Svc.ExportAudit(c.Request().Context(), middleware.Actor(c), &buf); err != nil {
        return fail(c, err)
    }
    return csvAttachment(c, "audit.csv", buf.Bytes())
}

func csvAttachment(c echo.Context, name string, data []byte) error {
    c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
    return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}
