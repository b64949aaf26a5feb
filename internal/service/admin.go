package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-seating/internal/feed"
	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/seatmap"
	"github.com/iliyamo/venue-seating/internal/sheet"
)

// AuditExportLimit bounds the audit CSV export.
const AuditExportLimit = 2000

// Admins decides who may run admin operations.  *config.Config satisfies it.
type Admins interface {
	IsAdmin(email string) bool
}

// Reloader rebuilds the live availability map.  *seatmap.Projector
// satisfies it.
type Reloader interface {
	Reload(ctx context.Context) error
}

// AdminDeps groups the collaborators of an AdminService.
type AdminDeps struct {
	Admins       Admins
	Catalog      CatalogStore
	Reservations ReservationStore
	Layout       LayoutStore
	Audit        AuditStore
	Auditor      *Auditor
	Publisher    feed.Publisher
	Reloader     Reloader
	Clock        Clock
	Log          *logrus.Logger
}

// AdminService implements the admin operations.  Every method checks the
// actor against the allow-list first and returns ErrForbidden otherwise.
type AdminService struct {
	d   AdminDeps
	log *logrus.Entry
}

func NewAdminService(d AdminDeps) *AdminService {
	if d.Admins == nil || d.Catalog == nil || d.Reservations == nil || d.Layout == nil || d.Audit == nil || d.Auditor == nil {
		panic("nil dependency passed to NewAdminService")
	}
	if d.Publisher == nil {
		d.Publisher = feed.NewLocal()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &AdminService{d: d, log: d.Log.WithField("component", "admin")}
}

func (a *AdminService) check(actor string) error {
	if !a.d.Admins.IsAdmin(actor) {
		return ErrForbidden
	}
	return nil
}

func (a *AdminService) publish(ctx context.Context, ev model.ChangeEvent) {
	if err := a.d.Publisher.Publish(ctx, ev); err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{"row": ev.Row, "seat": ev.Seat}).Warn("change event not published")
	}
}

func (a *AdminService) reload(ctx context.Context) {
	if a.d.Reloader == nil {
		return
	}
	if err := a.d.Reloader.Reload(ctx); err != nil {
		a.log.WithError(err).Warn("reload after admin change failed")
	}
}

// FreeSeat deletes the reservation on one seat.
func (a *AdminService) FreeSeat(ctx context.Context, actor, row string, seat int) (model.Reservation, error) {
	if err := a.check(actor); err != nil {
		return model.Reservation{}, err
	}
	r, err := a.d.Reservations.Delete(ctx, seatmap.NormalizeRow(row), seat)
	if err != nil {
		return r, err
	}
	a.publish(ctx, model.ReservationEvent(model.OpDelete, r, a.d.Clock()))
	key := r.Key()
	a.d.Auditor.Record(ctx, actor, model.ActionAdminFree, &key, map[string]interface{}{"was": r.ReservedBy})
	a.log.WithFields(logrus.Fields{"actor": actor, "row": r.RowLabel, "seat": r.SeatNumber}).Info("seat freed")
	return r, nil
}

// UndoLast deletes the most recent reservation.
func (a *AdminService) UndoLast(ctx context.Context, actor string) (model.Reservation, error) {
	if err := a.check(actor); err != nil {
		return model.Reservation{}, err
	}
	r, err := a.d.Reservations.DeleteLatest(ctx)
	if err != nil {
		return r, err
	}
	a.publish(ctx, model.ReservationEvent(model.OpDelete, r, a.d.Clock()))
	key := r.Key()
	a.d.Auditor.Record(ctx, actor, model.ActionAdminUndo, &key, map[string]interface{}{
		"was": r.ReservedBy, "reserved_at": r.ReservedAt.UTC(),
	})
	a.log.WithFields(logrus.Fields{"actor": actor, "row": r.RowLabel, "seat": r.SeatNumber}).Info("last reservation undone")
	return r, nil
}

// ImportResult summarises a master sheet import.
type ImportResult struct {
	Seats       int `json:"seats"`
	PreAssigned int `json:"pre_assigned"`
	Skipped     int `json:"skipped"`
}

// Import upserts the catalog seats of a parsed master sheet and then its
// pre-assigned reservations, and reloads the live map.
func (a *AdminService) Import(ctx context.Context, actor string, m *sheet.Master) (ImportResult, error) {
	var res ImportResult
	if err := a.check(actor); err != nil {
		return res, err
	}
	if m == nil || len(m.Catalog) == 0 {
		return res, fmt.Errorf("%w: sheet has no seats", ErrInvalid)
	}
	res.Skipped = m.Skipped

	n, err := a.d.Catalog.UpsertBulk(ctx, m.Catalog)
	res.Seats = n
	if err != nil {
		return res, fmt.Errorf("import catalog: %w", err)
	}
	now := a.d.Clock()
	pre := make([]model.Reservation, len(m.Reservations))
	for i, r := range m.Reservations {
		r.ReservedAt = now
		pre[i] = r
	}
	n, err = a.d.Reservations.UpsertBulk(ctx, pre)
	res.PreAssigned = n
	if err != nil {
		return res, fmt.Errorf("import pre-assigned reservations: %w", err)
	}

	a.d.Auditor.Record(ctx, actor, model.ActionImportMaster, nil, map[string]interface{}{
		"seats": res.Seats, "preReserved": res.PreAssigned, "skipped": res.Skipped,
	})
	a.log.WithFields(logrus.Fields{"actor": actor, "seats": res.Seats, "pre_assigned": res.PreAssigned}).Info("master sheet imported")
	a.reload(ctx)
	return res, nil
}

// ImportLayout stores seat-map coordinates.
func (a *AdminService) ImportLayout(ctx context.Context, actor string, coords []model.Coordinate) (int, error) {
	if err := a.check(actor); err != nil {
		return 0, err
	}
	if len(coords) == 0 {
		return 0, fmt.Errorf("%w: no coordinates", ErrInvalid)
	}
	n, err := a.d.Layout.UpsertBulk(ctx, coords)
	if err != nil {
		return n, fmt.Errorf("import layout: %w", err)
	}
	a.d.Auditor.Record(ctx, actor, model.ActionImportLayout, nil, map[string]interface{}{"placed": n})
	return n, nil
}

// SearchReservations finds reservations whose name contains name.
func (a *AdminService) SearchReservations(ctx context.Context, actor, name string) ([]model.Reservation, error) {
	if err := a.check(actor); err != nil {
		return nil, err
	}
	return a.d.Reservations.SearchByName(ctx, name)
}

// ExportReservations writes every reservation as CSV, ordered by row then
// seat number.
func (a *AdminService) ExportReservations(ctx context.Context, actor string, w io.Writer) error {
	if err := a.check(actor); err != nil {
		return err
	}
	rsv, err := a.d.Reservations.List(ctx)
	if err != nil {
		return err
	}
	sortReservations(rsv)
	return sheet.WriteReservations(w, rsv)
}

// ExportAudit writes the newest audit entries as CSV.
func (a *AdminService) ExportAudit(ctx context.Context, actor string, w io.Writer) error {
	if err := a.check(actor); err != nil {
		return err
	}
	entries, err := a.d.Audit.ListRecent(ctx, AuditExportLimit)
	if err != nil {
		return err
	}
	return sheet.WriteAudit(w, entries)
}

// sortReservations orders by row in display order, then seat number.
func sortReservations(rsv []model.Reservation) {
	rank := map[string]int{}
	var rows []string
	for _, r := range rsv {
		if _, ok := rank[r.RowLabel]; !ok {
			rank[r.RowLabel] = 0
			rows = append(rows, r.RowLabel)
		}
	}
	seatmap.SortRows(rows)
	for i, r := range rows {
		rank[r] = i
	}
	sort.SliceStable(rsv, func(i, j int) bool {
		x, y := rsv[i], rsv[j]
		if rank[x.RowLabel] != rank[y.RowLabel] {
			return rank[x.RowLabel] < rank[y.RowLabel]
		}
		return x.SeatNumber < y.SeatNumber
	})
}
