package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/repository"
)

// memDB mimics the MySQL constraints: one hold and one reservation per
// catalog seat, and no hold on a reserved seat.
type memDB struct {
	mu      sync.Mutex
	catalog map[model.SeatKey]model.CatalogEntry
	holds   map[model.SeatKey]model.Hold
	rsv     map[model.SeatKey]model.Reservation
	audit   []model.AuditEntry
	coords  []model.Coordinate

	// beforeHoldInsert runs before every hold insert; a non-nil error fails it.
	beforeHoldInsert func(h model.Hold) error
	holdInserts      int
	deletedBlocks    [][]int
}

func newMemDB(row string, from, to int) *memDB {
	db := &memDB{
		catalog: map[model.SeatKey]model.CatalogEntry{},
		holds:   map[model.SeatKey]model.Hold{},
		rsv:     map[model.SeatKey]model.Reservation{},
	}
	for n := from; n <= to; n++ {
		db.catalog[model.SeatKey{Row: row, Number: n}] = model.CatalogEntry{RowLabel: row, SeatNumber: n}
	}
	return db
}

func (db *memDB) reserve(row string, seat int, by string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.rsv[model.SeatKey{Row: row, Number: seat}] = model.Reservation{RowLabel: row, SeatNumber: seat, ReservedBy: by}
}

type memCatalog struct{ db *memDB }

func (c memCatalog) List(context.Context) ([]model.CatalogEntry, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	out := make([]model.CatalogEntry, 0, len(c.db.catalog))
	for _, e := range c.db.catalog {
		out = append(out, e)
	}
	return out, nil
}

func (c memCatalog) UpsertBulk(_ context.Context, entries []model.CatalogEntry) (int, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	for _, e := range entries {
		c.db.catalog[e.Key()] = e
	}
	return len(entries), nil
}

type memHolds struct{ db *memDB }

func (h memHolds) List(context.Context) ([]model.Hold, error) {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	out := make([]model.Hold, 0, len(h.db.holds))
	for _, x := range h.db.holds {
		out = append(out, x)
	}
	return out, nil
}

func (h memHolds) DeleteExpired(_ context.Context, now time.Time) ([]model.Hold, error) {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	var out []model.Hold
	for k, x := range h.db.holds {
		if !x.ExpiresAt.After(now) {
			out = append(out, x)
			delete(h.db.holds, k)
		}
	}
	return out, nil
}

func (h memHolds) Insert(_ context.Context, x model.Hold) error {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	h.db.holdInserts++
	if h.db.beforeHoldInsert != nil {
		if err := h.db.beforeHoldInsert(x); err != nil {
			return err
		}
	}
	k := x.Key()
	if _, ok := h.db.catalog[k]; !ok {
		return repository.ErrUnknownSeat
	}
	if _, ok := h.db.holds[k]; ok {
		return repository.ErrConflict
	}
	if _, ok := h.db.rsv[k]; ok {
		return repository.ErrConflict
	}
	h.db.holds[k] = x
	return nil
}

func (h memHolds) DeleteBlock(_ context.Context, blockID, row string, seats []int) (int64, error) {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	h.db.deletedBlocks = append(h.db.deletedBlocks, append([]int(nil), seats...))
	var n int64
	for _, s := range seats {
		k := model.SeatKey{Row: row, Number: s}
		if x, ok := h.db.holds[k]; ok && x.BlockID == blockID {
			delete(h.db.holds, k)
			n++
		}
	}
	return n, nil
}

func (h memHolds) DeleteOwn(_ context.Context, row string, seats []int, holder string) ([]model.Hold, error) {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	return h.db.deleteOwnLocked(row, seats, holder), nil
}

func (db *memDB) deleteOwnLocked(row string, seats []int, holder string) []model.Hold {
	var out []model.Hold
	for _, s := range seats {
		k := model.SeatKey{Row: row, Number: s}
		if x, ok := db.holds[k]; ok && x.HeldBy == holder {
			out = append(out, x)
			delete(db.holds, k)
		}
	}
	return out
}

func (h memHolds) Extend(_ context.Context, row string, seats []int, holder string, now, until time.Time) ([]model.Hold, error) {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	var out []model.Hold
	for _, s := range seats {
		k := model.SeatKey{Row: row, Number: s}
		if x, ok := h.db.holds[k]; ok && x.HeldBy == holder && x.ExpiresAt.After(now) {
			x.ExpiresAt = until
			h.db.holds[k] = x
			out = append(out, x)
		}
	}
	return out, nil
}

type memReservations struct{ db *memDB }

func (r memReservations) List(context.Context) ([]model.Reservation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]model.Reservation, 0, len(r.db.rsv))
	for _, x := range r.db.rsv {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RowLabel != out[j].RowLabel {
			return out[i].RowLabel < out[j].RowLabel
		}
		return out[i].SeatNumber < out[j].SeatNumber
	})
	return out, nil
}

func (r memReservations) ReserveBlock(_ context.Context, rsv []model.Reservation, holder string) ([]model.Hold, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range rsv {
		k := x.Key()
		if _, ok := r.db.catalog[k]; !ok {
			return nil, &repository.SeatError{Row: x.RowLabel, Seat: x.SeatNumber, Err: repository.ErrUnknownSeat}
		}
		if _, ok := r.db.rsv[k]; ok {
			return nil, &repository.SeatError{Row: x.RowLabel, Seat: x.SeatNumber, Err: repository.ErrConflict}
		}
	}
	seats := make([]int, 0, len(rsv))
	for _, x := range rsv {
		r.db.rsv[x.Key()] = x
		seats = append(seats, x.SeatNumber)
	}
	return r.db.deleteOwnLocked(rsv[0].RowLabel, seats, holder), nil
}

func (r memReservations) Delete(_ context.Context, row string, seat int) (model.Reservation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k := model.SeatKey{Row: row, Number: seat}
	x, ok := r.db.rsv[k]
	if !ok {
		return x, repository.ErrNotFound
	}
	delete(r.db.rsv, k)
	return x, nil
}

func (r memReservations) DeleteLatest(context.Context) (model.Reservation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var latest model.Reservation
	found := false
	for _, x := range r.db.rsv {
		if !found || x.ReservedAt.After(latest.ReservedAt) {
			latest, found = x, true
		}
	}
	if !found {
		return latest, repository.ErrNotFound
	}
	delete(r.db.rsv, latest.Key())
	return latest, nil
}

func (r memReservations) UpsertBulk(_ context.Context, rsv []model.Reservation) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range rsv {
		r.db.rsv[x.Key()] = x
	}
	return len(rsv), nil
}

func (r memReservations) SearchByName(_ context.Context, name string) ([]model.Reservation, error) {
	all, _ := r.List(context.Background())
	var out []model.Reservation
	for _, x := range all {
		if strings.Contains(strings.ToLower(x.ReservedBy), strings.ToLower(name)) {
			out = append(out, x)
		}
	}
	return out, nil
}

type memAudit struct{ db *memDB }

func (a memAudit) Insert(_ context.Context, e model.AuditEntry) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	a.db.audit = append(a.db.audit, e)
	return nil
}

func (a memAudit) ListRecent(_ context.Context, limit int) ([]model.AuditEntry, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	out := make([]model.AuditEntry, 0, len(a.db.audit))
	for i := len(a.db.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.db.audit[i])
	}
	return out, nil
}

type memLayout struct{ db *memDB }

func (l memLayout) List(context.Context) ([]model.Coordinate, error) { return l.db.coords, nil }

func (l memLayout) UpsertBulk(_ context.Context, c []model.Coordinate) (int, error) {
	l.db.coords = append(l.db.coords, c...)
	return len(c), nil
}

// recorder collects published events.
type recorder struct {
	mu  sync.Mutex
	evs []model.ChangeEvent
}

func (r *recorder) Publish(_ context.Context, ev model.ChangeEvent) error {
	r.mu.Lock()
	r.evs = append(r.evs, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) count(entity, op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.evs {
		if ev.Entity == entity && ev.Op == op {
			n++
		}
	}
	return n
}

// fixedClock is a settable clock.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
