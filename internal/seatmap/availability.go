package seatmap

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/iliyamo/venue-seating/internal/model"
)

// SeatState is the derived view of one seat.
type SeatState struct {
	Row           string
	Number        int
	Status        model.Status
	HeldBy        string
	HoldExpiresAt time.Time
	ReservedBy    string
}

// Remaining returns the whole seconds left on the seat's hold at now.  It
// is 0 for seats that are not held and for holds that have run out.
func (s SeatState) Remaining(now time.Time) int {
	if s.Status != model.StatusHeld || s.HoldExpiresAt.IsZero() {
		return 0
	}
	secs := int(math.Floor(s.HoldExpiresAt.Sub(now).Seconds()))
	if secs < 0 {
		return 0
	}
	return secs
}

// FormatRemaining renders a countdown as m:ss.  Anything at or below zero
// renders as 0:00.
func FormatRemaining(secs int) string {
	if secs <= 0 {
		return "0:00"
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Map is the Availability Map: every catalog seat with its derived status.
// A Map is not safe for concurrent mutation; the Projector guards the live
// one and hands out clones.
type Map struct {
	seats map[model.SeatKey]*SeatState
	rows  map[string][]int // sorted seat numbers per row
}

// NewMap returns a map containing every catalog seat as available.
func NewMap(catalog []model.CatalogEntry) *Map {
	m := &Map{
		seats: make(map[model.SeatKey]*SeatState, len(catalog)),
		rows:  make(map[string][]int),
	}
	for _, c := range catalog {
		row := NormalizeRow(c.RowLabel)
		if row == "" || c.SeatNumber < 1 {
			continue
		}
		key := model.SeatKey{Row: row, Number: c.SeatNumber}
		if _, dup := m.seats[key]; dup {
			continue
		}
		m.seats[key] = &SeatState{Row: row, Number: c.SeatNumber, Status: model.StatusAvailable}
		m.rows[row] = append(m.rows[row], c.SeatNumber)
	}
	for _, nums := range m.rows {
		sort.Ints(nums)
	}
	return m
}

// Build overlays reservations and holds on the catalog.  A seat is taken if
// it has a reservation, else held if it has a hold that has not expired at
// now, else available.  Records for seats missing from the catalog are
// ignored.
func Build(catalog []model.CatalogEntry, reservations []model.Reservation, holds []model.Hold, now time.Time) *Map {
	m := NewMap(catalog)
	for _, r := range reservations {
		m.markTaken(model.SeatKey{Row: NormalizeRow(r.RowLabel), Number: r.SeatNumber}, r.ReservedBy)
	}
	for _, h := range holds {
		if !h.Active(now) {
			continue
		}
		m.markHeld(model.SeatKey{Row: NormalizeRow(h.RowLabel), Number: h.SeatNumber}, h.HeldBy, h.ExpiresAt)
	}
	return m
}

// Get returns the state of one seat.
func (m *Map) Get(row string, number int) (SeatState, bool) {
	s, ok := m.seats[model.SeatKey{Row: NormalizeRow(row), Number: number}]
	if !ok {
		return SeatState{}, false
	}
	return *s, true
}

// Len returns the number of catalog seats in the map.
func (m *Map) Len() int { return len(m.seats) }

// Rows returns the row labels in display order.
func (m *Map) Rows() []string {
	out := make([]string, 0, len(m.rows))
	for r := range m.rows {
		out = append(out, r)
	}
	SortRows(out)
	return out
}

// Seats returns the seats of a row ordered by seat number.
func (m *Map) Seats(row string) []SeatState {
	row = NormalizeRow(row)
	nums := m.rows[row]
	out := make([]SeatState, 0, len(nums))
	for _, n := range nums {
		out = append(out, *m.seats[model.SeatKey{Row: row, Number: n}])
	}
	return out
}

// Counts returns how many seats are in each status.
func (m *Map) Counts() map[model.Status]int {
	out := map[model.Status]int{
		model.StatusAvailable: 0,
		model.StatusHeld:      0,
		model.StatusTaken:     0,
	}
	for _, s := range m.seats {
		out[s.Status]++
	}
	return out
}

// Clone returns a deep copy of the map.
func (m *Map) Clone() *Map {
	c := &Map{
		seats: make(map[model.SeatKey]*SeatState, len(m.seats)),
		rows:  make(map[string][]int, len(m.rows)),
	}
	for k, s := range m.seats {
		cp := *s
		c.seats[k] = &cp
	}
	for r, nums := range m.rows {
		c.rows[r] = append([]int(nil), nums...)
	}
	return c
}

func (m *Map) markTaken(key model.SeatKey, by string) bool {
	s, ok := m.seats[key]
	if !ok {
		return false
	}
	s.Status = model.StatusTaken
	s.ReservedBy = by
	s.HeldBy = ""
	s.HoldExpiresAt = time.Time{}
	return true
}

func (m *Map) markHeld(key model.SeatKey, by string, expiresAt time.Time) bool {
	s, ok := m.seats[key]
	if !ok || s.Status == model.StatusTaken {
		return false
	}
	s.Status = model.StatusHeld
	s.HeldBy = by
	s.HoldExpiresAt = expiresAt
	return true
}

func (m *Map) markAvailable(key model.SeatKey) bool {
	s, ok := m.seats[key]
	if !ok {
		return false
	}
	s.Status = model.StatusAvailable
	s.HeldBy = ""
	s.HoldExpiresAt = time.Time{}
	s.ReservedBy = ""
	return true
}
