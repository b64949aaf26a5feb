package seatmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-seating/internal/model"
)

func TestBuildOverlaysReservationsOverHolds(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	catalog := catalogRow("a", 1, 2, 3)
	res := []model.Reservation{{RowLabel: "A", SeatNumber: 1, ReservedBy: "Caplan, Samuel"}, {RowLabel: "Z", SeatNumber: 1}}
	holds := []model.Hold{
		{RowLabel: "A", SeatNumber: 1, HeldBy: "late@example.org", ExpiresAt: now.Add(time.Minute)},
		{RowLabel: "A", SeatNumber: 2, HeldBy: "me@example.org", ExpiresAt: now.Add(time.Minute)},
	}
	m := Build(catalog, res, holds, now)

	require.Equal(t, 3, m.Len())
	s1, _ := m.Get("A", 1)
	assert.Equal(t, model.StatusTaken, s1.Status)
	assert.Equal(t, "Caplan, Samuel", s1.ReservedBy)
	s2, _ := m.Get("A", 2)
	assert.Equal(t, model.StatusHeld, s2.Status)
	assert.Equal(t, "me@example.org", s2.HeldBy)
	s3, _ := m.Get("A", 3)
	assert.Equal(t, model.StatusAvailable, s3.Status)
	_, ok := m.Get("Z", 1)
	assert.False(t, ok, "reservations outside the catalog are ignored")
}

func TestHoldCountdown(t *testing.T) {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	hold := model.Hold{RowLabel: "A", SeatNumber: 1, ExpiresAt: created.Add(300 * time.Second)}
	m := Build(catalogRow("A", 1), nil, []model.Hold{hold}, created)
	s, _ := m.Get("A", 1)

	assert.Equal(t, "5:00", FormatRemaining(s.Remaining(created)))
	assert.Equal(t, "4:59", FormatRemaining(s.Remaining(created.Add(500*time.Millisecond))))
	assert.Equal(t, "0:01", FormatRemaining(s.Remaining(created.Add(299*time.Second))))
	assert.Equal(t, "0:00", FormatRemaining(s.Remaining(created.Add(300*time.Second))))
	assert.Equal(t, "0:00", FormatRemaining(s.Remaining(created.Add(time.Hour))))
}

func TestMapRowsAndSeatsOrdered(t *testing.T) {
	catalog := append(catalogRow("AA", 2, 1), catalogRow("B", 3, 1, 2)...)
	catalog = append(catalog, catalogRow("A", 1)...)
	m := NewMap(catalog)

	assert.Equal(t, []string{"A", "B", "AA"}, m.Rows())
	var nums []int
	for _, s := range m.Seats("b") {
		nums = append(nums, s.Number)
	}
	assert.Equal(t, []int{1, 2, 3}, nums)
}

func TestCloneIsIndependent(t *testing.T) {
	m := NewMap(catalogRow("A", 1))
	c := m.Clone()
	c.markTaken(model.SeatKey{Row: "A", Number: 1}, "x")

	s, _ := m.Get("A", 1)
	assert.Equal(t, model.StatusAvailable, s.Status)
}
