package seatmap

import (
	"errors"

	"github.com/iliyamo/venue-seating/internal/model"
)

// Block size limits for one group booking.
const (
	MinBlockSize = 1
	MaxBlockSize = 6
)

// ErrNoCapacity is returned when no contiguous block of the requested size
// is available near the anchor seat.
var ErrNoCapacity = errors.New("no contiguous block available")

// ClampBlockSize forces n into [MinBlockSize, MaxBlockSize].
func ClampBlockSize(n int) int {
	if n < MinBlockSize {
		return MinBlockSize
	}
	if n > MaxBlockSize {
		return MaxBlockSize
	}
	return n
}

// FindContiguous looks for size consecutively numbered available seats in
// row.  Windows starting at anchor, anchor+1, … up to the last seat of the
// row plus size are tried first; then windows starting at
// max(1, anchor-size) … anchor-1.  The first window whose seats all exist in
// the catalog and are available is returned in ascending order.  Seat
// numbers missing from the catalog are out of row, not free.
func FindContiguous(m *Map, row string, anchor, size int) ([]int, error) {
	n := ClampBlockSize(size)
	row = NormalizeRow(row)
	nums := m.rows[row]
	if len(nums) < n {
		return nil, ErrNoCapacity
	}
	maxSeat := nums[len(nums)-1]

	fits := func(start int) bool {
		if start < 1 {
			return false
		}
		for i := 0; i < n; i++ {
			s, ok := m.seats[model.SeatKey{Row: row, Number: start + i}]
			if !ok || s.Status != model.StatusAvailable {
				return false
			}
		}
		return true
	}

	for t := anchor; t <= maxSeat+n; t++ {
		if fits(t) {
			return window(t, n), nil
		}
	}
	start := anchor - n
	if start < 1 {
		start = 1
	}
	for t := start; t < anchor; t++ {
		if fits(t) {
			return window(t, n), nil
		}
	}
	return nil, ErrNoCapacity
}

func window(start, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i
	}
	return out
}
