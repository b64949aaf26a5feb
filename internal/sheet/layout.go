package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/iliyamo/venue-seating/internal/model"
)

// ParseCoordinates reads a Row,Seat,X,Y CSV.  Lines with a missing row,
// a bad seat number or non-finite coordinates are skipped and counted.
// A later line for the same seat replaces an earlier one.
func ParseCoordinates(r io.Reader) ([]model.Coordinate, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, 0, err
	}
	if len(records) == 0 {
		return nil, 0, errors.New("coordinates file is empty")
	}
	idx := headerIndex(records[0])
	for _, col := range []string{"Row", "Seat", "X", "Y"} {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			return nil, 0, fmt.Errorf("missing %q column", col)
		}
	}

	var out []model.Coordinate
	pos := make(map[model.SeatKey]int)
	skipped := 0
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := strings.ToUpper(cell(rec, idx, "Row"))
		num, okSeat := seatNumber(cell(rec, idx, "Seat"))
		x, okX := finite(cell(rec, idx, "X"))
		y, okY := finite(cell(rec, idx, "Y"))
		if row == "" || !okSeat || !okX || !okY {
			skipped++
			continue
		}
		c := model.Coordinate{RowLabel: row, SeatNumber: num, X: x, Y: y}
		key := model.SeatKey{Row: row, Number: num}
		if i, ok := pos[key]; ok {
			out[i] = c
			continue
		}
		pos[key] = len(out)
		out = append(out, c)
	}
	return out, skipped, nil
}

func finite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
