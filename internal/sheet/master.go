// Package sheet reads the master seating sheet and seat coordinate files,
// and writes the CSV exports.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/venue-seating/internal/model"
)

// Master sheet column headers, matched case-insensitively.
const (
	ColRow       = "Row"
	ColSeats     = "Seats"
	ColLastName  = "Family Last Name"
	ColFirstName = "First Name(s)"
	ColSection   = "Section"
)

// ErrUnsupportedFormat is returned for files that are neither a
// spreadsheet nor CSV.
var ErrUnsupportedFormat = errors.New("unsupported sheet format")

// Master is the parsed content of a master seating sheet.
type Master struct {
	Catalog      []model.CatalogEntry
	Reservations []model.Reservation // pre-assigned seats; ReservedAt is left zero
	Skipped      int                 // data rows without a row label or a usable seat number
}

// ParseMaster reads the first sheet of an .xlsx workbook or a CSV file,
// chosen by the file name's extension.
func ParseMaster(r io.Reader, filename string) (*Master, error) {
	records, err := readRecords(r, filename)
	if err != nil {
		return nil, err
	}
	return parseMasterRecords(records)
}

func readRecords(r io.Reader, filename string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		return cr.ReadAll()
	case ".xlsx", ".xlsm", ".xls":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		return f.GetRows(sheets[0])
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func cell(rec []string, idx map[string]int, col string) string {
	i, ok := idx[strings.ToLower(col)]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// MaxSeatNumber is the largest seat number the seat columns can store.
const MaxSeatNumber = math.MaxUint32

// seatNumber accepts integral values such as "12" or "12.0" in
// [1, MaxSeatNumber].
func seatNumber(s string) (int, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < 1 || f > MaxSeatNumber {
		return 0, false
	}
	return int(f), true
}

// OccupantName joins the family and first names as "Last, First", using
// whichever parts are present.
func OccupantName(last, first string) string {
	last, first = strings.TrimSpace(last), strings.TrimSpace(first)
	switch {
	case last != "" && first != "":
		return last + ", " + first
	case last != "":
		return last
	default:
		return first
	}
}

func parseMasterRecords(records [][]string) (*Master, error) {
	if len(records) == 0 {
		return nil, errors.New("sheet is empty")
	}
	idx := headerIndex(records[0])
	for _, col := range []string{ColRow, ColSeats} {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			return nil, fmt.Errorf("missing %q column", col)
		}
	}

	m := &Master{}
	seen := make(map[model.SeatKey]bool)
	for _, rec := range records[1:] {
		row := strings.ToUpper(cell(rec, idx, ColRow))
		num, ok := seatNumber(cell(rec, idx, ColSeats))
		if row == "" || !ok {
			if !blank(rec) {
				m.Skipped++
			}
			continue
		}
		key := model.SeatKey{Row: row, Number: num}
		if seen[key] {
			continue
		}
		seen[key] = true

		entry := model.CatalogEntry{RowLabel: row, SeatNumber: num}
		if s := cell(rec, idx, ColSection); s != "" {
			entry.Section = &s
		}
		m.Catalog = append(m.Catalog, entry)

		if name := OccupantName(cell(rec, idx, ColLastName), cell(rec, idx, ColFirstName)); name != "" {
			m.Reservations = append(m.Reservations, model.Reservation{RowLabel: row, SeatNumber: num, ReservedBy: name})
		}
	}
	return m, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
