package sheet

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/iliyamo/venue-seating/internal/model"
)

// WriteReservations writes Row,Seat,Name,ReservedAt in the given order.
func WriteReservations(w io.Writer, rsv []model.Reservation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Row", "Seat", "Name", "ReservedAt"}); err != nil {
		return err
	}
	for _, r := range rsv {
		rec := []string{safeCell(r.RowLabel), strconv.Itoa(r.SeatNumber), safeCell(r.ReservedBy), formatTime(r.ReservedAt)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAudit writes When,Who,Action,Row,Seat,Details in the given order.
func WriteAudit(w io.Writer, entries []model.AuditEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"When", "Who", "Action", "Row", "Seat", "Details"}); err != nil {
		return err
	}
	for _, e := range entries {
		row, seat := "", ""
		if e.Row != nil {
			row = *e.Row
		}
		if e.Seat != nil {
			seat = strconv.Itoa(*e.Seat)
		}
		if err := cw.Write([]string{formatTime(e.At), safeCell(e.Who), safeCell(e.Action), safeCell(row), seat, safeCell(e.Details)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// safeCell quotes text a spreadsheet would otherwise evaluate as a formula.
func safeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
