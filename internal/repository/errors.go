// Package repository holds the MySQL stores for the seat catalog,
// reservations, holds, seat coordinates and the audit log, together with
// the sentinel errors higher layers use to tell failure kinds apart.
// ErrConflict means a uniqueness constraint refused the write, so another
// actor got there first.  ErrUnknownSeat means the seat is not in the
// catalog.  ErrNotFound means there was nothing to act on.
package repository

import (
    "errors"
    "fmt"

    "github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when an insert hits an existing hold or
// reservation for the same seat.  Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnknownSeat is returned when a hold or reservation names a seat that
// is missing from seat_catalog.
var ErrUnknownSeat = errors.New("unknown seat")

// MySQL server error numbers the stores translate.
const (
    mysqlDuplicateEntry  = 1062
    mysqlNoReferencedRow = 1452
)

// SeatError reports which seat a multi-seat write failed on.
type SeatError struct {
    Row  string
    Seat int
    Err  error
}

func (e *SeatError) Error() string { return fmt.Sprintf("seat %s-%d: %v", e.Row, e.Seat, e.Err) }

func (e *SeatError) Unwrap() error { return e.Err }

// mapError turns driver constraint violations into the package sentinels.
// Other errors are returned unchanged.
func mapError(err error) error {
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        switch me.Number {
        case mysqlDuplicateEntry:
            return fmt.Errorf("%w: %s", ErrConflict, me.Message)
        case mysqlNoReferencedRow:
            return fmt.Errorf("%w: %s", ErrUnknownSeat, me.Message)
        }
    }
    return err
}

// placeholders returns "?, ?, ..." with n marks.
func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    b := make([]byte, 0, n*3)
    for i := 0; i < n; i++ {
        if i > 0 {
            b = append(b, ", "...)
        }
        b = append(b, '?')
    }
    return string(b)
}

// seatArgs prefixes the row label to the seat numbers for an
// "row_label = ? AND seat_number IN (...)" clause.
func seatArgs(row string, seats []int, extra ...interface{}) []interface{} {
    args := make([]interface{}, 0, 1+len(seats)+len(extra))
    args = append(args, row)
    for _, s := range seats {
        args = append(args, s)
    }
    return append(args, extra...)
}

// ImportBatchSize bounds the rows sent in one multi-row INSERT.
const ImportBatchSize = 500
