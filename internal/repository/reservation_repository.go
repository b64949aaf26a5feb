package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/iliyamo/venue-seating/internal/model"
)

// ReservationRepo provides access to seat_reservations.  The primary key on
// (row_label, seat_number) is what makes a seat impossible to book twice.
type ReservationRepo struct {
    db    *sql.DB
    holds *SeatHoldRepo
}

// NewReservationRepo returns a new ReservationRepo bound to the given
// database.  holds is used to clear the booker's holds in the same
// transaction as the reservation inserts.
func NewReservationRepo(db *sql.DB, holds *SeatHoldRepo) *ReservationRepo {
    return &ReservationRepo{db: db, holds: holds}
}

const reservationColumns = `row_label, seat_number, reserved_by, reserved_at`

func scanReservations(rows *sql.Rows) ([]model.Reservation, error) {
    defer rows.Close()
    var out []model.Reservation
    for rows.Next() {
        var r model.Reservation
        if err := rows.Scan(&r.RowLabel, &r.SeatNumber, &r.ReservedBy, &r.ReservedAt); err != nil {
            return nil, err
        }
        out = append(out, r)
    }
    return out, rows.Err()
}

// List returns every reservation ordered by row label and seat number.
func (r *ReservationRepo) List(ctx context.Context) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+` FROM seat_reservations ORDER BY row_label, seat_number`)
    if err != nil {
        return nil, err
    }
    return scanReservations(rows)
}

// SearchByName returns reservations whose name contains the query,
// ignoring case.
func (r *ReservationRepo) SearchByName(ctx context.Context, name string) ([]model.Reservation, error) {
    pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(name))) + "%"
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+` FROM seat_reservations
         WHERE LOWER(reserved_by) LIKE ? ORDER BY row_label, seat_number`, pattern)
    if err != nil {
        return nil, err
    }
    return scanReservations(rows)
}

func escapeLike(s string) string {
    return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// InsertTx inserts one reservation inside the caller's transaction.
func (r *ReservationRepo) InsertTx(ctx context.Context, tx *sql.Tx, res model.Reservation) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO seat_reservations (`+reservationColumns+`) VALUES (?, ?, ?, ?)`,
        res.RowLabel, res.SeatNumber, res.ReservedBy, res.ReservedAt.UTC())
    return mapError(err)
}

// ReserveBlock inserts all reservations in one transaction and, when every
// insert succeeded, deletes holder's holds on those seats.  The first
// failing insert rolls everything back and is reported as a *SeatError.
// It returns the holds that were cleared.
func (r *ReservationRepo) ReserveBlock(ctx context.Context, rsv []model.Reservation, holder string) ([]model.Hold, error) {
    if len(rsv) == 0 {
        return nil, nil
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    seats := make([]int, 0, len(rsv))
    for _, x := range rsv {
        if err := r.InsertTx(ctx, tx, x); err != nil {
            return nil, &SeatError{Row: x.RowLabel, Seat: x.SeatNumber, Err: err}
        }
        seats = append(seats, x.SeatNumber)
    }
    cleared, err := r.holds.DeleteOwnTx(ctx, tx, rsv[0].RowLabel, seats, holder)
    if err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return cleared, nil
}

// Delete removes the reservation on one seat and returns it.
func (r *ReservationRepo) Delete(ctx context.Context, row string, seat int) (model.Reservation, error) {
    return r.deleteOne(ctx,
        `SELECT `+reservationColumns+` FROM seat_reservations WHERE row_label = ? AND seat_number = ? FOR UPDATE`,
        row, seat)
}

// DeleteLatest removes the most recently created reservation and returns
// it.  Ties on reserved_at go to the higher row label and seat number.
func (r *ReservationRepo) DeleteLatest(ctx context.Context) (model.Reservation, error) {
    return r.deleteOne(ctx,
        `SELECT `+reservationColumns+` FROM seat_reservations
         ORDER BY reserved_at DESC, row_label DESC, seat_number DESC LIMIT 1 FOR UPDATE`)
}

func (r *ReservationRepo) deleteOne(ctx context.Context, sel string, args ...interface{}) (model.Reservation, error) {
    var res model.Reservation
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return res, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    err = tx.QueryRowContext(ctx, sel, args...).Scan(&res.RowLabel, &res.SeatNumber, &res.ReservedBy, &res.ReservedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return res, ErrNotFound
    }
    if err != nil {
        return res, err
    }
    if _, err := tx.ExecContext(ctx,
        `DELETE FROM seat_reservations WHERE row_label = ? AND seat_number = ?`,
        res.RowLabel, res.SeatNumber); err != nil {
        return res, err
    }
    if err := tx.Commit(); err != nil {
        return res, err
    }
    committed = true
    return res, nil
}

// UpsertBulk writes pre-assigned reservations from the master sheet in
// batches.  Existing reservations on the same seat take the sheet's name.
func (r *ReservationRepo) UpsertBulk(ctx context.Context, rsv []model.Reservation) (int, error) {
    sent := 0
    for start := 0; start < len(rsv); start += ImportBatchSize {
        end := start + ImportBatchSize
        if end > len(rsv) {
            end = len(rsv)
        }
        batch := rsv[start:end]
        var sb strings.Builder
        sb.WriteString(`INSERT INTO seat_reservations (` + reservationColumns + `) VALUES `)
        args := make([]interface{}, 0, len(batch)*4)
        for i, x := range batch {
            if i > 0 {
                sb.WriteString(",")
            }
            sb.WriteString("(?, ?, ?, ?)")
            args = append(args, x.RowLabel, x.SeatNumber, x.ReservedBy, x.ReservedAt.UTC())
        }
        sb.WriteString(` ON DUPLICATE KEY UPDATE reserved_by = VALUES(reserved_by)`)
        if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
            return sent, mapError(err)
        }
        sent += len(batch)
    }
    return sent, nil
}
