package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/venue-seating/internal/model"
)

// SeatHoldRepo provides data access to the seat_holds table.  All
// timestamps are written and compared in UTC; callers pass "now" so that
// expiry follows the service clock rather than the database clock.
type SeatHoldRepo struct {
    db *sql.DB
}

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

const holdColumns = `row_label, seat_number, held_by, block_id, expires_at, created_at`

func scanHolds(rows *sql.Rows) ([]model.Hold, error) {
    defer rows.Close()
    var out []model.Hold
    for rows.Next() {
        var h model.Hold
        if err := rows.Scan(&h.RowLabel, &h.SeatNumber, &h.HeldBy, &h.BlockID, &h.ExpiresAt, &h.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, h)
    }
    return out, rows.Err()
}

// List returns every hold row, expired or not.
func (r *SeatHoldRepo) List(ctx context.Context) ([]model.Hold, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT `+holdColumns+` FROM seat_holds`)
    if err != nil {
        return nil, err
    }
    return scanHolds(rows)
}

// DeleteExpired removes every hold whose expires_at is at or before now and
// returns the removed holds so callers can announce the freed seats.
func (r *SeatHoldRepo) DeleteExpired(ctx context.Context, now time.Time) ([]model.Hold, error) {
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

    rows, err := tx.QueryContext(ctx,
        `SELECT `+holdColumns+` FROM seat_holds WHERE expires_at <= ? FOR UPDATE`, now.UTC())
    if err != nil {
        return nil, err
    }
    expired, err := scanHolds(rows)
    if err != nil {
        return nil, err
    }
    if len(expired) == 0 {
        return nil, nil
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM seat_holds WHERE expires_at <= ?`, now.UTC()); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return expired, nil
}

// Insert creates one hold.  The insert is guarded so it touches no row when
// the seat already has a reservation; both that case and an existing hold
// on the seat report ErrConflict.  A seat missing from the catalog reports
// ErrUnknownSeat.
func (r *SeatHoldRepo) Insert(ctx context.Context, h model.Hold) error {
    const q = `INSERT INTO seat_holds (` + holdColumns + `)
               SELECT ?, ?, ?, ?, ?, ? FROM DUAL
               WHERE NOT EXISTS (
                   SELECT 1 FROM seat_reservations WHERE row_label = ? AND seat_number = ?
               )`
    res, err := r.db.ExecContext(ctx, q,
        h.RowLabel, h.SeatNumber, h.HeldBy, h.BlockID, h.ExpiresAt.UTC(), h.CreatedAt.UTC(),
        h.RowLabel, h.SeatNumber)
    if err != nil {
        return mapError(err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}

// DeleteBlock removes the holds of one block on the given seats.  It is
// the compensating step of a failed acquisition and never touches holds
// created by another attempt.
func (r *SeatHoldRepo) DeleteBlock(ctx context.Context, blockID, row string, seats []int) (int64, error) {
    if len(seats) == 0 {
        return 0, nil
    }
    q := `DELETE FROM seat_holds WHERE row_label = ? AND seat_number IN (` + placeholders(len(seats)) + `) AND block_id = ?`
    res, err := r.db.ExecContext(ctx, q, seatArgs(row, seats, blockID)...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// DeleteOwn removes the holder's holds on the given seats and returns the
// removed holds.  Holds owned by someone else are left alone.
func (r *SeatHoldRepo) DeleteOwn(ctx context.Context, row string, seats []int, holder string) ([]model.Hold, error) {
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
    removed, err := r.DeleteOwnTx(ctx, tx, row, seats, holder)
    if err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return removed, nil
}

// DeleteOwnTx is DeleteOwn inside the caller's transaction.
func (r *SeatHoldRepo) DeleteOwnTx(ctx context.Context, tx *sql.Tx, row string, seats []int, holder string) ([]model.Hold, error) {
    if len(seats) == 0 {
        return nil, nil
    }
    where := ` WHERE row_label = ? AND seat_number IN (` + placeholders(len(seats)) + `) AND held_by = ?`
    args := seatArgs(row, seats, holder)
    rows, err := tx.QueryContext(ctx, `SELECT `+holdColumns+` FROM seat_holds`+where+` FOR UPDATE`, args...)
    if err != nil {
        return nil, err
    }
    held, err := scanHolds(rows)
    if err != nil {
        return nil, err
    }
    if len(held) == 0 {
        return nil, nil
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM seat_holds`+where, args...); err != nil {
        return nil, err
    }
    return held, nil
}

// Extend moves the holder's unexpired holds on the given seats to
// expiresAt and returns the updated holds.
func (r *SeatHoldRepo) Extend(ctx context.Context, row string, seats []int, holder string, now, expiresAt time.Time) ([]model.Hold, error) {
    if len(seats) == 0 {
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

    where := ` WHERE row_label = ? AND seat_number IN (` + placeholders(len(seats)) + `) AND held_by = ? AND expires_at > ?`
    args := seatArgs(row, seats, holder, now.UTC())
    rows, err := tx.QueryContext(ctx, `SELECT `+holdColumns+` FROM seat_holds`+where+` FOR UPDATE`, args...)
    if err != nil {
        return nil, err
    }
    held, err := scanHolds(rows)
    if err != nil {
        return nil, err
    }
    if len(held) == 0 {
        return nil, nil
    }
    upd := append([]interface{}{expiresAt.UTC()}, args...)
    if _, err := tx.ExecContext(ctx, `UPDATE seat_holds SET expires_at = ?`+where, upd...); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    for i := range held {
        held[i].ExpiresAt = expiresAt
    }
    return held, nil
}
