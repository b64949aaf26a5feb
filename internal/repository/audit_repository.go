package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/venue-seating/internal/model"
)

// AuditRepo appends to and reads from audit_log.
type AuditRepo struct {
    db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Insert appends one audit entry.
func (r *AuditRepo) Insert(ctx context.Context, e model.AuditEntry) error {
    _, err := r.db.ExecContext(ctx,
        `INSERT INTO audit_log (at, who, action, row_label, seat_number, details) VALUES (?, ?, ?, ?, ?, ?)`,
        e.At.UTC(), e.Who, e.Action, e.Row, e.Seat, e.Details)
    return err
}

// ListRecent returns at most limit entries, newest first.
func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
    if limit <= 0 {
        limit = 2000
    }
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, at, who, action, row_label, seat_number, details
         FROM audit_log ORDER BY at DESC, id DESC LIMIT ?`, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.AuditEntry
    for rows.Next() {
        var e model.AuditEntry
        var row sql.NullString
        var seat sql.NullInt64
        if err := rows.Scan(&e.ID, &e.At, &e.Who, &e.Action, &row, &seat, &e.Details); err != nil {
            return nil, err
        }
        if row.Valid {
            s := row.String
            e.Row = &s
        }
        if seat.Valid {
            n := int(seat.Int64)
            e.Seat = &n
        }
        out = append(out, e)
    }
    return out, rows.Err()
}
