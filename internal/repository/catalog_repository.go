package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/venue-seating/internal/model"
)

// CatalogRepo provides access to seat_catalog, the set of seats that exist
// in the venue.
type CatalogRepo struct {
    db *sql.DB
}

// NewCatalogRepo returns a new CatalogRepo bound to the provided database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// List returns every catalog seat ordered by row label and seat number.
func (r *CatalogRepo) List(ctx context.Context) ([]model.CatalogEntry, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT row_label, seat_number, section FROM seat_catalog ORDER BY row_label, seat_number`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.CatalogEntry
    for rows.Next() {
        var e model.CatalogEntry
        var section sql.NullString
        if err := rows.Scan(&e.RowLabel, &e.SeatNumber, &section); err != nil {
            return nil, err
        }
        if section.Valid {
            s := section.String
            e.Section = &s
        }
        out = append(out, e)
    }
    return out, rows.Err()
}

// UpsertBulk inserts catalog seats in batches, updating the section of
// seats that already exist.  It returns the number of entries sent.
func (r *CatalogRepo) UpsertBulk(ctx context.Context, entries []model.CatalogEntry) (int, error) {
    sent := 0
    for start := 0; start < len(entries); start += ImportBatchSize {
        end := start + ImportBatchSize
        if end > len(entries) {
            end = len(entries)
        }
        batch := entries[start:end]
        var sb strings.Builder
        sb.WriteString(`INSERT INTO seat_catalog (row_label, seat_number, section) VALUES `)
        args := make([]interface{}, 0, len(batch)*3)
        for i, e := range batch {
            if i > 0 {
                sb.WriteString(",")
            }
            sb.WriteString("(?, ?, ?)")
            args = append(args, e.RowLabel, e.SeatNumber, e.Section)
        }
        sb.WriteString(` ON DUPLICATE KEY UPDATE section = VALUES(section)`)
        if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
            return sent, mapError(err)
        }
        sent += len(batch)
    }
    return sent, nil
}
