package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/venue-seating/internal/model"
)

// LayoutRepo stores seat-map coordinates.
type LayoutRepo struct {
    db *sql.DB
}

func NewLayoutRepo(db *sql.DB) *LayoutRepo { return &LayoutRepo{db: db} }

// List returns all coordinates ordered by row label and seat number.
func (r *LayoutRepo) List(ctx context.Context) ([]model.Coordinate, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT row_label, seat_number, x, y FROM seat_coordinates ORDER BY row_label, seat_number`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Coordinate
    for rows.Next() {
        var c model.Coordinate
        if err := rows.Scan(&c.RowLabel, &c.SeatNumber, &c.X, &c.Y); err != nil {
            return nil, err
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

// UpsertBulk writes coordinates in batches, replacing existing positions.
func (r *LayoutRepo) UpsertBulk(ctx context.Context, coords []model.Coordinate) (int, error) {
    sent := 0
    for start := 0; start < len(coords); start += ImportBatchSize {
        end := start + ImportBatchSize
        if end > len(coords) {
            end = len(coords)
        }
        batch := coords[start:end]
        var sb strings.Builder
        sb.WriteString(`INSERT INTO seat_coordinates (row_label, seat_number, x, y) VALUES `)
        args := make([]interface{}, 0, len(batch)*4)
        for i, c := range batch {
            if i > 0 {
                sb.WriteString(",")
            }
            sb.WriteString("(?, ?, ?, ?)")
            args = append(args, c.RowLabel, c.SeatNumber, c.X, c.Y)
        }
        sb.WriteString(` ON DUPLICATE KEY UPDATE x = VALUES(x), y = VALUES(y)`)
        if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
            return sent, err
        }
        sent += len(batch)
    }
    return sent, nil
}
