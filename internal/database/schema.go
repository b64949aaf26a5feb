package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Composite primary keys enforce one reservation and one hold per seat.
// Foreign keys into seat_catalog reject unknown seats.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS seat_catalog (
		row_label   VARCHAR(16) NOT NULL,
		seat_number INT UNSIGNED NOT NULL,
		section     VARCHAR(64) NULL,
		PRIMARY KEY (row_label, seat_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seat_reservations (
		row_label   VARCHAR(16) NOT NULL,
		seat_number INT UNSIGNED NOT NULL,
		reserved_by VARCHAR(255) NOT NULL,
		reserved_at DATETIME(3) NOT NULL,
		PRIMARY KEY (row_label, seat_number),
		KEY idx_reserved_at (reserved_at),
		CONSTRAINT fk_reservation_seat FOREIGN KEY (row_label, seat_number)
			REFERENCES seat_catalog (row_label, seat_number) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seat_holds (
		row_label   VARCHAR(16) NOT NULL,
		seat_number INT UNSIGNED NOT NULL,
		held_by     VARCHAR(255) NOT NULL,
		block_id    CHAR(36) NOT NULL,
		expires_at  DATETIME(3) NOT NULL,
		created_at  DATETIME(3) NOT NULL,
		PRIMARY KEY (row_label, seat_number),
		KEY idx_expires_at (expires_at),
		KEY idx_held_by (held_by),
		CONSTRAINT fk_hold_seat FOREIGN KEY (row_label, seat_number)
			REFERENCES seat_catalog (row_label, seat_number) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		at          DATETIME(3) NOT NULL,
		who         VARCHAR(255) NOT NULL,
		action      VARCHAR(32) NOT NULL,
		row_label   VARCHAR(16) NULL,
		seat_number INT UNSIGNED NULL,
		details     VARCHAR(2000) NOT NULL DEFAULT '',
		PRIMARY KEY (id),
		KEY idx_at (at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seat_coordinates (
		row_label   VARCHAR(16) NOT NULL,
		seat_number INT UNSIGNED NOT NULL,
		x           DOUBLE NOT NULL,
		y           DOUBLE NOT NULL,
		PRIMARY KEY (row_label, seat_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.  It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
