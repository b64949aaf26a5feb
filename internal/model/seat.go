package model

import "time"

// Status is the derived availability of a seat.
type Status string

const (
    StatusAvailable Status = "available"
    StatusHeld      Status = "held"
    StatusTaken     Status = "taken"
)

// SeatKey identifies a seat by its row label and seat number.  Two seats
// with the same number in different rows are different seats.
type SeatKey struct {
    Row    string // row label, e.g. A, B, AA
    Number int    // seat number within the row (1-based)
}

// CatalogEntry records that a seat exists in the venue.  Entries are
// created by the master import and replaced only by a re-import.
//
// Fields:
//  RowLabel   – row label (upper case).
//  SeatNumber – seat number in the row.
//  Section    – optional section name from the seating sheet.
type CatalogEntry struct {
    RowLabel   string  // seat_catalog.row_label
    SeatNumber int     // seat_catalog.seat_number
    Section    *string // seat_catalog.section (nullable)
}

// Key returns the seat identity of the entry.
func (c CatalogEntry) Key() SeatKey { return SeatKey{Row: c.RowLabel, Number: c.SeatNumber} }

// Coordinate places a seat on the seat-map overlay.  X and Y are pixels
// relative to the uploaded map canvas.
type Coordinate struct {
    RowLabel   string  `json:"row"`  // seat_coordinates.row_label
    SeatNumber int     `json:"seat"` // seat_coordinates.seat_number
    X          float64 `json:"x"`    // seat_coordinates.x
    Y          float64 `json:"y"`    // seat_coordinates.y
}

// Hold is a soft, time-limited claim on a seat.  At most one hold exists
// per seat; the store enforces this with the primary key on
// (row_label, seat_number).  Every seat held in one attempt shares the
// same BlockID and ExpiresAt.
//
// Fields:
//  RowLabel   – row of the held seat.
//  SeatNumber – held seat number.
//  HeldBy     – identity (email) of the holder.
//  BlockID    – id shared by all holds created in one attempt.
//  ExpiresAt  – when the hold stops blocking other users.
//  CreatedAt  – creation timestamp.
type Hold struct {
    RowLabel   string    // seat_holds.row_label
    SeatNumber int       // seat_holds.seat_number
    HeldBy     string    // seat_holds.held_by
    BlockID    string    // seat_holds.block_id
    ExpiresAt  time.Time // seat_holds.expires_at
    CreatedAt  time.Time // seat_holds.created_at
}

// Key returns the seat identity of the hold.
func (h Hold) Key() SeatKey { return SeatKey{Row: h.RowLabel, Number: h.SeatNumber} }

// Active reports whether the hold still blocks the seat at now.
func (h Hold) Active(now time.Time) bool { return h.ExpiresAt.After(now) }

// Reservation is a finalized seat assignment.  It is never updated in the
// normal flow; admins may delete it to correct mistakes.
//
// Fields:
//  RowLabel   – row of the reserved seat.
//  SeatNumber – reserved seat number.
//  ReservedBy – display name printed on the seat.
//  ReservedAt – when the reservation was created.
type Reservation struct {
    RowLabel   string    // seat_reservations.row_label
    SeatNumber int       // seat_reservations.seat_number
    ReservedBy string    // seat_reservations.reserved_by
    ReservedAt time.Time // seat_reservations.reserved_at
}

// Key returns the seat identity of the reservation.
func (r Reservation) Key() SeatKey { return SeatKey{Row: r.RowLabel, Number: r.SeatNumber} }
