package model

import "time"

// Entities carried on the change feed.
const (
    EntityReservation = "reservation"
    EntityHold        = "hold"

    // EntityMap marks a stream-only hint that the whole map was reloaded.
    // It never travels on the change feed.
    EntityMap = "map"
)

// Operations carried on the change feed.
const (
    OpInsert = "insert"
    OpUpdate = "update"
    OpDelete = "delete"
    OpReload = "reload"
)

// ChangeEvent is a row-level change notification for a reservation or a
// hold.  Events are delivered at least once and are not ordered across
// entities.  HeldBy and ExpiresAt are set for hold events, ReservedBy for
// reservation events.
type ChangeEvent struct {
    Entity     string     `json:"entity"`
    Op         string     `json:"op"`
    Row        string     `json:"row"`
    Seat       int        `json:"seat"`
    HeldBy     string     `json:"held_by,omitempty"`
    ExpiresAt  *time.Time `json:"expires_at,omitempty"`
    ReservedBy string     `json:"reserved_by,omitempty"`
    At         time.Time  `json:"at"`
}

// Key returns the seat the event concerns.
func (e ChangeEvent) Key() SeatKey { return SeatKey{Row: e.Row, Number: e.Seat} }

// HoldEvent builds a change event for a hold.
func HoldEvent(op string, h Hold, at time.Time) ChangeEvent {
    exp := h.ExpiresAt
    return ChangeEvent{Entity: EntityHold, Op: op, Row: h.RowLabel, Seat: h.SeatNumber, HeldBy: h.HeldBy, ExpiresAt: &exp, At: at}
}

// ReloadEvent tells stream clients to refetch the seat map.
func ReloadEvent(at time.Time) ChangeEvent {
    return ChangeEvent{Entity: EntityMap, Op: OpReload, At: at}
}

// ReservationEvent builds a change event for a reservation.
func ReservationEvent(op string, r Reservation, at time.Time) ChangeEvent {
    return ChangeEvent{Entity: EntityReservation, Op: op, Row: r.RowLabel, Seat: r.SeatNumber, ReservedBy: r.ReservedBy, At: at}
}
