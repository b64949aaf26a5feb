// Package service implements the seat booking protocols on top of the
// stores: hold acquisition, finalization, release and extension for
// users, and the admin operations.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/venue-seating/internal/model"
)

// CatalogStore is satisfied by *repository.CatalogRepo.
type CatalogStore interface {
	List(ctx context.Context) ([]model.CatalogEntry, error)
	UpsertBulk(ctx context.Context, entries []model.CatalogEntry) (int, error)
}

// HoldStore is satisfied by *repository.SeatHoldRepo.
type HoldStore interface {
	List(ctx context.Context) ([]model.Hold, error)
	DeleteExpired(ctx context.Context, now time.Time) ([]model.Hold, error)
	Insert(ctx context.Context, h model.Hold) error
	DeleteBlock(ctx context.Context, blockID, row string, seats []int) (int64, error)
	DeleteOwn(ctx context.Context, row string, seats []int, holder string) ([]model.Hold, error)
	Extend(ctx context.Context, row string, seats []int, holder string, now, expiresAt time.Time) ([]model.Hold, error)
}

// ReservationStore is satisfied by *repository.ReservationRepo.
type ReservationStore interface {
	List(ctx context.Context) ([]model.Reservation, error)
	ReserveBlock(ctx context.Context, rsv []model.Reservation, holder string) ([]model.Hold, error)
	Delete(ctx context.Context, row string, seat int) (model.Reservation, error)
	DeleteLatest(ctx context.Context) (model.Reservation, error)
	UpsertBulk(ctx context.Context, rsv []model.Reservation) (int, error)
	SearchByName(ctx context.Context, name string) ([]model.Reservation, error)
}

// AuditStore is satisfied by *repository.AuditRepo.
type AuditStore interface {
	Insert(ctx context.Context, e model.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

// LayoutStore is satisfied by *repository.LayoutRepo.
type LayoutStore interface {
	List(ctx context.Context) ([]model.Coordinate, error)
	UpsertBulk(ctx context.Context, coords []model.Coordinate) (int, error)
}

// Clock returns the current time.  Tests substitute a fixed clock.
type Clock func() time.Time
