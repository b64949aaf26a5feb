package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-seating/internal/feed"
	"github.com/iliyamo/venue-seating/internal/lock"
	"github.com/iliyamo/venue-seating/internal/metrics"
	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/repository"
	"github.com/iliyamo/venue-seating/internal/seatmap"
)

// HeldBlock is the result of a successful hold or extension.
type HeldBlock struct {
	Row       string    `json:"row"`
	Seats     []int     `json:"seats"`
	BlockID   string    `json:"block_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Booked is the result of a successful finalization.
type Booked struct {
	Row        string    `json:"row"`
	Seats      []int     `json:"seats"`
	ReservedBy string    `json:"reserved_by"`
	ReservedAt time.Time `json:"reserved_at"`
}

// BookingDeps groups the collaborators of a BookingService.
type BookingDeps struct {
	Catalog      CatalogStore
	Holds        HoldStore
	Reservations ReservationStore
	Guard        lock.Guard
	Publisher    feed.Publisher
	Auditor      *Auditor
	Clock        Clock
	Log          *logrus.Logger
}

// BookingService runs the hold and finalize protocols.  The stores'
// uniqueness constraints are the only arbiter between actors; the service
// never trusts its own view of availability for correctness.
type BookingService struct {
	catalog      CatalogStore
	holds        HoldStore
	reservations ReservationStore
	guard        lock.Guard
	pub          feed.Publisher
	audit        *Auditor
	now          Clock
	holdFor      time.Duration
	log          *logrus.Entry
}

// NewBookingService panics if a store is missing.  holdFor is the lifetime
// given to every new or extended hold.
func NewBookingService(d BookingDeps, holdFor time.Duration) *BookingService {
	if d.Catalog == nil || d.Holds == nil || d.Reservations == nil {
		panic("nil store passed to NewBookingService")
	}
	if d.Guard == nil {
		d.Guard = lock.NewLocal()
	}
	if d.Publisher == nil {
		d.Publisher = feed.NewLocal()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Auditor == nil {
		panic("nil auditor passed to NewBookingService")
	}
	if holdFor <= 0 {
		holdFor = 300 * time.Second
	}
	return &BookingService{
		catalog:      d.Catalog,
		holds:        d.Holds,
		reservations: d.Reservations,
		guard:        d.Guard,
		pub:          d.Publisher,
		audit:        d.Auditor,
		now:          d.Clock,
		holdFor:      holdFor,
		log:          d.Log.WithField("component", "booking"),
	}
}

// HoldDuration returns the lifetime of new holds.
func (s *BookingService) HoldDuration() time.Duration { return s.holdFor }

func (s *BookingService) publish(ctx context.Context, evs ...model.ChangeEvent) {
	for _, ev := range evs {
		if err := s.pub.Publish(ctx, ev); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"entity": ev.Entity, "op": ev.Op, "row": ev.Row, "seat": ev.Seat,
			}).Warn("change event not published")
		}
	}
}

func (s *BookingService) enter(ctx context.Context, actor, row string) (func(), error) {
	release, err := s.guard.Acquire(ctx, lock.Key(actor, row))
	if errors.Is(err, lock.ErrHeld) {
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, fmt.Errorf("in-flight guard: %w", err)
	}
	return release, nil
}

// ExpireHolds deletes every hold that has run out and announces the freed
// seats.
func (s *BookingService) ExpireHolds(ctx context.Context) ([]model.Hold, error) {
	now := s.now()
	expired, err := s.holds.DeleteExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("expire holds: %w", err)
	}
	if len(expired) == 0 {
		return nil, nil
	}
	metrics.HoldsExpired(len(expired))
	evs := make([]model.ChangeEvent, 0, len(expired))
	for _, h := range expired {
		evs = append(evs, model.HoldEvent(model.OpDelete, h, now))
	}
	s.publish(ctx, evs...)
	s.log.WithField("count", len(expired)).Debug("expired holds removed")
	return expired, nil
}

// Snapshot runs lazy expiry and builds an availability map straight from
// the stores.  It makes BookingService a seatmap.Source.
func (s *BookingService) Snapshot(ctx context.Context) (*seatmap.Map, error) {
	if _, err := s.ExpireHolds(ctx); err != nil {
		return nil, err
	}
	return s.load(ctx)
}

func (s *BookingService) load(ctx context.Context) (*seatmap.Map, error) {
	catalog, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	rsv, err := s.reservations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	holds, err := s.holds.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load holds: %w", err)
	}
	return seatmap.Build(catalog, rsv, holds, s.now()), nil
}

// HoldBlock finds size contiguous available seats in row near anchor and
// holds them for actor.  Seats are inserted one at a time; when one insert
// loses to another actor, the seats inserted so far are deleted again and
// a *SeatConflictError names the losing seat.
func (s *BookingService) HoldBlock(ctx context.Context, actor, row string, anchor, size int) (*HeldBlock, error) {
	row = seatmap.NormalizeRow(row)
	if actor == "" {
		return nil, ErrForbidden
	}
	if row == "" || anchor < 1 {
		return nil, ErrInvalid
	}
	release, err := s.enter(ctx, actor, row)
	if err != nil {
		metrics.HoldAttempt(metrics.ResultInFlight)
		return nil, err
	}
	defer release()

	if _, err := s.ExpireHolds(ctx); err != nil {
		metrics.HoldAttempt(metrics.ResultError)
		return nil, err
	}
	m, err := s.load(ctx)
	if err != nil {
		metrics.HoldAttempt(metrics.ResultError)
		return nil, err
	}
	seats, err := seatmap.FindContiguous(m, row, anchor, size)
	if err != nil {
		metrics.HoldAttempt(metrics.ResultNoCapacity)
		return nil, err
	}

	now := s.now()
	block := &HeldBlock{Row: row, Seats: seats, BlockID: uuid.NewString(), ExpiresAt: now.Add(s.holdFor)}
	entry := s.log.WithFields(logrus.Fields{"actor": actor, "row": row, "block_id": block.BlockID})

	inserted := make([]model.Hold, 0, len(seats))
	for _, n := range seats {
		h := model.Hold{RowLabel: row, SeatNumber: n, HeldBy: actor, BlockID: block.BlockID, ExpiresAt: block.ExpiresAt, CreatedAt: now}
		if err := s.holds.Insert(ctx, h); err != nil {
			s.rollbackHolds(ctx, block.BlockID, row, inserted)
			if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrUnknownSeat) {
				metrics.HoldAttempt(metrics.ResultConflict)
				metrics.HoldConflict()
				entry.WithField("seat", n).Info("hold lost seat to another actor")
				return nil, &SeatConflictError{Op: "hold", Row: row, Seat: n, Err: err}
			}
			metrics.HoldAttempt(metrics.ResultError)
			return nil, fmt.Errorf("insert hold %s-%d: %w", row, n, err)
		}
		inserted = append(inserted, h)
	}

	evs := make([]model.ChangeEvent, 0, len(inserted))
	for _, h := range inserted {
		evs = append(evs, model.HoldEvent(model.OpInsert, h, now))
	}
	s.publish(ctx, evs...)
	for _, h := range inserted {
		key := h.Key()
		s.audit.Record(ctx, actor, model.ActionHold, &key, map[string]interface{}{
			"block_id": block.BlockID, "expires_at": block.ExpiresAt.UTC(), "size": len(seats),
		})
	}
	metrics.HoldAttempt(metrics.ResultOK)
	metrics.HoldBlock(len(seats))
	entry.WithField("seats", seats).Info("block held")
	return block, nil
}

// rollbackHolds deletes exactly the holds this attempt inserted.  It
// detaches from ctx so a cancelled request still cleans up.
func (s *BookingService) rollbackHolds(ctx context.Context, blockID, row string, inserted []model.Hold) {
	if len(inserted) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	nums := make([]int, 0, len(inserted))
	for _, h := range inserted {
		nums = append(nums, h.SeatNumber)
	}
	if _, err := s.holds.DeleteBlock(ctx, blockID, row, nums); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"row": row, "block_id": blockID, "seats": nums}).
			Error("compensating hold delete failed; holds will expire on their own")
		return
	}
	now := s.now()
	evs := make([]model.ChangeEvent, 0, len(inserted))
	for _, h := range inserted {
		evs = append(evs, model.HoldEvent(model.OpDelete, h, now))
	}
	s.publish(ctx, evs...)
}

// normalizeSeats checks a client-supplied seat list and returns it sorted.
func normalizeSeats(seats []int) ([]int, error) {
	if len(seats) == 0 || len(seats) > seatmap.MaxBlockSize {
		return nil, fmt.Errorf("%w: between %d and %d seats required", ErrInvalid, seatmap.MinBlockSize, seatmap.MaxBlockSize)
	}
	out := append([]int(nil), seats...)
	sort.Ints(out)
	for i, n := range out {
		if n < 1 {
			return nil, fmt.Errorf("%w: seat number %d", ErrInvalid, n)
		}
		if i > 0 && out[i-1] == n {
			return nil, fmt.Errorf("%w: seat %d listed twice", ErrInvalid, n)
		}
	}
	return out, nil
}

// Finalize turns seats into reservations named displayName, falling back
// to actor when the name is blank.  It does not look at holds: an expired
// hold on a seat nobody else took still finalizes.  All inserts commit
// together or not at all.  On success actor's holds on the seats are
// removed.
func (s *BookingService) Finalize(ctx context.Context, actor, row string, seats []int, displayName string) (*Booked, error) {
	row = seatmap.NormalizeRow(row)
	if actor == "" {
		return nil, ErrForbidden
	}
	if row == "" {
		return nil, ErrInvalid
	}
	seats, err := normalizeSeats(seats)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = actor
	}
	release, err := s.enter(ctx, actor, row)
	if err != nil {
		metrics.Reservation(metrics.ResultInFlight)
		return nil, err
	}
	defer release()

	now := s.now()
	rsv := make([]model.Reservation, 0, len(seats))
	for _, n := range seats {
		rsv = append(rsv, model.Reservation{RowLabel: row, SeatNumber: n, ReservedBy: name, ReservedAt: now})
	}
	entry := s.log.WithFields(logrus.Fields{"actor": actor, "row": row, "seats": seats})

	cleared, err := s.reservations.ReserveBlock(ctx, rsv, actor)
	if err != nil {
		var se *repository.SeatError
		if errors.As(err, &se) && (errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrUnknownSeat)) {
			metrics.Reservation(metrics.ResultConflict)
			entry.WithField("seat", se.Seat).Info("finalize lost seat to another actor")
			return nil, &SeatConflictError{Op: "reserve", Row: row, Seat: se.Seat, Err: se.Err}
		}
		metrics.Reservation(metrics.ResultError)
		return nil, fmt.Errorf("reserve %s %v: %w", row, seats, err)
	}

	evs := make([]model.ChangeEvent, 0, len(rsv)+len(cleared))
	for _, r := range rsv {
		evs = append(evs, model.ReservationEvent(model.OpInsert, r, now))
	}
	for _, h := range cleared {
		evs = append(evs, model.HoldEvent(model.OpDelete, h, now))
	}
	s.publish(ctx, evs...)
	for _, r := range rsv {
		key := r.Key()
		s.audit.Record(ctx, actor, model.ActionReserve, &key, map[string]interface{}{"name": name, "block": seats})
	}
	metrics.Reservation(metrics.ResultOK)
	entry.Info("seats reserved")
	return &Booked{Row: row, Seats: seats, ReservedBy: name, ReservedAt: now}, nil
}

// ReleaseBlock deletes actor's own holds on seats and returns the seats
// that were released.  Holds owned by others are untouched.
func (s *BookingService) ReleaseBlock(ctx context.Context, actor, row string, seats []int) ([]int, error) {
	row = seatmap.NormalizeRow(row)
	if actor == "" {
		return nil, ErrForbidden
	}
	seats, err := normalizeSeats(seats)
	if err != nil {
		return nil, err
	}
	removed, err := s.holds.DeleteOwn(ctx, row, seats, actor)
	if err != nil {
		return nil, fmt.Errorf("release holds: %w", err)
	}
	now := s.now()
	out := make([]int, 0, len(removed))
	evs := make([]model.ChangeEvent, 0, len(removed))
	for _, h := range removed {
		out = append(out, h.SeatNumber)
		evs = append(evs, model.HoldEvent(model.OpDelete, h, now))
	}
	sort.Ints(out)
	s.publish(ctx, evs...)
	for _, h := range removed {
		key := h.Key()
		s.audit.Record(ctx, actor, model.ActionRelease, &key, map[string]interface{}{"block_id": h.BlockID})
	}
	return out, nil
}

// ExtendBlock gives actor's unexpired holds on seats a fresh full
// lifetime.  It returns repository.ErrNotFound when none qualified.
func (s *BookingService) ExtendBlock(ctx context.Context, actor, row string, seats []int) (*HeldBlock, error) {
	row = seatmap.NormalizeRow(row)
	if actor == "" {
		return nil, ErrForbidden
	}
	seats, err := normalizeSeats(seats)
	if err != nil {
		return nil, err
	}
	now := s.now()
	until := now.Add(s.holdFor)
	extended, err := s.holds.Extend(ctx, row, seats, actor, now, until)
	if err != nil {
		return nil, fmt.Errorf("extend holds: %w", err)
	}
	if len(extended) == 0 {
		return nil, repository.ErrNotFound
	}
	block := &HeldBlock{Row: row, ExpiresAt: until, BlockID: extended[0].BlockID}
	evs := make([]model.ChangeEvent, 0, len(extended))
	for _, h := range extended {
		block.Seats = append(block.Seats, h.SeatNumber)
		evs = append(evs, model.HoldEvent(model.OpUpdate, h, now))
	}
	sort.Ints(block.Seats)
	s.publish(ctx, evs...)
	for _, h := range extended {
		key := h.Key()
		s.audit.Record(ctx, actor, model.ActionExtend, &key, map[string]interface{}{"expires_at": until.UTC()})
	}
	return block, nil
}
