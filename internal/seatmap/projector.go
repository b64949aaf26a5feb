package seatmap

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-seating/internal/model"
)

// Source produces a fresh Availability Map from the stores.
type Source interface {
	Snapshot(ctx context.Context) (*Map, error)
}

// Projector keeps a live Availability Map consistent with change events
// and periodic reloads.  All mutation goes through Apply and Reload.
type Projector struct {
	mu        sync.RWMutex
	m         *Map
	src       Source
	listeners []func(model.ChangeEvent)
	onReload  []func(*Map)
	log       *logrus.Entry

	// Events applied while a reload is reading its snapshot.  seq numbers
	// every applied event; a reload replays the ones after its start seq
	// onto the fresh map before swapping it in.
	reloading int
	seq       uint64
	replay    []sequenced
}

type sequenced struct {
	seq uint64
	ev  model.ChangeEvent
}

// NewProjector returns a projector with an empty map.  Call Reload to
// populate it.
func NewProjector(src Source, log *logrus.Logger) *Projector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Projector{
		m:   NewMap(nil),
		src: src,
		log: log.WithField("component", "projector"),
	}
}

// OnApply registers fn to be called with every event that changed the map.
// Listeners run after the lock is released.  Register before Run.
func (p *Projector) OnApply(fn func(model.ChangeEvent)) {
	p.listeners = append(p.listeners, fn)
}

// OnReload registers fn to be called with a copy of the map after every
// successful reload.
func (p *Projector) OnReload(fn func(*Map)) {
	p.onReload = append(p.onReload, fn)
}

// Snapshot returns a copy of the current map.
func (p *Projector) Snapshot() *Map {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.m.Clone()
}

// Apply patches the map with one change event and reports whether the map
// changed.  A reservation always wins: reservation inserts and updates mark
// the seat taken, and hold events never override a taken seat.  Hold
// deletes free a held seat only when the deleted hold is the one the map
// knows about.
func (p *Projector) Apply(ev model.ChangeEvent) bool {
	p.mu.Lock()
	changed := apply(p.m, ev)
	if p.reloading > 0 {
		p.seq++
		p.replay = append(p.replay, sequenced{seq: p.seq, ev: ev})
	}
	p.mu.Unlock()

	if !changed {
		return false
	}
	for _, fn := range p.listeners {
		fn(ev)
	}
	return true
}

func apply(m *Map, ev model.ChangeEvent) bool {
	key := model.SeatKey{Row: NormalizeRow(ev.Row), Number: ev.Seat}
	switch ev.Entity {
	case model.EntityReservation:
		switch ev.Op {
		case model.OpInsert, model.OpUpdate:
			return m.markTaken(key, ev.ReservedBy)
		case model.OpDelete:
			if cur, ok := m.seats[key]; ok && cur.Status == model.StatusTaken {
				return m.markAvailable(key)
			}
		}
	case model.EntityHold:
		switch ev.Op {
		case model.OpInsert, model.OpUpdate:
			var exp time.Time
			if ev.ExpiresAt != nil {
				exp = *ev.ExpiresAt
			}
			return m.markHeld(key, ev.HeldBy, exp)
		case model.OpDelete:
			cur, ok := m.seats[key]
			if ok && cur.Status == model.StatusHeld && sameHolder(cur.HeldBy, ev.HeldBy) {
				return m.markAvailable(key)
			}
		}
	}
	return false
}

func sameHolder(known, deleted string) bool {
	if known == "" || deleted == "" {
		return true
	}
	return strings.EqualFold(known, deleted)
}

// Reload replaces the map with a fresh snapshot from the source.  Events
// applied while the snapshot is being read are replayed onto it, so a
// change that lands mid-reload is not lost.  On error the last good map is
// kept.
func (p *Projector) Reload(ctx context.Context) error {
	p.mu.Lock()
	p.reloading++
	start := p.seq
	p.mu.Unlock()

	m, err := p.src.Snapshot(ctx)

	p.mu.Lock()
	if err == nil {
		for _, r := range p.replay {
			if r.seq > start {
				apply(m, r.ev)
			}
		}
		p.m = m
	}
	p.reloading--
	if p.reloading == 0 {
		p.replay = nil
	}
	var cp *Map
	if err == nil {
		cp = m.Clone()
	}
	p.mu.Unlock()

	if err != nil {
		p.log.WithError(err).Warn("reload failed; keeping last known map")
		return err
	}
	for _, fn := range p.onReload {
		fn(cp.Clone())
	}
	return nil
}

// Run reloads the map every interval until ctx is done.  The interval is
// the staleness bound for changes that never reach the feed.
func (p *Projector) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.log.WithField("interval", interval).Info("projector reload loop started")
	for {
		select {
		case <-ctx.Done():
			p.log.Info("projector reload loop stopped")
			return
		case <-ticker.C:
			_ = p.Reload(ctx)
		}
	}
}
