// Package metrics declares the Prometheus collectors for seat operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iliyamo/venue-seating/internal/model"
)

// Hold and reservation attempt results.
const (
	ResultOK         = "ok"
	ResultNoCapacity = "no_capacity"
	ResultConflict   = "conflict"
	ResultInFlight   = "in_flight"
	ResultError      = "error"
)

var (
	holdAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_hold_attempts_total",
			Help: "Hold acquisition attempts by result",
		},
		[]string{"result"},
	)

	holdConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seat_hold_conflicts_total",
			Help: "Hold attempts rolled back because another actor won a seat",
		},
	)

	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_reservations_total",
			Help: "Finalization attempts by result",
		},
		[]string{"result"},
	)

	holdsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seat_holds_expired_total",
			Help: "Holds removed by lazy expiry",
		},
	)

	feedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_feed_events_total",
			Help: "Change events applied to the availability map",
		},
		[]string{"entity", "op"},
	)

	availability = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seat_availability",
			Help: "Seats per status at the last reload",
		},
		[]string{"status"},
	)

	blockSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seat_hold_block_size",
			Help:    "Seats per successful hold",
			Buckets: prometheus.LinearBuckets(1, 1, 6),
		},
	)
)

func HoldAttempt(result string) { holdAttempts.WithLabelValues(result).Inc() }

func HoldConflict() { holdConflicts.Inc() }

func HoldBlock(n int) { blockSize.Observe(float64(n)) }

func Reservation(result string) { reservations.WithLabelValues(result).Inc() }

func HoldsExpired(n int) {
	if n > 0 {
		holdsExpired.Add(float64(n))
	}
}

func FeedEvent(ev model.ChangeEvent) { feedEvents.WithLabelValues(ev.Entity, ev.Op).Inc() }

// Availability sets the per-status gauge from a status count.
func Availability(counts map[model.Status]int) {
	for status, n := range counts {
		availability.WithLabelValues(string(status)).Set(float64(n))
	}
}
