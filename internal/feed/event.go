// Package feed carries seat change events between instances.  Events go out
// on a RabbitMQ fanout exchange, or through an in-process feed when no
// broker is configured, and come back in to the availability projector and
// the browser stream hub.
package feed

import (
    "context"
    "encoding/json"
    "fmt"

    "github.com/iliyamo/venue-seating/internal/model"
)

// ExchangeName is the durable fanout exchange every instance binds to.
const ExchangeName = "seating.changes"

// Publisher sends change events to every instance.  Publish failures are
// the caller's to log; they never undo the write that produced the event.
type Publisher interface {
    Publish(ctx context.Context, ev model.ChangeEvent) error
}

// Handler receives decoded change events.
type Handler func(model.ChangeEvent)

// Encode serialises an event for the wire.
func Encode(ev model.ChangeEvent) ([]byte, error) { return json.Marshal(ev) }

// Decode parses and checks an event received from the wire.
func Decode(body []byte) (model.ChangeEvent, error) {
    var ev model.ChangeEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return ev, fmt.Errorf("unmarshal: %w", err)
    }
    switch ev.Entity {
    case model.EntityHold, model.EntityReservation:
    default:
        return ev, fmt.Errorf("unknown entity %q", ev.Entity)
    }
    switch ev.Op {
    case model.OpInsert, model.OpUpdate, model.OpDelete:
    default:
        return ev, fmt.Errorf("unknown op %q", ev.Op)
    }
    if ev.Row == "" || ev.Seat < 1 {
        return ev, fmt.Errorf("event without seat: %q-%d", ev.Row, ev.Seat)
    }
    return ev, nil
}
