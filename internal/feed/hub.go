package feed

import (
    "sync"

    "github.com/iliyamo/venue-seating/internal/model"
)

// Hub fans events out to stream subscribers.  A subscriber whose buffer is
// full misses the event; Broadcast never blocks.
type Hub struct {
    mu   sync.Mutex
    subs map[chan model.ChangeEvent]struct{}
    buf  int
}

func NewHub(buffer int) *Hub {
    if buffer <= 0 {
        buffer = 64
    }
    return &Hub{subs: make(map[chan model.ChangeEvent]struct{}), buf: buffer}
}

// Subscribe returns a channel of future events and a func that ends the
// subscription and closes the channel.
func (h *Hub) Subscribe() (<-chan model.ChangeEvent, func()) {
    ch := make(chan model.ChangeEvent, h.buf)
    h.mu.Lock()
    h.subs[ch] = struct{}{}
    h.mu.Unlock()
    var once sync.Once
    return ch, func() {
        once.Do(func() {
            h.mu.Lock()
            delete(h.subs, ch)
            h.mu.Unlock()
            close(ch)
        })
    }
}

// Broadcast delivers ev to every subscriber with room for it and returns
// how many received it.
func (h *Hub) Broadcast(ev model.ChangeEvent) int {
    h.mu.Lock()
    defer h.mu.Unlock()
    n := 0
    for ch := range h.subs {
        select {
        case ch <- ev:
            n++
        default:
        }
    }
    return n
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
    h.mu.Lock()
    defer h.mu.Unlock()
    return len(h.subs)
}
