package feed

import (
    "context"
    "sync"

    "github.com/iliyamo/venue-seating/internal/model"
)

// Local is an in-process feed for single-instance deployments.  Publish
// calls every subscribed handler synchronously.
type Local struct {
    mu       sync.RWMutex
    handlers []Handler
}

func NewLocal() *Local { return &Local{} }

// Subscribe registers h for every future event.
func (l *Local) Subscribe(h Handler) {
    l.mu.Lock()
    l.handlers = append(l.handlers, h)
    l.mu.Unlock()
}

func (l *Local) Publish(_ context.Context, ev model.ChangeEvent) error {
    l.mu.RLock()
    hs := append([]Handler(nil), l.handlers...)
    l.mu.RUnlock()
    for _, h := range hs {
        h(ev)
    }
    return nil
}
