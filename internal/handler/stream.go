package handler

import (
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/venue-seating/internal/feed"
    "github.com/iliyamo/venue-seating/internal/model"
)

// Subscriber is satisfied by *feed.Hub.
type Subscriber interface {
    Subscribe() (<-chan model.ChangeEvent, func())
}

// Stream handles GET /v1/seats/stream.  It writes every change the
// projector applies as a server-sent event named "change" until the client
// goes away.  A map reload is sent as an event named "reload"; clients
// should refetch the seats they show.  A comment line is sent every keepAlive to hold the
// connection open through proxies.
func Stream(hub Subscriber, keepAlive time.Duration) echo.HandlerFunc {
    if keepAlive <= 0 {
        keepAlive = 25 * time.Second
    }
    return func(c echo.Context) error {
        events, cancel := hub.Subscribe()
        defer cancel()

        res := c.Response()
        res.Header().Set(echo.HeaderContentType, "text/event-stream")
        res.Header().Set(echo.HeaderCacheControl, "no-cache")
        res.Header().Set(echo.HeaderConnection, "keep-alive")
        res.Header().Set("X-Accel-Buffering", "no")
        res.WriteHeader(http.StatusOK)
        res.Flush()

        ticker := time.NewTicker(keepAlive)
        defer ticker.Stop()
        ctx := c.Request().Context()
        for {
            select {
            case <-ctx.Done():
                return nil
            case ev, ok := <-events:
                if !ok {
                    return nil
                }
                data, err := feed.Encode(ev)
                if err != nil {
                    continue
                }
                name := "change"
                if ev.Entity == model.EntityMap {
                    name = model.OpReload
                }
                if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", name, data); err != nil {
                    return nil
                }
                res.Flush()
            case <-ticker.C:
                if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
                    return nil
                }
                res.Flush()
            }
        }
    }
}
