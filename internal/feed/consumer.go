package feed

import (
    "context"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Consumer binds a private queue to the exchange and hands every decoded
// event to a handler.  Run keeps reconnecting until its context ends.
type Consumer struct {
    url     string
    handler Handler
    log     *logrus.Entry
    // MaxBackoff caps the wait between reconnect attempts.
    MaxBackoff time.Duration
}

func NewConsumer(url string, h Handler, log *logrus.Logger) *Consumer {
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &Consumer{url: url, handler: h, log: log.WithField("component", "feed-consumer"), MaxBackoff: 30 * time.Second}
}

// Run dials the broker and consumes until ctx is cancelled.  Dial failures
// back off exponentially from 1s up to MaxBackoff.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.WithError(err).WithField("retry_in", backoff).Warn("failed to dial broker")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            backoff = nextBackoff(backoff, c.MaxBackoff)
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.WithError(err).Warn("consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func nextBackoff(cur, max time.Duration) time.Duration {
    next := cur * 2
    if next > max {
        return max
    }
    return next
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.WithError(err).Warn("set QoS failed")
    }
    if err := declareExchange(ch); err != nil {
        return fmt.Errorf("exchange declare: %w", err)
    }
    q, err := ch.QueueDeclare("", false, true, true, false, nil)
    if err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    if err := ch.QueueBind(q.Name, "", ExchangeName, false, nil); err != nil {
        return fmt.Errorf("queue bind: %w", err)
    }
    msgs, err := ch.Consume(q.Name, "", false, true, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    c.log.WithField("queue", q.Name).Info("consuming change events")

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handle(d.Body); err != nil {
                c.log.WithError(err).Warn("dropping malformed change event")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handle(body []byte) error {
    ev, err := Decode(body)
    if err != nil {
        return err
    }
    c.handler(ev)
    return nil
}
