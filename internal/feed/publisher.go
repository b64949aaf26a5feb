package feed

import (
    "context"
    "errors"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/venue-seating/internal/model"
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
    PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
    Close() error
}

// dialFunc opens a connection and a channel with the exchange declared.
type dialFunc func() (amqpChannel, func() error, error)

// AMQPPublisher publishes change events to the fanout exchange over one
// long-lived channel.  A failed publish drops the channel; the next publish
// dials again.
type AMQPPublisher struct {
    mu        sync.Mutex
    dial      dialFunc
    ch        amqpChannel
    closeConn func() error
    log       *logrus.Entry
}

// NewAMQPPublisher connects to url and declares the exchange.
func NewAMQPPublisher(url string, log *logrus.Logger) (*AMQPPublisher, error) {
    p := newPublisher(dialExchange(url), log)
    p.mu.Lock()
    defer p.mu.Unlock()
    if err := p.connectLocked(); err != nil {
        return nil, err
    }
    return p, nil
}

func newPublisher(dial dialFunc, log *logrus.Logger) *AMQPPublisher {
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &AMQPPublisher{dial: dial, log: log.WithField("component", "feed-publisher")}
}

func dialExchange(url string) dialFunc {
    return func() (amqpChannel, func() error, error) {
        conn, err := amqp.Dial(url)
        if err != nil {
            return nil, nil, err
        }
        ch, err := conn.Channel()
        if err != nil {
            _ = conn.Close()
            return nil, nil, err
        }
        if err := declareExchange(ch); err != nil {
            _ = ch.Close()
            _ = conn.Close()
            return nil, nil, err
        }
        return ch, conn.Close, nil
    }
}

func declareExchange(ch *amqp.Channel) error {
    return ch.ExchangeDeclare(
        ExchangeName, // name
        "fanout",     // kind
        true,         // durable
        false,        // autoDelete
        false,        // internal
        false,        // noWait
        nil,          // args
    )
}

func (p *AMQPPublisher) connectLocked() error {
    ch, closeConn, err := p.dial()
    if err != nil {
        return err
    }
    p.ch, p.closeConn = ch, closeConn
    return nil
}

func (p *AMQPPublisher) dropLocked() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.closeConn != nil {
        _ = p.closeConn()
    }
    p.ch, p.closeConn = nil, nil
}

// Publish sends one event as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev model.ChangeEvent) error {
    body, err := Encode(ev)
    if err != nil {
        return err
    }
    msg := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Type:         ev.Entity + "." + ev.Op,
        Body:         body,
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch == nil {
        if err := p.connectLocked(); err != nil {
            return err
        }
    }
    if err := p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, msg); err != nil {
        p.log.WithError(err).WithFields(logrus.Fields{"row": ev.Row, "seat": ev.Seat}).Warn("publish failed; dropping channel")
        p.dropLocked()
        return err
    }
    return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch == nil {
        return errors.New("publisher already closed")
    }
    p.dropLocked()
    return nil
}
