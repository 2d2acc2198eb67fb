// Package queue_publisher publishes roster and allocation events to
// RabbitMQ.  Errors are logged and returned so callers can ignore them
// without interrupting the request that produced the event.
package queue_publisher

import (
    "context"
    "encoding/json"
    "errors"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    q "github.com/iliyamo/tour-backoffice/internal/queue"
)

// ErrDisabled is returned by a Publisher built with an empty URL.
var ErrDisabled = errors.New("event publishing disabled")

// Publisher keeps one broker connection and opens a channel per message.
// A broken connection is redialled on the next publish.
type Publisher struct {
    url  string
    log  *zap.Logger
    mu   sync.Mutex
    conn *amqp.Connection
}

// New returns a Publisher for the broker at url.  Nothing is dialled until
// the first publish.
func New(url string, log *zap.Logger) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{url: url, log: log}
}

// PublishRosterChanged sends ev to the tour.roster.changed queue.
func (p *Publisher) PublishRosterChanged(ctx context.Context, ev q.RosterChangedEvent) error {
    return p.publish(ctx, q.RosterChangedQueue, ev)
}

// PublishAllocationSaved sends ev to the tour.allocation.saved queue.
func (p *Publisher) PublishAllocationSaved(ctx context.Context, ev q.AllocationSavedEvent) error {
    return p.publish(ctx, q.AllocationSavedQueue, ev)
}

// Close closes the broker connection if one is open.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil || p.conn.IsClosed() {
        return nil
    }
    err := p.conn.Close()
    p.conn = nil
    return err
}

func (p *Publisher) publish(ctx context.Context, queue string, event interface{}) error {
    if p.url == "" {
        return ErrDisabled
    }
    body, err := json.Marshal(event)
    if err != nil {
        p.log.Error("rabbitmq: marshal event failed", zap.String("queue", queue), zap.Error(err))
        return err
    }

    ch, err := p.channel()
    if err != nil {
        p.log.Warn("rabbitmq: channel open failed", zap.String("queue", queue), zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        p.log.Warn("rabbitmq: queue declare failed", zap.String("queue", queue), zap.Error(err))
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
        p.log.Warn("rabbitmq: publish failed", zap.String("queue", queue), zap.Error(err))
        return err
    }
    p.log.Debug("rabbitmq: event published", zap.String("queue", queue), zap.Int("bytes", len(body)))
    return nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil || p.conn.IsClosed() {
        conn, err := amqp.Dial(p.url)
        if err != nil {
            return nil, err
        }
        p.conn = conn
    }
    ch, err := p.conn.Channel()
    if err != nil {
        // Drop the connection so the next publish redials.
        _ = p.conn.Close()
        p.conn = nil
        return nil, err
    }
    return ch, nil
}
