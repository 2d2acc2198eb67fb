package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// AuditConsumer reads roster and allocation events back from the broker
// and appends one human-readable line per event to <Dir>/audit.log.
type AuditConsumer struct {
    URL string
    Dir string
    Log *zap.Logger
}

// Run connects, declares both queues and consumes until ctx is done.  A
// lost connection is redialled with exponential backoff capped at 30s.
// Run only returns once ctx is cancelled.
func (a *AuditConsumer) Run(ctx context.Context) error {
    log := a.Log
    if log == nil {
        log = zap.NewNop()
    }
    backoff := time.Second
    for {
        conn, err := amqp.Dial(a.URL)
        if err != nil {
            log.Warn("audit-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = a.consume(ctx, conn, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("audit-consumer: consume loop ended; reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (a *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection, log *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("audit-consumer: set QoS failed", zap.Error(err))
    }

    type stream struct {
        queue string
        msgs  <-chan amqp.Delivery
    }
    var streams []stream
    for _, name := range []string{RosterChangedQueue, AllocationSavedQueue} {
        if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", name, err)
        }
        msgs, err := ch.Consume(name, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", name, err)
        }
        streams = append(streams, stream{queue: name, msgs: msgs})
    }

    roster, alloc := streams[0].msgs, streams[1].msgs
    for {
        var (
            d     amqp.Delivery
            ok    bool
            queue string
        )
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok = <-roster:
            queue = RosterChangedQueue
        case d, ok = <-alloc:
            queue = AllocationSavedQueue
        }
        if !ok {
            return errors.New("deliveries channel closed")
        }
        if err := a.Handle(queue, d.Body); err != nil {
            log.Error("audit-consumer: handle message failed", zap.String("queue", queue), zap.Error(err))
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
}

// Handle decodes one message from queue and appends its audit line.
func (a *AuditConsumer) Handle(queue string, body []byte) error {
    var line string
    switch queue {
    case RosterChangedQueue:
        var ev RosterChangedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        line = FormatRosterChanged(ev)
    case AllocationSavedQueue:
        var ev AllocationSavedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        line = FormatAllocationSaved(ev)
    default:
        return fmt.Errorf("unknown queue %q", queue)
    }
    return a.appendLine(line)
}

func (a *AuditConsumer) appendLine(line string) error {
    dir := a.Dir
    if dir == "" {
        dir = "logs"
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(dir, "audit.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line + "\n"); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatRosterChanged renders ev as a single audit line.
func FormatRosterChanged(ev RosterChangedEvent) string {
    tours := make([]string, 0, len(ev.Rosters))
    for id := range ev.Rosters {
        tours = append(tours, id)
    }
    sort.Strings(tours)
    rosters := make([]string, 0, len(tours))
    for _, id := range tours {
        rosters = append(rosters, fmt.Sprintf("%s=[%s]", id, strings.Join(ev.Rosters[id], ",")))
    }
    partial := ""
    if ev.Partial {
        partial = " | PARTIAL"
    }
    return fmt.Sprintf("[%s] Roster %s | product=%s | date=%s | reservations=[%s] | %s%s",
        ev.ChangedAt, ev.Action, ev.ProductID, ev.TourDate, strings.Join(ev.ReservationIDs, ","),
        strings.Join(rosters, " "), partial)
}

// FormatAllocationSaved renders ev as a single audit line.
func FormatAllocationSaved(ev AllocationSavedEvent) string {
    return fmt.Sprintf("[%s] Allocation %s | tour=%s | pool=%.2f | guide=%.4f%% | assistant=%.4f%% | op=%.4f%% | op_members=%d",
        ev.SavedAt, ev.Action, ev.TourID, ev.Pool, ev.GuidePercent, ev.AssistantPct, ev.OpPercent, ev.OpMembers)
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
