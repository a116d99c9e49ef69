package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// OrderLog appends order events to a file, one line per event.
type OrderLog struct {
    Path string
    mu   sync.Mutex
}

// Append writes one human-friendly line for ev.
func (l *OrderLog) Append(ev OrderCompletedEvent) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(FormatOrderLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatOrderLine renders the log line for an event.
func FormatOrderLine(ev OrderCompletedEvent) string {
    return fmt.Sprintf("[%s] Order completed | order_id=%d | customer_id=%d | email=%q | package=%q (id=%d, maps=%d) | total=%.2f | source=%s\n",
        ev.CompletedAt, ev.OrderID, ev.CustomerID, ev.CustomerEmail, ev.PackageName, ev.PackageID, ev.AllowedMaps, ev.Total, ev.Source)
}

// HandleMessage decodes a delivery body and appends it to the log.
func (l *OrderLog) HandleMessage(body []byte) error {
    var ev OrderCompletedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    return l.Append(ev)
}

// Consumer reads OrderCompletedQueue and writes every event to an OrderLog.
type Consumer struct {
    URL    string
    Log    *OrderLog
    Logger *slog.Logger
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// cancelled. Dial failures and closed channels are retried with a capped
// exponential backoff; undecodable messages are rejected without requeue.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Logger.Warn("order-consumer: dial failed", "error", err, "retry_in", backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Logger.Warn("order-consumer: consume loop ended; reconnecting", "error", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Logger.Warn("order-consumer: set QoS failed", "error", err)
    }
    if _, err := ch.QueueDeclare(OrderCompletedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(OrderCompletedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.Log.HandleMessage(d.Body); err != nil {
                c.Logger.Error("order-consumer: handle message failed", "error", err)
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-t.C:
        return true
    case <-ctx.Done():
        return false
    }
}
