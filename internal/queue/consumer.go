package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditLogFile is the file, inside the configured directory, that receives
// one line per event.
const AuditLogFile = "donations.log"

// AuditConsumer appends donation events to an audit log.
type AuditConsumer struct {
	url    string
	logDir string
	log    *zap.Logger
}

// NewAuditConsumer creates a consumer for the broker at url writing to logDir.
func NewAuditConsumer(url, logDir string, log *zap.Logger) *AuditConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditConsumer{url: url, logDir: logDir, log: log.Named("audit-consumer")}
}

// Run connects to RabbitMQ, declares the durable donation queue and consumes
// it until ctx is cancelled, reconnecting with exponential backoff whenever
// the connection drops.  Messages that cannot be handled are rejected
// without requeue so a bad payload cannot loop.
func (a *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(a.url)
		if err != nil {
			a.log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = a.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (a *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		a.log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(DonationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(DonationQueue, "", false, false, false, false, nil)
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
			if err := a.handleMessage(d.Body); err != nil {
				a.log.Error("handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (a *AuditConsumer) handleMessage(body []byte) error {
	var ev DonationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(a.logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", a.logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(a.logDir, AuditLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAuditLine renders ev as a single human-readable line.
func FormatAuditLine(ev DonationEvent) string {
	switch ev.Type {
	case TypePurged:
		return fmt.Sprintf("[%s] All donations deleted | id=%s | deleted=%d\n", ev.OccurredAt, ev.ID, ev.DeletedCount)
	case TypeDeleted:
		return fmt.Sprintf("[%s] Donation deleted | id=%s | serial=%d | booklet=%d | unit=%s-%d-%d | amount=%.2f\n",
			ev.OccurredAt, ev.ID, ev.SerialNumber, ev.BookletNumber, ev.Block, ev.Floor, ev.QuarterNumber, ev.Amount)
	default:
		return fmt.Sprintf("[%s] Donation recorded | id=%s | serial=%d | booklet=%d | unit=%s-%d-%d | amount=%.2f | mode=%s\n",
			ev.OccurredAt, ev.ID, ev.SerialNumber, ev.BookletNumber, ev.Block, ev.Floor, ev.QuarterNumber, ev.Amount, ev.PaymentMode)
	}
}
