package purge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const QueueName = "listing.images.purge"

// QueuePurger publishes purge requests to a durable RabbitMQ queue. When the
// broker cannot be reached the request is handed to fallback.
type QueuePurger struct {
	url      string
	fallback Purger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewQueuePurger(url string, fallback Purger) *QueuePurger {
	return &QueuePurger{url: url, fallback: fallback}
}

func (p *QueuePurger) Purge(ctx context.Context, reason string, urls []string) {
	if len(urls) == 0 {
		return
	}
	if err := p.publish(ctx, Request{Reason: reason, URLs: urls, RequestedAt: time.Now().UTC()}); err != nil {
		slog.Error("rabbitmq: purge publish failed", "reason", reason, "count", len(urls), "err", err)
		if p.fallback != nil {
			p.fallback.Purge(ctx, reason, urls)
		}
	}
}

func (p *QueuePurger) publish(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channelLocked()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    req.RequestedAt,
		Body:         body,
	})
	if err != nil {
		p.resetLocked()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// channelLocked returns the cached channel, dialing again after a failure.
func (p *QueuePurger) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *QueuePurger) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *QueuePurger) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}
