package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPTransport publishes notifications as persistent JSON messages on a
// durable queue. A broken connection is redialed on the next Send.
type AMQPTransport struct {
	url    string
	queue  string
	logger *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPTransport dials url and declares queue.
func NewAMQPTransport(url, queue string, logger *slog.Logger) (*AMQPTransport, error) {
	t := &AMQPTransport{url: url, queue: queue, logger: logger}
	if err := t.connect(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *AMQPTransport) connect() error {
	conn, err := amqp.Dial(t.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(t.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare queue %s: %w", t.queue, err)
	}
	t.conn, t.ch = conn, ch
	return nil
}

// Send implements Transport.
func (t *AMQPTransport) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ch == nil || t.ch.IsClosed() {
		t.closeLocked()
		if err := t.connect(); err != nil {
			return err
		}
		t.logger.Info("amqp transport reconnected", "queue", t.queue)
	}

	err = t.ch.PublishWithContext(ctx, "", t.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Type:         string(n.Kind),
		Timestamp:    n.CreatedAt,
		Body:         body,
	})
	if err != nil {
		t.closeLocked()
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Close implements Transport.
func (t *AMQPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
	return nil
}

func (t *AMQPTransport) closeLocked() {
	if t.ch != nil {
		_ = t.ch.Close()
		t.ch = nil
	}
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
}
