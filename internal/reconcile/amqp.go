package reconcile

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

// AMQPDispatcher publishes task payloads to a RabbitMQ exchange; the task
// target is used as the routing key. The connection is opened lazily and
// reopened after a broker failure.
type AMQPDispatcher struct {
	url      string
	exchange string
	logger   *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPDispatcher(url, exchange string, logger *zap.Logger) *AMQPDispatcher {
	return &AMQPDispatcher{
		url:      url,
		exchange: exchange,
		logger:   logger,
	}
}

func (d *AMQPDispatcher) channel() (*amqp.Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ch != nil && !d.conn.IsClosed() {
		return d.ch, nil
	}

	conn, err := amqp.Dial(d.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(d.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	d.conn = conn
	d.ch = ch
	return ch, nil
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, task *domain.ReconciliationTask) error {
	ch, err := d.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, d.exchange, task.Target, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    task.ID.String(),
		Body:         []byte(task.Payload),
	})
	if err != nil {
		// Drop the cached channel so the next attempt redials.
		d.mu.Lock()
		d.ch = nil
		d.mu.Unlock()
		return fmt.Errorf("failed to publish: %w", err)
	}
	return nil
}

// Close shuts the broker connection down.
func (d *AMQPDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ch != nil {
		d.ch.Close()
		d.ch = nil
	}
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}
