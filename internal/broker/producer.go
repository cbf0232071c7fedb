package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Producer publishes onto one QueueType's exchange with publisher confirms,
// the generalization of the teacher's resty-retried REST calls
// (internal/exchange/client.go) to a confirmed AMQP publish.
type Producer struct {
	conn  *Conn
	queue QueueType

	mu sync.Mutex
	ch *amqp.Channel
}

// NewProducer declares the exchange (and, for a retryable queue, the
// dead-letter and delay exchanges it depends on) and returns a Producer
// ready to publish. Topology is re-declared automatically on reconnect.
func NewProducer(conn *Conn, queue QueueType) (*Producer, error) {
	p := &Producer{conn: conn, queue: queue}
	var setupErr error
	conn.OnReconnect(func() {
		if err := p.setup(); err != nil {
			setupErr = err
		}
	})
	if setupErr != nil {
		return nil, setupErr
	}
	return p, nil
}

func (p *Producer) setup() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return fmt.Errorf("broker: enable confirms: %w", err)
	}
	if err := ch.ExchangeDeclare(p.queue.ExchangeName(), "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("broker: declare exchange %s: %w", p.queue.ExchangeName(), err)
	}
	if p.queue.Retryable() {
		if err := declareRetryTopology(ch, p.queue); err != nil {
			ch.Close()
			return err
		}
	}

	p.mu.Lock()
	old := p.ch
	p.ch = ch
	p.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// declareRetryTopology declares the dead-letter exchange and the delayed
// x-delayed-message exchange used for exponential retry (spec §4.1, §6). The
// delay exchange requires the rabbitmq-delayed-message-exchange plugin.
func declareRetryTopology(ch *amqp.Channel, q QueueType) error {
	dlx := q.DeadLetterExchangeName()
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("broker: declare dlx %s: %w", dlx, err)
	}
	delay := q.DelayExchangeName()
	args := amqp.Table{"x-delayed-type": "fanout"}
	if err := ch.ExchangeDeclare(delay, "x-delayed-message", true, false, false, false, args); err != nil {
		return fmt.Errorf("broker: declare delay exchange %s: %w", delay, err)
	}
	// The delay exchange redelivers back onto the original exchange once
	// the x-delay elapses.
	if err := ch.ExchangeBind(q.ExchangeName(), "", delay, false, nil); err != nil {
		return fmt.Errorf("broker: bind delay exchange %s -> %s: %w", delay, q.ExchangeName(), err)
	}
	return nil
}

// Publish sends body as a persistent message and blocks for the broker's
// publisher confirm, surfacing a TransientTransportError-class failure on
// timeout or nack (spec §7).
func (p *Producer) Publish(ctx context.Context, body []byte, headers amqp.Table) error {
	return p.PublishTo(ctx, "", body, headers)
}

// PublishTo publishes body with an explicit routing key (ignored for
// fanout exchanges, required for the delay-exchange republish path).
func (p *Producer) PublishTo(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("broker: producer for %s not connected", p.queue.ExchangeName())
	}

	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	err := ch.PublishWithContext(ctx, p.queue.ExchangeName(), routingKey, true, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/octet-stream",
		Body:         body,
		Headers:      headers,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("broker: publish to %s: %w", p.queue.ExchangeName(), err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case conf, ok := <-confirms:
		if !ok || !conf.Ack {
			return fmt.Errorf("broker: publish to %s not confirmed", p.queue.ExchangeName())
		}
		return nil
	}
}

// PublishDelayed republishes body through the delay exchange with the
// x-delay header set to delay (milliseconds), the retry mechanism described
// in spec §4.1.
func (p *Producer) PublishDelayed(ctx context.Context, delay time.Duration, body []byte, headers amqp.Table) error {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("broker: producer for %s not connected", p.queue.ExchangeName())
	}
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-delay"] = delay.Milliseconds()

	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	err := ch.PublishWithContext(ctx, p.queue.DelayExchangeName(), "", true, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/octet-stream",
		Body:         body,
		Headers:      headers,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("broker: publish delayed to %s: %w", p.queue.DelayExchangeName(), err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case conf, ok := <-confirms:
		if !ok || !conf.Ack {
			return fmt.Errorf("broker: delayed publish to %s not confirmed", p.queue.DelayExchangeName())
		}
		return nil
	}
}

// Close releases the producer's channel.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	return p.ch.Close()
}
