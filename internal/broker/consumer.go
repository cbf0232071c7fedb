package broker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Delivery wraps one inbound message with its retry bookkeeping and the
// acknowledgement hooks the ingest core drives explicitly (spec §4.4.1's
// Received -> Decoded -> Applied -> Acked lifecycle), mirroring the
// explicit accept/reject the teacher's risk manager exercises over trade
// signals rather than ack-on-receipt.
type Delivery struct {
	Body        []byte
	RetriesLeft int // MaxTries on first delivery, decremented by the dead-letter supervisor

	raw amqp.Delivery
}

// Ack acknowledges successful processing.
func (d Delivery) Ack() error {
	return d.raw.Ack(false)
}

// Reject sends the delivery to its queue's dead-letter exchange (requeue
// is always false: retry is driven by the dead-letter supervisor's delayed
// republish, never RabbitMQ's own requeue-to-head).
func (d Delivery) Reject() error {
	return d.raw.Nack(false, false)
}

// Consumer pulls deliveries off one QueueType's queue at its configured
// prefetch, the generalization of the teacher's WSFeed dispatch loop
// (internal/exchange/ws.go) to a durable broker queue.
type Consumer struct {
	conn  *Conn
	queue QueueType

	mu   sync.Mutex
	ch   *amqp.Channel
	msgs <-chan amqp.Delivery
}

// NewConsumer declares the queue (binding it to its exchange, and to the
// dead-letter exchange if retryable) and sets the configured prefetch.
func NewConsumer(conn *Conn, queue QueueType) (*Consumer, error) {
	c := &Consumer{conn: conn, queue: queue}
	var setupErr error
	conn.OnReconnect(func() {
		if err := c.setup(); err != nil {
			setupErr = err
		}
	})
	if setupErr != nil {
		return nil, setupErr
	}
	return c, nil
}

func (c *Consumer) setup() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(c.queue.ExchangeName(), "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("broker: declare exchange %s: %w", c.queue.ExchangeName(), err)
	}

	args := amqp.Table{}
	if c.queue.MaxLength > 0 {
		args["x-max-length-bytes"] = c.queue.MaxLength
		args["x-overflow"] = "drop-head"
	}
	if c.queue.Retryable() {
		args["x-dead-letter-exchange"] = c.queue.DeadLetterExchangeName()
	}

	q, err := ch.QueueDeclare(c.queue.QueueName(), true, false, false, false, args)
	if err != nil {
		ch.Close()
		return fmt.Errorf("broker: declare queue %s: %w", c.queue.QueueName(), err)
	}
	if err := ch.QueueBind(q.Name, "", c.queue.ExchangeName(), false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("broker: bind queue %s: %w", q.Name, err)
	}
	if err := ch.Qos(c.queue.Prefetch, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("broker: set qos on %s: %w", q.Name, err)
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("broker: consume %s: %w", q.Name, err)
	}

	c.mu.Lock()
	old := c.ch
	c.ch = ch
	c.msgs = msgs
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// Next blocks until a delivery is available or ctx is cancelled.
func (c *Consumer) Next(ctx context.Context) (Delivery, error) {
	c.mu.Lock()
	msgs := c.msgs
	c.mu.Unlock()
	if msgs == nil {
		return Delivery{}, fmt.Errorf("broker: consumer for %s not connected", c.queue.QueueName())
	}
	select {
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	case raw, ok := <-msgs:
		if !ok {
			return Delivery{}, fmt.Errorf("broker: consumer channel for %s closed", c.queue.QueueName())
		}
		retriesLeft := maxTries(c.queue)
		if raw.Headers != nil {
			if v, ok := raw.Headers["x-retries-left"]; ok {
				if n, ok := toInt(v); ok {
					retriesLeft = n
				}
			}
		}
		return Delivery{Body: raw.Body, RetriesLeft: retriesLeft, raw: raw}, nil
	}
}

func maxTries(q QueueType) int {
	if q.Retry == nil {
		return 0
	}
	return q.Retry.MaxTries
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// Close releases the consumer's channel.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch == nil {
		return nil
	}
	return c.ch.Close()
}
