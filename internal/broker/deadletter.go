package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeadLetterSupervisor drains a queue's dead-letter exchange and republishes
// through its delay exchange with a decremented x-retries-left header,
// dropping a delivery once retries are exhausted. It generalizes the
// teacher's risk manager (internal/risk/manager.go) — which aggregates
// kill signals from independent sources and decides once, non-blockingly,
// whether to act — into a retry/drop decision made once per dead-lettered
// delivery instead of once per risk tick.
type DeadLetterSupervisor struct {
	conn   *Conn
	queue  QueueType
	logger *slog.Logger

	mu   sync.Mutex
	ch   *amqp.Channel
	msgs <-chan amqp.Delivery

	producer *Producer

	dropped int64 // PolicyDrop count, surfaced via metrics (spec §7)
}

// NewDeadLetterSupervisor declares a queue bound to q's dead-letter
// exchange and a producer on q's own exchange for delayed republish.
func NewDeadLetterSupervisor(conn *Conn, q QueueType, logger *slog.Logger) (*DeadLetterSupervisor, error) {
	if !q.Retryable() {
		return nil, fmt.Errorf("broker: %s has no retry policy, no dead-letter supervisor needed", q.ExchangeName())
	}
	producer, err := NewProducer(conn, q)
	if err != nil {
		return nil, err
	}
	s := &DeadLetterSupervisor{
		conn:     conn,
		queue:    q,
		logger:   logger.With("component", "broker.deadletter", "exchange", q.ExchangeName()),
		producer: producer,
	}
	var setupErr error
	conn.OnReconnect(func() {
		if err := s.setup(); err != nil {
			setupErr = err
		}
	})
	if setupErr != nil {
		return nil, setupErr
	}
	return s, nil
}

func (s *DeadLetterSupervisor) setup() error {
	ch, err := s.conn.Channel()
	if err != nil {
		return err
	}
	dlx := s.queue.DeadLetterExchangeName()
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("broker: declare dlx %s: %w", dlx, err)
	}
	queueName := dlx + ".retry"
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("broker: declare retry queue %s: %w", queueName, err)
	}
	if err := ch.QueueBind(q.Name, "", dlx, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("broker: bind retry queue %s: %w", q.Name, err)
	}
	if err := ch.Qos(64, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("broker: set qos on %s: %w", q.Name, err)
	}
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("broker: consume %s: %w", q.Name, err)
	}

	s.mu.Lock()
	old := s.ch
	s.ch = ch
	s.msgs = msgs
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// Run drains dead-lettered deliveries until ctx is cancelled, retrying each
// up to the queue's RetryPolicy.MaxTries with exponentially increasing
// delay, then dropping (spec §4.1, §7's PolicyDrop class).
func (s *DeadLetterSupervisor) Run(ctx context.Context) error {
	for {
		s.mu.Lock()
		msgs := s.msgs
		s.mu.Unlock()
		if msgs == nil {
			return fmt.Errorf("broker: dead-letter supervisor for %s not connected", s.queue.ExchangeName())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				continue
			}
			s.handle(ctx, d)
		}
	}
}

// retriesLeftFor computes the x-retries-left value for a dead-lettered
// delivery (spec §6): initialized to maxTries on first dead-lettering and
// only decremented on successive redeliveries. A delivery that has never
// carried the header gets maxTries unmodified for this first republish,
// not maxTries-1.
func retriesLeftFor(headers amqp.Table, maxTries int) int {
	if headers != nil {
		if v, ok := headers["x-retries-left"]; ok {
			if n, ok := toInt(v); ok {
				return n - 1
			}
		}
	}
	return maxTries
}

func (s *DeadLetterSupervisor) handle(ctx context.Context, d amqp.Delivery) {
	retriesLeft := retriesLeftFor(d.Headers, s.queue.Retry.MaxTries)

	if retriesLeft <= 0 {
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		s.logger.Warn("dropping message after exhausting retries", "max_tries", s.queue.Retry.MaxTries)
		d.Ack(false)
		return
	}

	delay := s.queue.Retry.Delay(retriesLeft)
	headers := amqp.Table{"x-retries-left": int32(retriesLeft)}
	if err := s.producer.PublishDelayed(ctx, delay, d.Body, headers); err != nil {
		s.logger.Error("failed to republish dead-lettered message, will redeliver", "error", err)
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

// Dropped returns the number of deliveries dropped after exhausting retries.
func (s *DeadLetterSupervisor) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close releases the supervisor's channel and producer.
func (s *DeadLetterSupervisor) Close() error {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()
	if ch != nil {
		ch.Close()
	}
	return s.producer.Close()
}
