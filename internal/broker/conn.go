package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Conn owns one long-lived AMQP connection with automatic reconnect and
// exponential backoff, mirroring the teacher's WSFeed.Run reconnect loop
// (internal/exchange/ws.go) but for a broker connection shared by every
// producer and consumer instead of a single socket.
type Conn struct {
	url       string
	baseDelay time.Duration
	maxDelay  time.Duration
	logger    *slog.Logger

	mu       sync.RWMutex
	conn     *amqp.Connection
	closed   bool
	onReconn []func()

	reconnects int64 // monotonic counter surfaced via metrics (spec §7)
}

// Dial opens the initial connection and starts the reconnect watchdog.
func Dial(ctx context.Context, url string, baseDelay, maxDelay time.Duration, logger *slog.Logger) (*Conn, error) {
	c := &Conn{
		url:       url,
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
		logger:    logger.With("component", "broker.conn"),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	go c.watch(ctx)
	return c, nil
}

func (c *Conn) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("broker: dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	hooks := append([]func(){}, c.onReconn...)
	c.mu.Unlock()
	for _, h := range hooks {
		h()
	}
	return nil
}

// watch blocks until ctx is cancelled, reconnecting with exponential
// backoff (capped at maxDelay) whenever the connection drops, the same
// shape as the teacher's WSFeed.Run backoff loop.
func (c *Conn) watch(ctx context.Context) {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		closeCh := make(chan *amqp.Error, 1)
		conn.NotifyClose(closeCh)

		select {
		case <-ctx.Done():
			return
		case err := <-closeCh:
			if err == nil {
				return // graceful Close(), not a fault
			}
			c.logger.Warn("broker connection lost, reconnecting", "error", err)
		}

		delay := c.baseDelay
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			c.mu.Lock()
			c.reconnects++
			c.mu.Unlock()

			if err := c.connect(); err != nil {
				c.logger.Warn("broker reconnect failed", "error", err, "retry_in", delay)
				delay *= 2
				if delay > c.maxDelay {
					delay = c.maxDelay
				}
				continue
			}
			c.logger.Info("broker reconnected")
			break
		}
	}
}

// Channel opens a fresh AMQP channel on the current connection. Channels
// are cheap and created per producer/consumer (spec §5: "channels are
// cheap and may be created per producer/consumer").
func (c *Conn) Channel() (*amqp.Channel, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("broker: not connected")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("broker: open channel: %w", err)
	}
	return ch, nil
}

// OnReconnect registers a hook run (on a new goroutine-free call) every
// time the connection is (re-)established, including the initial Dial.
// Producers and consumers use this to re-declare their topology.
func (c *Conn) OnReconnect(fn func()) {
	c.mu.Lock()
	c.onReconn = append(c.onReconn, fn)
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		fn()
	}
}

// Reconnects returns the number of times the connection has been
// re-established, one of the metric counters in spec §7.
func (c *Conn) Reconnects() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnects
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
