package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rideshare/pkg/config"
	"rideshare/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	maxRetries    = 10
	retryInterval = 3 * time.Second
	maxBackoff    = 30 * time.Second
)

// Exchange and queue names shared by publishers and consumers.
const (
	ExchangeRides         = "ride_topic"
	ExchangeDrivers       = "driver_topic"
	ExchangeNotifications = "notifications"

	QueueRideStatus      = "ride_status"
	QueueDriverResponses = "driver_responses"
	QueueNotifications   = "notifications_outbox"
)

// ErrNotConnected is returned while the connection is being re-established.
var ErrNotConnected = errors.New("rabbitmq not connected")

type exchange struct {
	name, kind string
}

type binding struct {
	queue, key, exchange string
}

var (
	exchanges = []exchange{
		{ExchangeRides, amqp.ExchangeTopic},
		{ExchangeDrivers, amqp.ExchangeTopic},
		{ExchangeNotifications, amqp.ExchangeTopic},
	}
	queues   = []string{QueueRideStatus, QueueDriverResponses, QueueNotifications}
	bindings = []binding{
		{QueueRideStatus, "ride.*", ExchangeRides},
		{QueueRideStatus, "request.*", ExchangeRides},
		{QueueRideStatus, "payment.*", ExchangeRides},
		{QueueDriverResponses, "driver.response.*", ExchangeDrivers},
		{QueueNotifications, "notify.*", ExchangeNotifications},
	}
)

// Connection wraps an amqp.Connection with a publisher channel and
// reconnects with backoff when the broker drops it.
type Connection struct {
	log         logger.Logger
	dsn         string
	conn        *amqp.Connection
	pubChannel  *amqp.Channel
	mu          sync.RWMutex // guards conn, pubChannel and connected
	connected   bool
	notifyClose chan *amqp.Error
	done        chan struct{}
}

// DSN builds the AMQP URL from configuration.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		cfg.RabbitMQ.User,
		cfg.RabbitMQ.Password,
		cfg.RabbitMQ.Host,
		cfg.RabbitMQ.Port,
	)
}

// NewConnection dials the broker, retrying a bounded number of times, and
// declares the topology.
func NewConnection(ctx context.Context, cfg *config.Config, log logger.Logger) (*Connection, error) {
	c := &Connection{
		log:  log.WithFields(logger.LogFields{"component": "rabbitmq"}),
		dsn:  DSN(cfg),
		done: make(chan struct{}),
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		if err = c.connect(); err == nil {
			break
		}
		c.log.Error("rabbitmq_connect_retry", fmt.Errorf("connect to rabbitmq (attempt %d/%d): %w", i+1, maxRetries, err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after %d retries: %w", maxRetries, err)
	}

	if err := c.SetupTopology(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup rabbitmq topology: %w", err)
	}
	c.log.Info("rabbitmq_connect", "RabbitMQ connection established")

	go c.reconnectLoop()
	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.dsn)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open publisher channel: %w", err)
	}

	c.conn = conn
	c.pubChannel = ch
	c.connected = true
	c.notifyClose = conn.NotifyClose(make(chan *amqp.Error, 1))
	return nil
}

func (c *Connection) reconnectLoop() {
	for {
		select {
		case <-c.done:
			return
		case amqpErr, ok := <-c.notifyClose:
			if !ok || amqpErr == nil {
				// graceful close
				return
			}
			c.log.Error("rabbitmq_disconnect", fmt.Errorf("connection lost: %w", amqpErr))
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()

			if !c.reconnect() {
				return
			}
		}
	}
}

// reconnect retries until it succeeds or the connection is closed. It
// reports whether the loop should keep watching.
func (c *Connection) reconnect() bool {
	backoff := time.Second
	for {
		select {
		case <-c.done:
			return false
		case <-time.After(backoff):
		}

		if err := c.connect(); err != nil {
			c.log.Error("rabbitmq_reconnect_failed", err)
			backoff = backoff * 3 / 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		if err := c.SetupTopology(); err != nil {
			c.log.Error("rabbitmq_reconnect_setup_failed", err)
			continue
		}
		c.log.Info("rabbitmq_reconnect_success", "RabbitMQ connection re-established")
		return true
	}
}

// SetupTopology declares the exchanges, queues and bindings the service uses.
func (c *Connection) SetupTopology() error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	ch, err := c.conn.Channel()
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("open setup channel: %w", err)
	}
	defer ch.Close()

	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.key, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// Publish sends a persistent JSON message. It is safe for concurrent use.
func (c *Connection) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return ErrNotConnected
	}
	return c.pubChannel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
}

// Consume delivers messages from queue to handler with manual acks until ctx
// is cancelled or the connection is closed. A dropped channel is reopened.
// Each delivery runs on its own goroutine; handler must ack or nack it.
func (c *Connection) Consume(ctx context.Context, queue string, handler func(amqp.Delivery)) {
	log := c.log.WithFields(logger.LogFields{"queue": queue})

	go func() {
		for {
			ch, msgs, err := c.openConsumer(queue)
			if err != nil {
				log.Error("consumer_open_failed", err)
				select {
				case <-ctx.Done():
					return
				case <-c.done:
					return
				case <-time.After(retryInterval):
				}
				continue
			}
			log.Info("consumer_running", "Consumer started")

			if stop := c.pump(ctx, ch, msgs, handler); stop {
				ch.Close()
				log.Info("consumer_shutdown", "Consumer stopped")
				return
			}
			log.Warn("consumer_restart", "Consumer channel closed, reopening")
		}
	}()
}

func (c *Connection) openConsumer(queue string) (*amqp.Channel, <-chan amqp.Delivery, error) {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return nil, nil, ErrNotConnected
	}
	ch, err := c.conn.Channel()
	c.mu.RUnlock()
	if err != nil {
		return nil, nil, fmt.Errorf("open consumer channel: %w", err)
	}

	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return ch, msgs, nil
}

// pump reports true when consumption should stop for good.
func (c *Connection) pump(ctx context.Context, ch *amqp.Channel, msgs <-chan amqp.Delivery, handler func(amqp.Delivery)) bool {
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return true
		case <-c.done:
			return true
		case <-closed:
			return false
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			go handler(msg)
		}
	}
}

// Close stops the reconnect loop and closes the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}
	c.connected = false
	if c.pubChannel != nil {
		c.pubChannel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.log.Info("rabbitmq_close", "RabbitMQ connection closed")
}
