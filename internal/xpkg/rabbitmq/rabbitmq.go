package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tableflow/internal/xpkg/config"
	"tableflow/internal/xpkg/logger"
)

// Exchange carries committed transition events between services.
const Exchange = "order_events"

const reconnectInterval = 5 * time.Second

type RabbitMQ struct {
	ctx   context.Context
	cfg   config.RabbitMQ
	mylog logger.Logger

	mu           sync.Mutex
	conn         *amqp.Connection
	ch           *amqp.Channel
	reconnecting bool
}

// Connect dials RabbitMQ and declares the order_events topic exchange.
func Connect(ctx context.Context, cfg config.RabbitMQ, mylog logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{ctx: ctx, cfg: cfg, mylog: mylog}
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		r.cfg.User, r.cfg.Password, r.cfg.Host, r.cfg.Port, r.cfg.VHost,
	))
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	err = ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()
	return nil
}

func (r *RabbitMQ) IsAlive() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	if r.ch == nil || r.ch.IsClosed() {
		return fmt.Errorf("rabbitmq channel is closed")
	}
	return nil
}

// Publish sends a JSON payload to the order_events exchange. On a lost
// connection it kicks off a background reconnect and reports the failure to
// the caller; callers treat delivery as best-effort.
func (r *RabbitMQ) Publish(ctx context.Context, routingKey string, body []byte) error {
	if err := r.IsAlive(); err != nil {
		go r.reconnect()
		return err
	}

	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()

	return ch.PublishWithContext(ctx, Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Subscribe binds a server-named exclusive queue to the exchange with the
// given routing pattern and starts consuming from it. When the underlying
// channel dies the consumer is re-established after reconnect; the returned
// channel closes only once ctx ends.
func (r *RabbitMQ) Subscribe(ctx context.Context, pattern, consumerName string) (<-chan amqp.Delivery, error) {
	deliveries, err := r.consume(ctx, pattern, consumerName)
	if err != nil {
		return nil, err
	}

	out := make(chan amqp.Delivery)
	go r.forward(ctx, pattern, deliveries, out, func() (<-chan amqp.Delivery, error) {
		r.reconnect()
		return r.consume(ctx, pattern, consumerName)
	})
	return out, nil
}

func (r *RabbitMQ) consume(ctx context.Context, pattern, consumerName string) (<-chan amqp.Delivery, error) {
	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()
	if ch == nil || ch.IsClosed() {
		return nil, fmt.Errorf("rabbitmq channel is closed")
	}

	q, err := ch.QueueDeclare(
		"",    // name (server generated)
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, pattern, Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return ch.ConsumeWithContext(ctx, q.Name, consumerName, false, false, false, false, nil)
}

// forward copies deliveries to out, re-running resubscribe whenever the
// source channel closes before ctx does.
func (r *RabbitMQ) forward(ctx context.Context, pattern string, deliveries <-chan amqp.Delivery, out chan<- amqp.Delivery, resubscribe func() (<-chan amqp.Delivery, error)) {
	defer close(out)
	log := r.mylog.Action("rabbitmq_consume")

	for {
		for d := range deliveries {
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		log.Warn("consumer channel closed, re-subscribing", "pattern", pattern)

		next, err := resubscribe()
		for err != nil {
			select {
			case <-time.After(reconnectInterval):
			case <-ctx.Done():
				return
			}
			next, err = resubscribe()
		}
		deliveries = next
	}
}

func (r *RabbitMQ) reconnect() {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	t := time.NewTicker(reconnectInterval)
	defer t.Stop()
	log := r.mylog.Action("rabbitmq_reconnect")

	for {
		select {
		case <-t.C:
			if err := r.connect(); err == nil {
				log.Info("rabbitmq reconnected")
				return
			}
			log.Warn("rabbitmq reconnect attempt failed")
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
