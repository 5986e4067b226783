// Package amqp consumes listing events published by profile management on
// a RabbitMQ topic exchange and hands them to the refresh pipeline.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/pkg/logger"
	"github.com/okian/skillswap/pkg/metrics"
)

const (
	DefaultExchange   = "profile.events"
	DefaultQueue      = "skillswap.listing-events"
	DefaultRoutingKey = "listing.*"
	defaultPrefetch   = 10
)

// Delivery outcomes reported to metrics.
const (
	OutcomeAck    = "ack"
	OutcomeNack   = "nack"
	OutcomeReject = "reject"
)

// Sink accepts listing events. Errors wrapping model.ErrInvalidEvent are
// permanent; any other error is retried by redelivery.
type Sink interface {
	SubmitListingEvent(ctx context.Context, e model.ListingEvent) (bool, error)
}

// Config locates the broker and names the topology.
type Config struct {
	URL        string
	Exchange   string
	Queue      string
	RoutingKey string
	Prefetch   int
}

// Consumer reads listing events off a durable queue bound to the exchange.
type Consumer struct {
	cfg     Config
	sink    Sink
	conn    *amqp091.Connection
	channel *amqp091.Channel

	shutdown  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Consumer.
type Option func(*Consumer)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Consumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConsumer builds a consumer without connecting.
func NewConsumer(cfg Config, sink Sink, opts ...Option) *Consumer {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = DefaultRoutingKey
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = defaultPrefetch
	}
	c := &Consumer{
		cfg:      cfg,
		sink:     sink,
		shutdown: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("amqp")
	}
	return c
}

// Start dials the broker, declares the topology and starts consuming.
func (c *Consumer) Start(ctx context.Context) error {
	conn, err := amqp091.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	c.conn, c.channel = conn, ch

	msgs, err := c.declare()
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(ctx, msgs)
	}()

	c.logger.Info(ctx, "listing event consumer started",
		logger.String("exchange", c.cfg.Exchange),
		logger.String("queue", c.cfg.Queue),
		logger.String("routingKey", c.cfg.RoutingKey),
	)
	return nil
}

func (c *Consumer) declare() (<-chan amqp091.Delivery, error) {
	if err := c.channel.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	if err := c.channel.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", c.cfg.Exchange, err)
	}
	if _, err := c.channel.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", c.cfg.Queue, err)
	}
	if err := c.channel.QueueBind(c.cfg.Queue, c.cfg.RoutingKey, c.cfg.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s to %s: %w", c.cfg.Queue, c.cfg.Exchange, err)
	}
	msgs, err := c.channel.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("register consumer: %w", err)
	}
	return msgs, nil
}

func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp091.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case d, ok := <-msgs:
			if !ok {
				c.logger.Warn(ctx, "delivery channel closed")
				return
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle settles one delivery and returns the outcome. Undecodable or
// invalid events are rejected without requeue; sink failures are requeued.
func (c *Consumer) Handle(ctx context.Context, d amqp091.Delivery) string {
	outcome, err := c.settle(ctx, d)
	if err != nil {
		c.logger.Warn(ctx, "listing event not accepted",
			logger.String("routingKey", d.RoutingKey),
			logger.String("outcome", outcome),
			logger.Error(err),
		)
	}

	var ackErr error
	switch outcome {
	case OutcomeAck:
		ackErr = d.Ack(false)
	case OutcomeReject:
		ackErr = d.Reject(false)
	default:
		ackErr = d.Nack(false, true)
	}
	if ackErr != nil {
		c.logger.Error(ctx, "settle delivery", logger.String("outcome", outcome), logger.Error(ackErr))
	}
	metrics.RecordAMQPDelivery(outcome)
	return outcome
}

func (c *Consumer) settle(ctx context.Context, d amqp091.Delivery) (string, error) {
	e, err := decode(d)
	if err != nil {
		return OutcomeReject, err
	}
	if _, err := c.sink.SubmitListingEvent(ctx, e); err != nil {
		if errors.Is(err, model.ErrInvalidEvent) {
			return OutcomeReject, err
		}
		return OutcomeNack, err
	}
	return OutcomeAck, nil
}

// decode reads the JSON body. The kind falls back to the routing key suffix
// and the event id to the AMQP message id.
func decode(d amqp091.Delivery) (model.ListingEvent, error) {
	var e model.ListingEvent
	if err := json.Unmarshal(d.Body, &e); err != nil {
		return e, fmt.Errorf("%w: %w", model.ErrInvalidEvent, err)
	}
	if e.Kind == "" {
		if i := strings.LastIndexByte(d.RoutingKey, '.'); i >= 0 {
			e.Kind = model.ListingEventKind(d.RoutingKey[i+1:])
		}
	}
	if e.EventID == "" {
		e.EventID = d.MessageId
	}
	if e.TS.IsZero() && !d.Timestamp.IsZero() {
		e.TS = d.Timestamp
	}
	return e, nil
}

// Close stops consuming and closes the channel and connection.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() { close(c.shutdown) })
	c.wg.Wait()

	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			c.logger.Error(context.Background(), "close rabbitmq channel", logger.Error(err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
