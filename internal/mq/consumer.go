package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/nodeflow/internal/xjson"
)

// ErrPermanent помечает ошибку обработчика, после которой повтор бессмыслен.
// Такое сообщение сразу уходит в DLQ.
var ErrPermanent = errors.New("permanent failure")

// Handler — функция обработки сообщения.
//
// nil — ack. Ошибка с ErrPermanent — nack в DLQ. Любая другая ошибка —
// один повтор через очередь, затем DLQ.
type Handler func(ctx context.Context, d *Delivery) error

// Envelope — входящий конверт; payload не разобран.
type Envelope struct {
	ID        string           `json:"id"`
	Type      MessageType      `json:"type"`
	Payload   xjson.RawMessage `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
}

// Delivery — доставленное сообщение.
type Delivery struct {
	Envelope Envelope
	Raw      amqp.Delivery
}

// Decode разбирает payload сообщения в T.
func Decode[T any](d *Delivery) (T, error) {
	var out T
	if len(d.Envelope.Payload) == 0 {
		return out, fmt.Errorf("%w: empty payload", ErrPermanent)
	}
	if err := xjson.Unmarshal(d.Envelope.Payload, &out); err != nil {
		return out, fmt.Errorf("%w: decode payload: %v", ErrPermanent, err)
	}
	return out, nil
}

// Consumer потребляет сообщения из очереди RabbitMQ.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	Queue   Queue
	Handler Handler

	// Prefetch — сколько неподтверждённых сообщений держит consumer. По умолчанию 1.
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Run потребляет сообщения до отмены ctx.
// При разрыве соединения ждёт переподключения и продолжает.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "error", err)
		} else {
			c.logger.Info("consumer started")
			c.drain(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("deliveries stopped, waiting for reconnect")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(string(c.queue), "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// drain обрабатывает сообщения, пока канал открыт и ctx жив.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(ctx, raw)
		}
	}
}

// handle обрабатывает одно сообщение и подтверждает его.
func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	var env Envelope
	if err := xjson.Unmarshal(raw.Body, &env); err != nil {
		c.logger.Error("failed to unmarshal message", "error", err, "size", len(raw.Body))
		c.settle(raw, false)
		return
	}

	log := c.logger.With("message_id", env.ID, "type", env.Type)
	log.Debug("received message")

	err := c.handler(ctx, &Delivery{Envelope: env, Raw: raw})
	switch {
	case err == nil:
		if ackErr := raw.Ack(false); ackErr != nil {
			log.Warn("ack failed", "error", ackErr)
		}
	case errors.Is(err, ErrPermanent):
		log.Error("handler failed permanently", "error", err)
		c.settle(raw, false)
	case raw.Redelivered:
		log.Error("handler failed again, dead-lettering", "error", err)
		c.settle(raw, false)
	default:
		log.Warn("handler failed, requeueing", "error", err)
		c.settle(raw, true)
	}
}

func (c *Consumer) settle(raw amqp.Delivery, requeue bool) {
	if err := raw.Nack(false, requeue); err != nil {
		c.logger.Warn("nack failed", "error", err)
	}
}
