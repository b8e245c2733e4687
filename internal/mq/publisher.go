package mq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/nodeflow/internal/domain"
	"github.com/shaiso/nodeflow/internal/xjson"
)

// MessageType — тип сообщения в очереди.
type MessageType string

const (
	MessageTypeNodeExecute   MessageType = "node.execute"
	MessageTypeNodeCompleted MessageType = "node.completed"
)

// Message — конверт сообщения.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage создаёт конверт с новым идентификатором.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
// Сообщения persistent: переживают рестарт брокера.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := xjson.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx, string(exchange), string(routingKey), false, false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishExecute ставит ноду в очередь на выполнение.
// Потребитель: Worker.
func (p *Publisher) PublishExecute(ctx context.Context, req *domain.ExecutionRequest) error {
	return p.Publish(ctx, ExchangeNodes, RoutingKeyExecute, NewMessage(MessageTypeNodeExecute, req))
}

// PublishCompleted публикует результат выполнения ноды.
// Потребитель: внешний оркестратор.
func (p *Publisher) PublishCompleted(ctx context.Context, res *domain.ExecutionResult) error {
	return p.Publish(ctx, ExchangeNodes, RoutingKeyCompleted, NewMessage(MessageTypeNodeCompleted, res))
}
