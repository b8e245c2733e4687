package mq

import (
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

const (
	ExchangeNodes Exchange = "nodeflow.nodes"
	ExchangeDLQ   Exchange = "nodeflow.dlq"
)

const (
	QueueNodesExecute   Queue = "nodes.execute"
	QueueNodesCompleted Queue = "nodes.completed"
	QueueDLQNodes       Queue = "dlq.nodes"
)

const (
	RoutingKeyExecute   RoutingKey = "execute"
	RoutingKeyCompleted RoutingKey = "completed"
	RoutingKeyDLQNodes  RoutingKey = "nodes"
)

// Declarer — подмножество методов amqp.Channel, нужное для объявления топологии.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// QueueSpec — очередь и её привязка к обменнику.
type QueueSpec struct {
	Name       Queue
	Exchange   Exchange
	RoutingKey RoutingKey

	// DeadLetter — куда уходят отклонённые сообщения. Пусто — без DLQ.
	DeadLetter         Exchange
	DeadLetterRouteKey RoutingKey

	// Consumer — кто читает очередь (для TopologyInfo).
	Consumer string
}

func (q QueueSpec) args() amqp.Table {
	if q.DeadLetter == "" {
		return nil
	}
	return amqp.Table{
		"x-dead-letter-exchange":    string(q.DeadLetter),
		"x-dead-letter-routing-key": string(q.DeadLetterRouteKey),
	}
}

// Topology — обменники и очереди nodeflow. Все обменники direct и durable.
type Topology struct {
	Exchanges []Exchange
	Queues    []QueueSpec
}

// DefaultTopology — топология воркера нод:
//
//	nodeflow.nodes ── execute   → nodes.execute   (DLQ: dlq.nodes)
//	               └─ completed → nodes.completed
//	nodeflow.dlq   ── nodes     → dlq.nodes
var DefaultTopology = Topology{
	Exchanges: []Exchange{ExchangeNodes, ExchangeDLQ},
	Queues: []QueueSpec{
		{
			Name:               QueueNodesExecute,
			Exchange:           ExchangeNodes,
			RoutingKey:         RoutingKeyExecute,
			DeadLetter:         ExchangeDLQ,
			DeadLetterRouteKey: RoutingKeyDLQNodes,
			Consumer:           "worker",
		},
		{
			Name:       QueueNodesCompleted,
			Exchange:   ExchangeNodes,
			RoutingKey: RoutingKeyCompleted,
			Consumer:   "orchestrator (external)",
		},
		{
			Name:       QueueDLQNodes,
			Exchange:   ExchangeDLQ,
			RoutingKey: RoutingKeyDLQNodes,
			Consumer:   "manual processing",
		},
	},
}

// Declare объявляет обменники, очереди и привязки. Операции идемпотентны.
func (t Topology) Declare(ch Declarer) error {
	for _, ex := range t.Exchanges {
		if err := ch.ExchangeDeclare(string(ex), "direct", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}

	for _, q := range t.Queues {
		if _, err := ch.QueueDeclare(string(q.Name), true, false, false, false, q.args()); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.Name, err)
		}
		if err := ch.QueueBind(string(q.Name), string(q.RoutingKey), string(q.Exchange), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", q.Name, q.Exchange, err)
		}
	}
	return nil
}

// Info возвращает описание топологии для логирования.
func (t Topology) Info() string {
	var b strings.Builder
	for _, ex := range t.Exchanges {
		fmt.Fprintf(&b, "%s (direct)\n", ex)
		for _, q := range t.Queues {
			if q.Exchange != ex {
				continue
			}
			fmt.Fprintf(&b, "  └── %s [routing: %s] consumer: %s", q.Name, q.RoutingKey, q.Consumer)
			if q.DeadLetter != "" {
				fmt.Fprintf(&b, ", DLQ: %s", q.DeadLetter)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
