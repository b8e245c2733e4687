// Package mq — транспорт RabbitMQ для удалённого выполнения нод.
//
//   - connection.go — соединение с переподключением
//   - topology.go   — обменники, очереди, привязки (DefaultTopology)
//   - publisher.go  — публикация node.execute и node.completed
//   - consumer.go   — потребление с ack/nack и DLQ
//
// Поток сообщений:
//
//	оркестратор ──node.execute──▶ nodes.execute ──▶ worker
//	worker ──node.completed──▶ nodes.completed ──▶ оркестратор
//
// Сообщение, которое не удалось обработать дважды или которое нельзя
// разобрать, уходит в dlq.nodes.
package mq
