// Package worker выполняет ноды, поставленные в очередь внешним оркестратором.
//
// # Обзор
//
// Worker читает сообщения node.execute из очереди nodes.execute,
// выполняет ноду через реестр исполнителей и публикует node.completed:
//
//	w := worker.New(worker.Config{
//	    Runner:    registry,   // *steps.Registry
//	    Publisher: publisher,  // *mq.Publisher
//	    Conn:      conn,
//	    Retry:     worker.RetryPolicy{MaxAttempts: 3, Backoff: "exponential"},
//	    Logger:    logger,
//	})
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Ошибки
//
// Пакет различает два уровня:
//   - ошибка ноды (node.Error) — обычный результат со статусом FAILED,
//     сообщение подтверждается;
//   - ошибка доставки — некорректный запрос уходит в DLQ сразу,
//     неудачная публикация результата повторяется через очередь.
//
// # Retry
//
// Ноды с Error.Retryable повторяются в процессе по RetryPolicy:
//   - "exponential": delay = initialDelay * 2^(attempt-1), не больше maxDelay
//   - "fixed": delay = initialDelay
package worker
