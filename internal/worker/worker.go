package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/nodeflow/internal/domain"
	"github.com/shaiso/nodeflow/internal/mq"
	"github.com/shaiso/nodeflow/internal/node"
)

const defaultPrefetch = 5

// Runner выполняет ноду. Реализуется steps.Registry.
type Runner interface {
	Execute(ctx context.Context, nc *node.Context) *node.Result
}

// ResultPublisher публикует результат выполнения. Реализуется mq.Publisher.
type ResultPublisher interface {
	PublishCompleted(ctx context.Context, res *domain.ExecutionResult) error
}

// Worker выполняет ноды из очереди nodes.execute и публикует результаты
// в nodes.completed.
//
// Worker не хранит состояние между сообщениями, поэтому экземпляры
// масштабируются горизонтально на одной очереди.
type Worker struct {
	runner    Runner
	publisher ResultPublisher
	conn      *mq.Connection
	consumer  *mq.Consumer

	retry       RetryPolicy
	nodeTimeout time.Duration
	prefetch    int
	now         func() time.Time

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Runner — реестр исполнителей. Обязателен.
	Runner Runner

	// Publisher — публикация результатов. nil — результаты только логируются.
	Publisher ResultPublisher

	// Conn — соединение с RabbitMQ. nil — только прямые вызовы Handle.
	Conn *mq.Connection

	// Retry — повтор нод с Retryable ошибкой.
	Retry RetryPolicy

	// NodeTimeout — предел времени на одно выполнение (0 — без предела).
	NodeTimeout time.Duration

	// Prefetch — число одновременно обрабатываемых сообщений (default: 5).
	Prefetch int

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	return &Worker{
		runner:      cfg.Runner,
		publisher:   cfg.Publisher,
		conn:        cfg.Conn,
		retry:       cfg.Retry,
		nodeTimeout: cfg.NodeTimeout,
		prefetch:    prefetch,
		now:         time.Now,
		logger:      logger,
	}
}

// Start запускает потребление nodes.execute в фоне.
func (w *Worker) Start(ctx context.Context) error {
	if w.conn == nil {
		return errors.New("worker: no mq connection")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"prefetch", w.prefetch,
		"node_timeout", w.nodeTimeout,
		"max_attempts", w.retry.attempts(),
	)

	w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:    mq.QueueNodesExecute,
		Handler:  w.handleExecute,
		Prefetch: w.prefetch,
	})

	// Prefetch > 1 имеет смысл только при параллельной обработке,
	// поэтому запускаем столько же потребителей.
	for i := 0; i < w.prefetch; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("consumer error", "error", err)
			}
		}()
	}

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения обработчиков.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
