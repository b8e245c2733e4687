// nodeflow worker — выполняет ноды из очереди.
//
// Worker:
//   - Получает запросы из nodes.execute
//   - Выполняет ноду через реестр исполнителей
//   - Повторяет ноды с Retryable ошибкой с backoff
//   - Публикует результат в nodes.completed
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/nodeflow/internal/config"
	"github.com/shaiso/nodeflow/internal/mq"
	"github.com/shaiso/nodeflow/internal/steps"
	"github.com/shaiso/nodeflow/internal/telemetry"
	"github.com/shaiso/nodeflow/internal/worker"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	// .env читается в config.Load, поэтому логгер настраивается после него
	cfg, err := config.Load(version)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting nodeflow-worker", "version", version)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// RabbitMQ
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), mq.ConnectionOptions{Name: "nodeflow-worker"}, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mqConn.SetupTopology(ctx); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	registry := steps.NewRegistry(steps.Options{
		Observer: telemetry.NewMetrics(nil),
	})

	// Создаём worker
	w := worker.New(worker.Config{
		Runner:      registry,
		Publisher:   mq.NewPublisher(mqConn, logger),
		Conn:        mqConn,
		Retry:       cfg.Worker.Retry,
		NodeTimeout: cfg.Worker.NodeTimeout,
		Prefetch:    cfg.Worker.Prefetch,
		Logger:      logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		if !mqConn.IsConnected() {
			rw.WriteHeader(http.StatusServiceUnavailable)
			rw.Write([]byte("rabbitmq disconnected"))
			return
		}
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":" + cfg.Worker.Port

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	w.Stop()
	logger.Info("nodeflow-worker stopped")
}
