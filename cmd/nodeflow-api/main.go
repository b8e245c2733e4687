// nodeflow API — HTTP сервер каталога и исполнения нод.
//
// API:
//   - Отдаёт каталог нод (встроенные, расширения, пользовательские из БД)
//   - Выполняет ноды синхронно или со стримингом (SSE)
//   - Ставит выполнение в очередь nodes.execute, если доступен RabbitMQ
//
// База и брокер необязательны: без них API работает в урезанном режиме.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/nodeflow/internal/api"
	"github.com/shaiso/nodeflow/internal/catalog"
	"github.com/shaiso/nodeflow/internal/config"
	"github.com/shaiso/nodeflow/internal/mq"
	"github.com/shaiso/nodeflow/internal/repo"
	"github.com/shaiso/nodeflow/internal/steps"
	"github.com/shaiso/nodeflow/internal/telemetry"
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
	logger.Info("starting nodeflow-api", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Реестр исполнителей с метриками
	registry := steps.NewRegistry(steps.Options{
		Observer: telemetry.NewMetrics(nil),
	})

	// Каталог и расширения
	cat := catalog.New(logger)
	if cfg.ExtensionsPath != "" {
		if _, err := cat.LoadExtensions(cfg.ExtensionsPath, cfg.Versions); err != nil {
			logger.Error("failed to load extensions", "path", cfg.ExtensionsPath, "error", err)
			os.Exit(1)
		}
	}

	apiCfg := api.Config{
		Registry:  registry,
		Catalog:   cat,
		Versions:  cfg.Versions,
		Metrics:   telemetry.NewHTTPMetrics(nil),
		RateLimit: cfg.API.RateLimit,
		Logger:    logger,
	}

	// Пользовательские ноды
	if repo.Enabled() {
		pool, err := repo.NewPool(ctx)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		logger.Info("connected to database")

		apiCfg.CustomNodes = repo.NewCustomNodeRepo(pool)
	} else {
		logger.Info("DB_URL not set, custom nodes disabled")
	}

	// RabbitMQ для асинхронного выполнения
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), mq.ConnectionOptions{Name: "nodeflow-api"}, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, async execution disabled", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mqConn.SetupTopology(ctx); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		apiCfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	handler := api.NewHandler(apiCfg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	addr := ":" + cfg.API.Port

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
