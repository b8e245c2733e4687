package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/nodeflow/internal/catalog"
	"github.com/shaiso/nodeflow/internal/domain"
	"github.com/shaiso/nodeflow/internal/steps"
	"github.com/shaiso/nodeflow/internal/telemetry"
	"github.com/shaiso/nodeflow/internal/versioning"
)

// CustomNodeStore — хранилище пользовательских нод.
// Реализуется repo.CustomNodeRepo.
type CustomNodeStore interface {
	Create(ctx context.Context, n *domain.CustomNode) error
	GetBySlug(ctx context.Context, slug string) (*domain.CustomNode, error)
	ListPublished(ctx context.Context) ([]domain.CustomNode, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CustomNodeStatus) error
}

// ExecutePublisher ставит ноду в очередь. Реализуется mq.Publisher.
type ExecutePublisher interface {
	PublishExecute(ctx context.Context, req *domain.ExecutionRequest) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	registry    *steps.Registry
	catalog     *catalog.Catalog
	customNodes CustomNodeStore
	publisher   ExecutePublisher
	versions    versioning.Context
	metrics     *telemetry.HTTPMetrics
	rateLimit   float64
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Registry — реестр исполнителей. Обязателен.
	Registry *steps.Registry

	// Catalog — каталог нод. Обязателен.
	Catalog *catalog.Catalog

	// CustomNodes — пользовательские ноды. nil — каталог без них.
	CustomNodes CustomNodeStore

	// Publisher — очередь для асинхронного выполнения. nil — только синхронно.
	Publisher ExecutePublisher

	// Versions — версии SDK и приложения сервера, используются,
	// если клиент не передал свои.
	Versions versioning.Context

	// Metrics — метрики HTTP, может быть nil.
	Metrics *telemetry.HTTPMetrics

	// RateLimit — запросов в секунду на клиента. 0 — без ограничения.
	RateLimit float64

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry:    cfg.Registry,
		catalog:     cfg.Catalog,
		customNodes: cfg.CustomNodes,
		publisher:   cfg.Publisher,
		versions:    cfg.Versions,
		metrics:     cfg.Metrics,
		rateLimit:   cfg.RateLimit,
		logger:      logger,
	}
}
