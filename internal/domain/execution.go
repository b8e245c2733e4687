package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/nodeflow/internal/node"
)

// ExecutionRequest — запрос на выполнение одной ноды.
//
// Приходит от внешнего оркестратора через API или очередь nodes.execute.
// Оркестратор сам разрешает inputs из выходов предыдущих нод.
type ExecutionRequest struct {
	// ExecutionID — идентификатор выполнения. Пустой заполняется при приёме.
	ExecutionID uuid.UUID `json:"executionId"`

	// NodeID — идентификатор ноды в графе.
	NodeID string `json:"nodeId"`

	// NodeType — тип ноды (канонический или алиас).
	NodeType string `json:"nodeType"`

	// Config — конфигурация ноды в виде JSON-объекта.
	Config map[string]any `json:"config,omitempty"`

	Variables map[string]any `json:"variables,omitempty"`
	Inputs    map[string]any `json:"inputs,omitempty"`

	// Credentials — секреты по именам провайдеров. Не логируются и не
	// возвращаются в ответах.
	Credentials map[string]string `json:"credentials,omitempty"`

	// CreatedAt — время постановки запроса.
	CreatedAt time.Time `json:"createdAt"`
}

// NodeContext превращает запрос в контекст исполнителя.
func (r *ExecutionRequest) NodeContext() *node.Context {
	return &node.Context{
		NodeID:      r.NodeID,
		NodeType:    r.NodeType,
		Config:      r.Config,
		Variables:   r.Variables,
		Inputs:      r.Inputs,
		Credentials: node.Credentials(r.Credentials),
	}
}

// ExecutionResult — результат выполнения, публикуемый в nodes.completed.
type ExecutionResult struct {
	ExecutionID uuid.UUID       `json:"executionId"`
	NodeID      string          `json:"nodeId"`
	NodeType    string          `json:"nodeType"`
	Status      ExecutionStatus `json:"status"`

	// Result — полный результат исполнителя.
	Result *node.Result `json:"result"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// NewExecutionResult собирает сообщение о завершении по запросу и результату.
func NewExecutionResult(req *ExecutionRequest, res *node.Result, startedAt time.Time) *ExecutionResult {
	status := ExecutionStatusSucceeded
	if !res.Success {
		status = ExecutionStatusFailed
	}
	return &ExecutionResult{
		ExecutionID: req.ExecutionID,
		NodeID:      req.NodeID,
		NodeType:    req.NodeType,
		Status:      status,
		Result:      res,
		StartedAt:   startedAt,
		FinishedAt:  startedAt.Add(res.Duration),
	}
}

// Retryable возвращает true, если ошибка допускает повтор на уровне графа.
func (r *ExecutionResult) Retryable() bool {
	return r.Result != nil && r.Result.Error != nil && r.Result.Error.Retryable
}
