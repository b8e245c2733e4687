package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/nodeflow/internal/domain"
	"github.com/shaiso/nodeflow/internal/engine"
	"github.com/shaiso/nodeflow/internal/mq"
	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/telemetry"
)

// handleExecute обрабатывает сообщение node.execute.
func (w *Worker) handleExecute(ctx context.Context, d *mq.Delivery) error {
	if d.Envelope.Type != mq.MessageTypeNodeExecute {
		return fmt.Errorf("%w: unexpected message type %q", ErrInvalidRequest, d.Envelope.Type)
	}

	req, err := mq.Decode[domain.ExecutionRequest](d)
	if err != nil {
		return err
	}

	_, err = w.Handle(ctx, &req)
	return err
}

// Handle выполняет ноду по запросу и публикует результат.
//
// Ошибка возвращается только для проблем доставки: некорректный запрос
// (ErrInvalidRequest) или неудачная публикация (ErrPublishFailed).
// Ошибка самой ноды — это нормальный результат со статусом FAILED.
func (w *Worker) Handle(ctx context.Context, req *domain.ExecutionRequest) (*domain.ExecutionResult, error) {
	if req.NodeType == "" {
		return nil, fmt.Errorf("%w: nodeType is required", ErrInvalidRequest)
	}
	if req.ExecutionID == uuid.Nil {
		req.ExecutionID = uuid.New()
	}

	logger := telemetry.WithNodeType(
		telemetry.WithNodeID(
			telemetry.WithExecutionID(w.logger, req.ExecutionID.String()),
			req.NodeID),
		req.NodeType)
	ctx = telemetry.WithLogger(ctx, logger)

	logger.Info("node execution started")

	startedAt := w.now()
	res := w.execute(ctx, req)
	result := domain.NewExecutionResult(req, res, startedAt)

	if res.Success {
		logger.Info("node execution succeeded", "duration", res.Duration)
	} else {
		logger.Warn("node execution failed",
			"code", res.Error.Code,
			"retryable", res.Error.Retryable,
			"duration", res.Duration,
		)
	}

	if w.publisher == nil {
		logger.Warn("publisher not available, skipping node.completed publish")
		return result, nil
	}
	if err := w.publisher.PublishCompleted(ctx, result); err != nil {
		return result, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return result, nil
}

// execute запускает ноду с повтором Retryable ошибок по RetryPolicy.
// Duration результата покрывает все попытки.
func (w *Worker) execute(ctx context.Context, req *domain.ExecutionRequest) *node.Result {
	attempts := w.retry.attempts()
	startedAt := w.now()

	var res *node.Result
	for attempt := 1; ; attempt++ {
		res = w.executeOnce(ctx, req)
		if res.Success || res.Error == nil || !res.Error.Retryable || attempt >= attempts {
			break
		}

		delay := w.retry.backoff(attempt)
		telemetry.FromContext(ctx).Debug("retrying node",
			"attempt", attempt,
			"delay", delay,
			"code", res.Error.Code,
		)
		if err := engine.Sleep(ctx, delay); err != nil {
			break
		}
	}

	res.Duration = w.now().Sub(startedAt)
	return res
}

func (w *Worker) executeOnce(ctx context.Context, req *domain.ExecutionRequest) *node.Result {
	if w.nodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.nodeTimeout)
		defer cancel()
	}
	return w.runner.Execute(ctx, req.NodeContext())
}
