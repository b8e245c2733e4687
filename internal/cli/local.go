package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/nodeflow/internal/domain"
	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/steps"
	"github.com/shaiso/nodeflow/internal/xjson"
)

// LocalRunner выполняет ноды в процессе CLI, без API.
// Ответы имеют ту же форму, что и у Client.
type LocalRunner struct {
	registry *steps.Registry
}

// NewLocalRunner создаёт LocalRunner со встроенными исполнителями.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{registry: steps.NewRegistry(steps.Options{})}
}

// Execute выполняет ноду. Если onChunk не nil, фрагменты потокового
// ответа передаются в него по мере появления.
func (l *LocalRunner) Execute(ctx context.Context, nodeType string, req ExecuteRequest, onChunk func(StreamChunk)) (*ExecutionResponse, error) {
	if !l.registry.Has(nodeType) {
		return nil, fmt.Errorf("unknown node type %q", nodeType)
	}

	execReq := &domain.ExecutionRequest{
		ExecutionID: uuid.New(),
		NodeID:      req.NodeID,
		NodeType:    nodeType,
		Config:      req.Config,
		Variables:   req.Variables,
		Inputs:      req.Inputs,
		Credentials: req.Credentials,
		CreatedAt:   time.Now().UTC(),
	}
	if execReq.NodeID == "" {
		execReq.NodeID = nodeType
	}
	nc := execReq.NodeContext()

	startedAt := time.Now().UTC()
	var res *node.Result
	if onChunk == nil {
		res = l.registry.Execute(ctx, nc)
	} else {
		res = l.executeStream(ctx, nc, onChunk)
	}

	return toResponse(domain.NewExecutionResult(execReq, res, startedAt))
}

func (l *LocalRunner) executeStream(ctx context.Context, nc *node.Context, onChunk func(StreamChunk)) *node.Result {
	chunks := make(chan node.StreamChunk, 16)
	nc.Stream = chunks

	done := make(chan *node.Result, 1)
	go func() {
		done <- l.registry.Execute(ctx, nc)
	}()

	var in <-chan node.StreamChunk = chunks
	for {
		select {
		case chunk, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			onChunk(StreamChunk{Content: chunk.Content, Done: chunk.Done})
		case res := <-done:
			for in != nil {
				select {
				case chunk, ok := <-in:
					if !ok {
						in = nil
						break
					}
					onChunk(StreamChunk{Content: chunk.Content, Done: chunk.Done})
				default:
					in = nil
				}
			}
			return res
		}
	}
}

// Validate проверяет конфигурацию ноды.
func (l *LocalRunner) Validate(nodeType string, config map[string]any) (*ValidationResponse, error) {
	res, err := l.registry.Validate(nodeType, config)
	if errors.Is(err, steps.ErrUnknownNodeType) {
		return nil, fmt.Errorf("unknown node type %q", nodeType)
	}
	if err != nil {
		return nil, err
	}
	return &ValidationResponse{
		NodeType: steps.Canonical(nodeType),
		Valid:    res.Valid,
		Errors:   res.Errors,
	}, nil
}

// toResponse приводит результат к форме ответа API.
func toResponse(res *domain.ExecutionResult) (*ExecutionResponse, error) {
	data, err := xjson.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	var out ExecutionResponse
	if err := xjson.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &out, nil
}
