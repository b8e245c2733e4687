package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/shaiso/nodeflow/internal/domain"
	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/steps"
	"github.com/shaiso/nodeflow/internal/telemetry"
	"github.com/shaiso/nodeflow/internal/xjson"
)

// ListExecutors возвращает зарегистрированные типы исполнителей.
// GET /api/v1/executors
func (h *Handler) ListExecutors(w http.ResponseWriter, r *http.Request) {
	types := h.registry.Types()

	resp := make([]ExecutorResponse, len(types))
	for i, t := range types {
		resp[i] = ExecutorResponse{
			Type:    t,
			Builtin: slices.Contains(node.BuiltinTypes, t),
		}
	}

	List(w, resp, len(resp))
}

// ExecuteNode выполняет одну ноду.
// POST /api/v1/nodes/{type}/execute
//
// По умолчанию ответ синхронный. "async": true ставит запрос в очередь,
// ?stream=true отдаёт фрагменты ответа как Server-Sent Events.
func (h *Handler) ExecuteNode(w http.ResponseWriter, r *http.Request) {
	nodeType := r.PathValue("type")
	if !h.registry.Has(nodeType) {
		NotFound(w, fmt.Sprintf("unknown node type %q", nodeType))
		return
	}

	var req ExecuteNodeRequest
	if err := xjson.Decode(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid JSON")
		return
	}

	execReq := req.ToDomain(nodeType)
	logger := telemetry.WithNodeType(
		telemetry.WithNodeID(
			telemetry.WithExecutionID(h.logger, execReq.ExecutionID.String()),
			execReq.NodeID),
		execReq.NodeType)

	if req.Async {
		if h.publisher == nil {
			Unavailable(w, "async execution is not configured")
			return
		}
		if err := h.publisher.PublishExecute(r.Context(), execReq); err != nil {
			InternalError(w, logger, err)
			return
		}
		logger.Info("node execution queued")
		Accepted(w, ExecutionQueuedResponse{
			ExecutionID: execReq.ExecutionID,
			NodeType:    execReq.NodeType,
			Status:      "queued",
		})
		return
	}

	ctx := telemetry.WithLogger(r.Context(), logger)

	if stream, _ := queryBool(r.URL.Query().Get("stream"), false); stream {
		h.executeStream(w, r.WithContext(ctx), execReq)
		return
	}

	startedAt := time.Now().UTC()
	res := h.registry.Execute(ctx, execReq.NodeContext())
	logResult(logger, res)

	Success(w, domain.NewExecutionResult(execReq, res, startedAt))
}

// executeStream выполняет ноду, передавая фрагменты клиенту по мере появления.
//
// События: "chunk" с node.StreamChunk и финальное "result" с ExecutionResult.
// Исполнитель может не закрыть канал, поэтому окончание определяется
// по завершению Execute, после чего забираются оставшиеся фрагменты.
func (h *Handler) executeStream(w http.ResponseWriter, r *http.Request, execReq *domain.ExecutionRequest) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	chunks := make(chan node.StreamChunk, 16)
	nc := execReq.NodeContext()
	nc.Stream = chunks

	startedAt := time.Now().UTC()
	done := make(chan *node.Result, 1)
	go func() {
		done <- h.registry.Execute(r.Context(), nc)
	}()

	logger := telemetry.FromContext(r.Context())
	write := func(event string, v any) {
		if err := writeEvent(w, event, v); err != nil {
			logger.Debug("stream write failed", "error", err)
			return
		}
		_ = rc.Flush()
	}

	var in <-chan node.StreamChunk = chunks
	for {
		select {
		case chunk, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			write("chunk", chunk)
		case res := <-done:
			for _, chunk := range drain(in) {
				write("chunk", chunk)
			}
			logResult(logger, res)
			write("result", domain.NewExecutionResult(execReq, res, startedAt))
			return
		}
	}
}

// drain забирает фрагменты, уже лежащие в канале.
func drain(in <-chan node.StreamChunk) []node.StreamChunk {
	var out []node.StreamChunk
	if in == nil {
		return out
	}
	for {
		select {
		case chunk, ok := <-in:
			if !ok {
				return out
			}
			out = append(out, chunk)
		default:
			return out
		}
	}
}

func writeEvent(w io.Writer, event string, v any) error {
	data, err := xjson.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// ValidateNode проверяет конфигурацию ноды без выполнения.
// POST /api/v1/nodes/{type}/validate
func (h *Handler) ValidateNode(w http.ResponseWriter, r *http.Request) {
	nodeType := r.PathValue("type")

	var req ValidateNodeRequest
	if err := xjson.Decode(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid JSON")
		return
	}

	res, err := h.registry.Validate(nodeType, req.Config)
	if errors.Is(err, steps.ErrUnknownNodeType) {
		NotFound(w, fmt.Sprintf("unknown node type %q", nodeType))
		return
	}
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, ValidateNodeResponse{NodeType: steps.Canonical(nodeType), ValidationResult: res})
}

func logResult(logger *slog.Logger, res *node.Result) {
	if res.Success {
		logger.Info("node execution succeeded", "duration", res.Duration)
		return
	}
	logger.Warn("node execution failed", "code", res.Error.Code, "duration", res.Duration)
}
