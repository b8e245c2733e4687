package steps

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/shaiso/nodeflow/internal/engine"
	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/xjson"
)

const (
	// Ограничения чтения SSE потока.
	maxSSELine      = 1024 * 1024
	maxErrorBody    = 64 * 1024
	sseDataPrefix   = "data:"
	sseDoneSentinel = "[DONE]"
)

// llmStatusError — ответ провайдера с ошибочным HTTP статусом.
type llmStatusError struct {
	StatusCode int
	Body       string
}

// Error реализует интерфейс error.
func (e *llmStatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("LLM API returned HTTP %d: %s", e.StatusCode, body)
}

// streamWithDeadline выполняет потоковый вызов с дедлайном на весь поток.
//
// Таймаут реализован через context в той же горутине: отправка в канал
// и его закрытие в Execute не пересекаются.
func (e *LLMExecutor) streamWithDeadline(
	ctx context.Context,
	timeout time.Duration,
	message string,
	p Provider,
	apiKey string,
	req openai.ChatCompletionRequest,
	sink chan<- node.StreamChunk,
	emitted *bool,
) (*llmCompletion, error) {
	if timeout <= 0 {
		return e.stream(ctx, p, apiKey, req, sink, emitted)
	}

	streamCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	completion, err := e.stream(streamCtx, p, apiKey, req, sink, emitted)
	if err != nil && ctx.Err() == nil && errors.Is(streamCtx.Err(), context.DeadlineExceeded) {
		return nil, &engine.TimeoutError{Message: message, Timeout: timeout}
	}
	return completion, err
}

// stream отправляет запрос со stream=true и разбирает SSE ответ.
func (e *LLMExecutor) stream(
	ctx context.Context,
	p Provider,
	apiKey string,
	req openai.ChatCompletionRequest,
	sink chan<- node.StreamChunk,
	emitted *bool,
) (*llmCompletion, error) {
	req.Stream = true
	if p.Name == "openai" {
		req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}

	body, err := xjson.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(p.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &llmStatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return readSSE(ctx, resp.Body, sink, emitted)
}

// readSSE читает поток "data: {...}" до [DONE] или конца тела.
//
// Строки, которые не удалось разобрать, пропускаются молча.
// Каждый непустой delta отправляется в sink с учётом отмены context.
func readSSE(ctx context.Context, r io.Reader, sink chan<- node.StreamChunk, emitted *bool) (*llmCompletion, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)

	var content strings.Builder
	out := &llmCompletion{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
		if payload == sseDoneSentinel {
			break
		}

		var chunk openai.ChatCompletionStreamResponse
		if err := xjson.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}

		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		if chunk.Usage != nil {
			out.Usage = usageFrom(*chunk.Usage)
		}

		for _, choice := range chunk.Choices {
			if choice.Index != 0 {
				continue
			}
			if choice.FinishReason != "" {
				out.FinishReason = string(choice.FinishReason)
			}

			delta := choice.Delta.Content
			if delta == "" {
				continue
			}
			content.WriteString(delta)

			if sink == nil {
				continue
			}
			select {
			case sink <- node.StreamChunk{Content: delta}:
				if emitted != nil {
					*emitted = true
				}
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}

	out.Content = content.String()
	return out, nil
}
