package steps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/shaiso/nodeflow/internal/engine"
	"github.com/shaiso/nodeflow/internal/node"
)

// ErrUnsupportedModel — модель не относится ни к одному провайдеру.
var ErrUnsupportedModel = errors.New("unsupported model")

// Значения по умолчанию для LLM.
const (
	defaultLLMTimeout    = 60000
	defaultLLMRetryDelay = 1000
)

// Provider — профиль OpenAI-совместимого провайдера.
type Provider struct {
	// Name — имя провайдера, оно же ключ в node.Credentials.
	Name string `json:"name"`

	// BaseURL — адрес API без /chat/completions.
	BaseURL string `json:"baseUrl"`

	// Models — фрагменты имён моделей, по которым выбирается провайдер.
	Models []string `json:"models"`

	// RequiresKey — без ключа вызов невозможен.
	RequiresKey bool `json:"requiresKey"`
}

// DefaultProviders — встроенные профили. Порядок важен: первый совпавший выигрывает.
func DefaultProviders() []Provider {
	return []Provider{
		{
			Name:        "anthropic",
			BaseURL:     "https://api.anthropic.com/v1",
			Models:      []string{"claude"},
			RequiresKey: true,
		},
		{
			Name:    "local",
			BaseURL: "http://localhost:11434/v1",
			Models:  []string{"llama", "mistral", "mixtral", "qwen", "gemma", "phi", "deepseek"},
		},
		{
			Name:        "openai",
			BaseURL:     "https://api.openai.com/v1",
			Models:      []string{"gpt-4o", "gpt-4", "gpt-3.5", "chatgpt", "o1", "o3", "o4"},
			RequiresKey: true,
		},
	}
}

// LLMExecutor — исполнитель ноды llm.
//
// Собирает сообщения из шаблонов, выбирает провайдера по модели и вызывает
// chat completions с таймаутом и повторами. Потоковый режим отдаёт фрагменты
// в node.Context.Stream.
//
// Конфигурация:
//
//	{
//	    "model": "gpt-4o-mini",
//	    "systemPrompt": "You are a helpful assistant.",
//	    "userPrompt": "Summarize: {{input}}",
//	    "temperature": 0.3,
//	    "maxTokens": 512,
//	    "stream": false,
//	    "timeout": 60000,
//	    "retryCount": 2,
//	    "retryDelay": 1000
//	}
//
// Outputs:
//
//	{
//	    "content": "...",
//	    "text": "...",
//	    "output": "...",
//	    "model": "gpt-4o-mini",
//	    "provider": "openai",
//	    "finishReason": "stop",
//	    "usage": {"promptTokens": 12, "completionTokens": 40, "totalTokens": 52}
//	}
type LLMExecutor struct {
	httpClient *http.Client
	providers  []Provider
}

// NewLLMExecutor создаёт исполнитель. nil client — http.DefaultClient.
func NewLLMExecutor(client *http.Client, providers ...Provider) *LLMExecutor {
	if client == nil {
		client = http.DefaultClient
	}
	if len(providers) == 0 {
		providers = DefaultProviders()
	}
	return &LLMExecutor{httpClient: client, providers: providers}
}

// Type возвращает тип ноды.
func (e *LLMExecutor) Type() string {
	return node.TypeLLM
}

// Validate проверяет конфиг без обращения к сети.
func (e *LLMExecutor) Validate(config any) node.ValidationResult {
	_, res := node.ValidateConfig[node.LLMConfig](config)
	return res
}

// ResolveProvider выбирает провайдера по явному имени или по модели.
// Неизвестная модель обслуживается OpenAI-совместимым провайдером.
func (e *LLMExecutor) ResolveProvider(model, explicit string) (Provider, error) {
	if explicit != "" {
		for _, p := range e.providers {
			if strings.EqualFold(p.Name, explicit) {
				return p, nil
			}
		}
		return Provider{}, fmt.Errorf("%w: unknown provider %q", ErrUnsupportedModel, explicit)
	}

	model = strings.ToLower(strings.TrimSpace(model))
	if model == "" {
		return Provider{}, fmt.Errorf("%w: model is empty", ErrUnsupportedModel)
	}

	for _, p := range e.providers {
		for _, known := range p.Models {
			if strings.Contains(model, strings.ToLower(known)) {
				return p, nil
			}
		}
	}

	for _, p := range e.providers {
		if p.Name == "openai" {
			return p, nil
		}
	}
	return Provider{Name: "openai", BaseURL: "https://api.openai.com/v1", RequiresKey: true}, nil
}

// llmCompletion — нормализованный ответ модели.
type llmCompletion struct {
	Content      string
	FinishReason string
	Model        string
	Usage        *node.Usage
}

// Execute выполняет вызов модели.
func (e *LLMExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	if nc.Stream != nil {
		defer close(nc.Stream)
	}

	rec := node.Begin()
	logger := loggerFor(ctx, nc)

	cfg, nerr := decodeConfig(nc, node.LLMConfig{Timeout: defaultLLMTimeout, RetryDelay: defaultLLMRetryDelay})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}

	provider, err := e.ResolveProvider(cfg.Model, cfg.Provider)
	if err != nil {
		return rec.Fail(node.NewError(node.CodeUnsupportedModel, err.Error(),
			map[string]any{"model": cfg.Model, "provider": cfg.Provider}, false), nil)
	}
	if cfg.BaseURL != "" {
		provider.BaseURL = cfg.BaseURL
	}

	scope := nc.Scope()
	apiKey := resolveAPIKey(cfg, provider, nc, scope)
	if apiKey == "" && provider.RequiresKey {
		return rec.Fail(node.NewError(node.CodeMissingAPIKey,
			fmt.Sprintf("no API key for provider %s", provider.Name),
			map[string]any{"provider": provider.Name}, false), nil)
	}

	messages := buildMessages(cfg, scope, nc.Inputs)
	if len(messages) == 0 {
		return rec.Fail(node.NewError(node.CodeInvalidConfig, "no messages to send: set userPrompt or provide input", nil, false), nil)
	}

	req := buildChatRequest(cfg, messages)
	streaming := cfg.Stream && nc.Stream != nil

	rec.Info("calling LLM", map[string]any{
		"provider": provider.Name,
		"model":    cfg.Model,
		"messages": len(messages),
		"stream":   streaming,
	})
	logger.Debug("llm request", "provider", provider.Name, "model", cfg.Model, "stream", streaming)

	emitted := false
	opts := engine.RetryOptions{
		Retries: cfg.RetryCount,
		Delay:   millis(cfg.RetryDelay),
		OnRetry: func(err error, attempt int) {
			rec.Warn(fmt.Sprintf("LLM call failed on attempt %d, retrying", attempt), map[string]any{"error": err.Error()})
			logger.Warn("llm call failed, retrying", "attempt", attempt, "error", err)
		},
		// После первого отправленного фрагмента повтор задублировал бы вывод
		ShouldRetry: func(error) bool { return !emitted },
	}
	timeout := millis(cfg.Timeout)
	timeoutMsg := fmt.Sprintf("LLM request timed out after %dms", cfg.Timeout)

	var completion *llmCompletion
	if streaming {
		completion, err = engine.WithRetry(ctx, opts, func(ctx context.Context) (*llmCompletion, error) {
			return e.streamWithDeadline(ctx, timeout, timeoutMsg, provider, apiKey, req, nc.Stream, &emitted)
		})
	} else {
		completion, err = engine.WithRetry(ctx, opts, func(ctx context.Context) (*llmCompletion, error) {
			return engine.WithTimeout(ctx, timeout, timeoutMsg, func(ctx context.Context) (*llmCompletion, error) {
				return e.complete(ctx, provider, apiKey, req)
			})
		})
	}
	if err != nil {
		logger.Error("llm call failed", "provider", provider.Name, "error", err)
		return rec.Fail(llmCallError(err), nil)
	}

	if streaming {
		select {
		case nc.Stream <- node.StreamChunk{Content: completion.Content, Done: true}:
		case <-ctx.Done():
		}
	}

	if completion.Model == "" {
		completion.Model = cfg.Model
	}
	rec.SetUsage(completion.Usage)
	rec.Info("LLM call completed", map[string]any{"finishReason": completion.FinishReason})

	outputs := map[string]any{
		"content":      completion.Content,
		"text":         completion.Content,
		"output":       completion.Content,
		"model":        completion.Model,
		"provider":     provider.Name,
		"finishReason": completion.FinishReason,
	}
	if completion.Usage != nil {
		outputs["usage"] = map[string]any{
			"promptTokens":     completion.Usage.PromptTokens,
			"completionTokens": completion.Usage.CompletionTokens,
			"totalTokens":      completion.Usage.TotalTokens,
		}
	}
	return rec.Succeed(outputs)
}

// complete выполняет обычный (не потоковый) вызов через go-openai.
func (e *LLMExecutor) complete(ctx context.Context, p Provider, apiKey string, req openai.ChatCompletionRequest) (*llmCompletion, error) {
	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = strings.TrimRight(p.BaseURL, "/")
	clientCfg.HTTPClient = e.httpClient

	resp, err := openai.NewClientWithConfig(clientCfg).CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}

	choice := resp.Choices[0]
	return &llmCompletion{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Model:        resp.Model,
		Usage:        usageFrom(resp.Usage),
	}, nil
}

// resolveAPIKey ищет ключ: конфиг, учётные данные провайдера, default, inputs.apiKey.
func resolveAPIKey(cfg node.LLMConfig, p Provider, nc *node.Context, scope map[string]any) string {
	if cfg.APIKey != "" {
		if key := engine.RenderTemplate(cfg.APIKey, scope); !engine.HasTemplate(key) {
			return key
		}
	}
	if key := nc.Credentials.Lookup(p.Name, "default"); key != "" {
		return key
	}
	if key, ok := nc.Inputs["apiKey"].(string); ok {
		return key
	}
	return ""
}

// buildMessages собирает диалог: system, история, user.
func buildMessages(cfg node.LLMConfig, scope, inputs map[string]any) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage

	if system := engine.RenderTemplate(cfg.SystemPrompt, scope); strings.TrimSpace(system) != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	for _, m := range cfg.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: engine.RenderTemplate(m.Content, scope),
		})
	}
	messages = append(messages, historyFromInputs(inputs)...)

	user := engine.RenderTemplate(cfg.UserPrompt, scope)
	if strings.TrimSpace(user) == "" {
		if v, ok := firstDefined(inputs, "prompt", "input"); ok {
			user = engine.FormatValue(v)
		}
	}
	if strings.TrimSpace(user) != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})
	}

	return messages
}

// historyFromInputs читает inputs.messages как список {role, content}.
func historyFromInputs(inputs map[string]any) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage

	switch list := inputs["messages"].(type) {
	case []node.ChatMessage:
		for _, m := range list {
			out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
		}
	case []any:
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			role, _ := m["role"].(string)
			content, _ := m["content"].(string)
			if role == "" {
				continue
			}
			out = append(out, openai.ChatCompletionMessage{Role: role, Content: content})
		}
	}
	return out
}

// isReasoningModel — модели o-серии не принимают max_tokens и параметры сэмплинга.
func isReasoningModel(model string) bool {
	model = strings.ToLower(model)
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4")
}

// buildChatRequest переносит параметры конфига в запрос.
func buildChatRequest(cfg node.LLMConfig, messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    cfg.Model,
		Messages: messages,
		Stop:     cfg.Stop,
	}

	reasoning := isReasoningModel(cfg.Model)
	if cfg.MaxTokens != nil {
		if reasoning {
			req.MaxCompletionTokens = *cfg.MaxTokens
		} else {
			req.MaxTokens = *cfg.MaxTokens
		}
	}
	if reasoning {
		return req
	}

	if cfg.Temperature != nil {
		req.Temperature = float32(*cfg.Temperature)
		// omitempty в go-openai отбрасывает 0, а явный 0 должен дойти до API
		if req.Temperature == 0 {
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if cfg.TopP != nil {
		req.TopP = float32(*cfg.TopP)
	}
	if cfg.FrequencyPenalty != nil {
		req.FrequencyPenalty = float32(*cfg.FrequencyPenalty)
	}
	if cfg.PresencePenalty != nil {
		req.PresencePenalty = float32(*cfg.PresencePenalty)
	}
	return req
}

func usageFrom(u openai.Usage) *node.Usage {
	if u.TotalTokens == 0 && u.PromptTokens == 0 && u.CompletionTokens == 0 {
		return nil
	}
	return &node.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// llmCallError переводит ошибку вызова в node.Error. Все сбои вызова повторяемы.
func llmCallError(err error) *node.Error {
	details := map[string]any{}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var statusErr *llmStatusError
	var timeoutErr *engine.TimeoutError

	switch {
	case errors.As(err, &timeoutErr):
		details["timeoutMs"] = timeoutErr.Timeout.Milliseconds()
	case errors.As(err, &apiErr):
		details["status"] = apiErr.HTTPStatusCode
		if apiErr.Type != "" {
			details["type"] = apiErr.Type
		}
	case errors.As(err, &reqErr):
		details["status"] = reqErr.HTTPStatusCode
	case errors.As(err, &statusErr):
		details["status"] = statusErr.StatusCode
	}

	var d any
	if len(details) > 0 {
		d = details
	}
	return node.NewError(node.CodeLLMCallFailed, err.Error(), d, true)
}
