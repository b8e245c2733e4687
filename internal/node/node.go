package node

import (
	"context"
	"log/slog"
)

// Credentials — учётные данные, доступные ноде.
// Ключ — имя провайдера ("openai", "anthropic") или "default".
type Credentials map[string]string

// Lookup возвращает первый непустой ключ из перечисленных.
func (c Credentials) Lookup(names ...string) string {
	for _, name := range names {
		if v := c[name]; v != "" {
			return v
		}
	}
	return ""
}

// Context — всё, что исполнитель знает о вызове ноды.
//
// Отмена передаётся через context.Context в Execute, а не через поле.
type Context struct {
	// NodeID — идентификатор ноды в графе.
	NodeID string

	// NodeType — тип ноды.
	NodeType string

	// Config — типизированный конфиг (например *LLMConfig) или map[string]any из JSON.
	Config any

	// Variables — переменные выполнения workflow.
	Variables map[string]any

	// Inputs — значения, пришедшие по входящим рёбрам.
	Inputs map[string]any

	// Credentials — секреты, переданные вызывающей стороной.
	Credentials Credentials

	// Stream — канал для потоковых фрагментов (только LLM со stream=true).
	// Исполнитель закрывает канал по завершении.
	Stream chan<- StreamChunk

	// Logger — логгер для операционных событий. nil — берётся из context.
	Logger *slog.Logger
}

// Scope возвращает область видимости шаблонов: variables, перекрытые inputs.
func (c *Context) Scope() map[string]any {
	scope := make(map[string]any, len(c.Variables)+len(c.Inputs))
	for k, v := range c.Variables {
		scope[k] = v
	}
	for k, v := range c.Inputs {
		scope[k] = v
	}
	return scope
}

// StreamChunk — фрагмент потокового ответа.
type StreamChunk struct {
	// Content — новый текст (delta) или полный текст в финальном фрагменте.
	Content string `json:"content"`

	// Done — финальный фрагмент.
	Done bool `json:"done"`
}

// Executor — исполнитель ноды определённого типа.
type Executor interface {
	// Type возвращает тип ноды.
	Type() string

	// Execute выполняет ноду. Никогда не возвращает nil.
	// Исполнитель должен проверять ctx.Done() в блокирующих операциях.
	Execute(ctx context.Context, nc *Context) *Result
}

// Validator — необязательная проверка конфига до выполнения.
type Validator interface {
	Validate(config any) ValidationResult
}

// ValidationResult — результат проверки конфига.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Valid — успешная проверка.
func Valid() ValidationResult {
	return ValidationResult{Valid: true}
}

// Invalid собирает результат из списка ошибок.
// Пустой список означает успех.
func Invalid(errs ...string) ValidationResult {
	if len(errs) == 0 {
		return Valid()
	}
	return ValidationResult{Valid: false, Errors: errs}
}
