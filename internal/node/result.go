package node

import (
	"fmt"
	"time"
)

// Result — итог выполнения ноды.
//
// Success == false тогда и только тогда, когда Error != nil.
// Outputs никогда не nil.
type Result struct {
	Success  bool           `json:"success"`
	Outputs  map[string]any `json:"outputs"`
	Error    *Error         `json:"error,omitempty"`
	Logs     []LogEntry     `json:"logs,omitempty"`
	Usage    *Usage         `json:"usage,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Error — структурированная ошибка ноды.
type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// NewError создаёт ошибку ноды.
func NewError(code, message string, details any, retryable bool) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
	}
}

// Errorf создаёт неповторяемую ошибку с форматированным сообщением.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Уровни записей журнала ноды.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// LogEntry — запись журнала ноды, видимая пользователю.
type LogEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Usage — расход токенов LLM.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Recorder собирает журнал и длительность одного выполнения.
//
// Типичное использование:
//
//	rec := node.Begin()
//	rec.Info("calling api", nil)
//	return rec.Succeed(outputs)
type Recorder struct {
	start time.Time
	logs  []LogEntry
	usage *Usage
	now   func() time.Time
}

// Begin начинает отсчёт выполнения.
func Begin() *Recorder {
	return &Recorder{start: time.Now(), now: time.Now}
}

func (r *Recorder) add(level, message string, data any) {
	r.logs = append(r.logs, LogEntry{
		Level:     level,
		Message:   message,
		Timestamp: r.now().UTC(),
		Data:      data,
	})
}

func (r *Recorder) Debug(message string, data any) { r.add(LevelDebug, message, data) }
func (r *Recorder) Info(message string, data any)  { r.add(LevelInfo, message, data) }
func (r *Recorder) Warn(message string, data any)  { r.add(LevelWarn, message, data) }
func (r *Recorder) Error(message string, data any) { r.add(LevelError, message, data) }

// SetUsage фиксирует расход токенов.
func (r *Recorder) SetUsage(u *Usage) {
	r.usage = u
}

// Succeed завершает выполнение успехом.
func (r *Recorder) Succeed(outputs map[string]any) *Result {
	if outputs == nil {
		outputs = make(map[string]any)
	}
	return &Result{
		Success:  true,
		Outputs:  outputs,
		Logs:     r.logs,
		Usage:    r.usage,
		Duration: time.Since(r.start),
	}
}

// Fail завершает выполнение ошибкой.
// outputs могут содержать частичные данные, например ответ HTTP с ошибочным статусом.
func (r *Recorder) Fail(err *Error, outputs map[string]any) *Result {
	if err == nil {
		err = NewError(CodePanic, "failure without error", nil, false)
	}
	if outputs == nil {
		outputs = make(map[string]any)
	}
	r.add(LevelError, err.Message, map[string]any{"code": err.Code})
	return &Result{
		Success:  false,
		Outputs:  outputs,
		Error:    err,
		Logs:     r.logs,
		Usage:    r.usage,
		Duration: time.Since(r.start),
	}
}

// Failure — результат ошибки без журнала, для кода вне исполнителей.
func Failure(err *Error) *Result {
	return Begin().Fail(err, nil)
}
