package steps

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/shaiso/nodeflow/internal/engine"
	"github.com/shaiso/nodeflow/internal/node"
)

// InputExecutor — исполнитель ноды input.
//
// Значение: inputs[name], затем variables[name], затем defaultValue.
//
// Outputs:
//
//	{"value": v, "output": v, "<name>": v}
type InputExecutor struct{}

// NewInputExecutor создаёт исполнитель.
func NewInputExecutor() *InputExecutor {
	return &InputExecutor{}
}

// Type возвращает тип ноды.
func (e *InputExecutor) Type() string {
	return node.TypeInput
}

// Validate проверяет имя входа.
func (e *InputExecutor) Validate(config any) node.ValidationResult {
	_, res := node.ValidateConfig[node.InputConfig](config)
	return res
}

// Execute находит значение входа.
func (e *InputExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()

	cfg, nerr := decodeConfig(nc, node.InputConfig{})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}

	value, source := resolveInputValue(cfg, nc)
	if value == nil && cfg.Required {
		label := cfg.Label
		if label == "" {
			label = cfg.Name
		}
		return rec.Fail(node.NewError(node.CodeInputRequired,
			fmt.Sprintf("input %q is required", label),
			map[string]any{"name": cfg.Name}, false), nil)
	}

	rec.Debug(fmt.Sprintf("input %q resolved from %s", cfg.Name, source), nil)

	outputs := map[string]any{
		"value":  value,
		"output": value,
	}
	if cfg.Name != "" {
		outputs[cfg.Name] = value
	}
	return rec.Succeed(outputs)
}

func resolveInputValue(cfg node.InputConfig, nc *node.Context) (any, string) {
	if v, ok := nc.Inputs[cfg.Name]; ok && v != nil {
		return v, "inputs"
	}
	if v, ok := nc.Variables[cfg.Name]; ok && v != nil {
		return v, "variables"
	}
	if cfg.DefaultValue != nil {
		return cfg.DefaultValue, "default"
	}
	return nil, "nothing"
}

// Типы отображения ноды output.
const outputText = "text"

// OutputExecutor — исполнитель ноды output.
//
// Пропускает первое определённое значение из inputs.output, inputs.value,
// inputs.input, а если их нет, первое не-nil значение по отсортированным
// ключам inputs. Всегда завершается успешно.
//
// Outputs:
//
//	{
//	    "output": v,
//	    "value": v,
//	    "display": {"type": "text", "title": "", "showTimestamp": false, "maxLength": 0, "preview": "..."}
//	}
type OutputExecutor struct {
	now func() time.Time
}

// NewOutputExecutor создаёт исполнитель.
func NewOutputExecutor() *OutputExecutor {
	return &OutputExecutor{now: time.Now}
}

// Type возвращает тип ноды.
func (e *OutputExecutor) Type() string {
	return node.TypeOutput
}

// Validate проверяет тип отображения.
func (e *OutputExecutor) Validate(config any) node.ValidationResult {
	_, res := node.ValidateConfig[node.OutputConfig](config)
	return res
}

// Execute пропускает значение дальше и добавляет метаданные отображения.
func (e *OutputExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()

	cfg, nerr := decodeConfig(nc, node.OutputConfig{Type: outputText})
	if nerr != nil {
		// Неверный конфиг не мешает выводу: берём значения по умолчанию.
		rec.Warn("invalid output config, using defaults", map[string]any{"error": nerr.Message})
		cfg = node.OutputConfig{Type: outputText}
	}

	value, ok := firstDefined(nc.Inputs, "output", "value", "input")
	if !ok {
		value, _ = firstBySortedKey(nc.Inputs)
	}

	display := map[string]any{
		"type":          cfg.Type,
		"title":         cfg.Title,
		"showTimestamp": cfg.ShowTimestamp,
		"maxLength":     cfg.MaxLength,
		"preview":       preview(value, cfg.MaxLength),
	}
	if cfg.ShowTimestamp {
		now := time.Now
		if e.now != nil {
			now = e.now
		}
		display["timestamp"] = now().UTC().Format(time.RFC3339)
	}

	return rec.Succeed(map[string]any{
		"output":  value,
		"value":   value,
		"display": display,
	})
}

// preview — строковый вид значения, обрезанный до maxLength символов.
func preview(v any, maxLength int) string {
	s := engine.FormatValue(v)
	if maxLength <= 0 || utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLength]) + "..."
}
