package steps

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/shaiso/nodeflow/internal/engine"
	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/xjson"
)

const defaultMaxIterations = 1000

// comparisonOperators — порядок важен: двухсимвольные раньше односимвольных.
var comparisonOperators = []string{"==", "!=", ">=", "<=", ">", "<"}

// LoopExecutor — исполнитель ноды loop.
//
// Нода не исполняет тело цикла сама: она разворачивает итерации
// (элементы, индексы), которые движок передаёт следующей ноде.
//
// Режимы:
//   - forEach — по массиву из items, source или inputs.items
//   - count   — count итераций
//   - while   — пока condition истинно; condition видит index и iteration
//
// Число итераций всегда ограничено maxIterations (по умолчанию 1000).
type LoopExecutor struct{}

// NewLoopExecutor создаёт исполнитель.
func NewLoopExecutor() *LoopExecutor {
	return &LoopExecutor{}
}

// Type возвращает тип ноды.
func (e *LoopExecutor) Type() string {
	return node.TypeLoop
}

// Validate проверяет режим и обязательные поля режима.
func (e *LoopExecutor) Validate(config any) node.ValidationResult {
	cfg, res := node.ValidateConfig[node.LoopConfig](config)
	if !res.Valid {
		return res
	}
	if cfg.Mode == node.LoopWhile && strings.TrimSpace(cfg.Condition) == "" {
		return node.Invalid("condition is required for while loops")
	}
	return res
}

// Execute разворачивает итерации.
func (e *LoopExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()

	cfg, nerr := decodeConfig(nc, node.LoopConfig{
		Mode:          node.LoopForEach,
		MaxIterations: defaultMaxIterations,
		ItemVariable:  "item",
		IndexVariable: "index",
	})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}

	if cfg.MaxIterations < 0 || cfg.Count < 0 {
		msg := fmt.Sprintf("count and maxIterations must be non-negative, got count=%d maxIterations=%d", cfg.Count, cfg.MaxIterations)
		return rec.Fail(node.NewError(node.CodeLoopFailed, msg, nil, false), nil)
	}

	scope := nc.Scope()
	var (
		items     []any
		truncated bool
		err       error
	)

	switch cfg.Mode {
	case node.LoopForEach:
		items, err = loopSource(cfg, scope, nc.Inputs)
		if err == nil && len(items) > cfg.MaxIterations {
			items, truncated = items[:cfg.MaxIterations], true
		}
	case node.LoopCount:
		n := cfg.Count
		if n > cfg.MaxIterations {
			n, truncated = cfg.MaxIterations, true
		}
		items = make([]any, n)
		for i := range items {
			items[i] = i
		}
	case node.LoopWhile:
		items, truncated, err = e.runWhile(ctx, cfg, scope)
	default:
		err = fmt.Errorf("unknown loop mode %q", cfg.Mode)
	}
	if err != nil {
		return rec.Fail(node.NewError(node.CodeLoopFailed, err.Error(), nil, false), nil)
	}

	if truncated {
		rec.Warn(fmt.Sprintf("loop stopped at maxIterations=%d", cfg.MaxIterations), nil)
	}

	iterations := make([]any, len(items))
	for i, item := range items {
		iterations[i] = map[string]any{
			cfg.IndexVariable: i,
			cfg.ItemVariable:  item,
		}
	}
	rec.Info(fmt.Sprintf("loop expanded to %d iterations", len(items)), map[string]any{"mode": cfg.Mode})

	return rec.Succeed(map[string]any{
		"items":      items,
		"iterations": iterations,
		"count":      len(items),
		"truncated":  truncated,
	})
}

// runWhile вычисляет условие перед каждой итерацией.
func (e *LoopExecutor) runWhile(ctx context.Context, cfg node.LoopConfig, scope map[string]any) ([]any, bool, error) {
	var items []any
	iterScope := engine.MergeVars(scope)

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, false, fmt.Errorf("loop cancelled: %w", err)
		}

		iterScope[cfg.IndexVariable] = i
		iterScope["iteration"] = i + 1

		ok, err := EvaluateExpression(cfg.Condition, iterScope)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return items, false, nil
		}
		if i >= cfg.MaxIterations {
			return items, true, nil
		}
		items = append(items, i)
	}
}

// loopSource находит массив для forEach.
func loopSource(cfg node.LoopConfig, scope, inputs map[string]any) ([]any, error) {
	if cfg.Items != nil {
		return cfg.Items, nil
	}

	var raw any
	switch {
	case cfg.Source != "" && engine.HasTemplate(cfg.Source):
		raw = engine.ResolveValue(cfg.Source, scope)
	case cfg.Source != "":
		v, ok := engine.LookupPath(scope, cfg.Source)
		if !ok {
			return nil, fmt.Errorf("source %q not found", cfg.Source)
		}
		raw = v
	default:
		v, ok := firstDefined(inputs, "items", "input", "data")
		if !ok {
			return nil, fmt.Errorf("no items: set items, source or provide inputs.items")
		}
		raw = v
	}

	return toList(raw)
}

// toList приводит значение к []any. Строка разбирается как JSON массив.
func toList(v any) ([]any, error) {
	switch list := v.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return list, nil
	case string:
		var parsed []any
		if err := xjson.Unmarshal([]byte(list), &parsed); err != nil {
			return nil, fmt.Errorf("source is a string, not an array")
		}
		return parsed, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("source is %T, not an array", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// EvaluateExpression вычисляет строковое условие вида "{{index}} < 5".
//
// После рендеринга ищется оператор сравнения; без оператора строка
// проверяется на истинность. Неразрешённый токен делает условие ложным.
func EvaluateExpression(expr string, scope map[string]any) (bool, error) {
	rendered := strings.TrimSpace(engine.RenderTemplate(expr, scope))
	if engine.HasTemplate(rendered) {
		return false, nil
	}

	for _, op := range comparisonOperators {
		if i := strings.Index(rendered, op); i >= 0 {
			return EvaluateCondition(node.Condition{
				Left:     strings.TrimSpace(rendered[:i]),
				Operator: op,
				Right:    strings.Trim(strings.TrimSpace(rendered[i+len(op):]), `"'`),
			}, nil)
		}
	}
	return truthy(rendered), nil
}

// truthy — строка, отличная от пустой, false, 0, no, null.
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "0", "no", "null", "undefined", "nil":
		return false
	}
	return true
}
