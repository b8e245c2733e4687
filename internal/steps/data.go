package steps

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/shaiso/nodeflow/internal/engine"
	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/xjson"
)

// Типы значений ноды variable.
const (
	valueString  = "string"
	valueNumber  = "number"
	valueBoolean = "boolean"
	valueObject  = "object"
	valueArray   = "array"
)

// VariableExecutor — исполнитель ноды variable.
//
// Значение-строка сначала рендерится из scope, потом приводится к valueType.
//
// Outputs:
//
//	{"<variableName>": value, "value": value, "name": "<variableName>", "type": "number"}
type VariableExecutor struct{}

// NewVariableExecutor создаёт исполнитель.
func NewVariableExecutor() *VariableExecutor {
	return &VariableExecutor{}
}

// Type возвращает тип ноды.
func (e *VariableExecutor) Type() string {
	return node.TypeVariable
}

// Validate проверяет имя переменной и тип значения.
func (e *VariableExecutor) Validate(config any) node.ValidationResult {
	_, res := node.ValidateConfig[node.VariableConfig](config)
	return res
}

// Execute приводит значение к типу.
func (e *VariableExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()

	cfg, nerr := decodeConfig(nc, node.VariableConfig{})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}
	if !node.IsIdentifier(cfg.VariableName) {
		return rec.Fail(node.Errorf(node.CodeInvalidConfig, "invalid variable name %q", cfg.VariableName), nil)
	}

	value, err := CoerceValue(cfg.Value, cfg.ValueType, nc.Scope())
	if err != nil {
		return rec.Fail(node.NewError(node.CodeVariableSetFailed, err.Error(), nil, false), nil)
	}

	rec.Info(fmt.Sprintf("set variable %q to %s", cfg.VariableName, truncate(engine.FormatValue(value), 100)),
		map[string]any{"type": cfg.ValueType})

	return rec.Succeed(map[string]any{
		cfg.VariableName: value,
		"value":          value,
		"name":           cfg.VariableName,
		"type":           cfg.ValueType,
	})
}

// CoerceValue приводит значение к valueType.
//
//   - string  — строковый вид, nil становится ""
//   - number  — число, иначе ошибка ErrNotANumber
//   - boolean — true/1/yes и false/0/no, остальное по истинности
//   - object  — map как есть, строка разбирается как JSON, иначе {}
//   - array   — слайс как есть, строка как JSON массив или список через запятую
func CoerceValue(value any, valueType string, scope map[string]any) (any, error) {
	if s, ok := value.(string); ok {
		value = engine.RenderTemplate(s, scope)
	}

	switch valueType {
	case valueString:
		return engine.FormatValue(value), nil

	case valueNumber:
		if value == nil {
			return float64(0), nil
		}
		if b, ok := value.(bool); ok {
			if b {
				return float64(1), nil
			}
			return float64(0), nil
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return float64(0), nil
		}
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("cannot convert %q to number: %w", engine.FormatValue(value), ErrNotANumber)
		}
		return f, nil

	case valueBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "1", "yes":
				return true, nil
			case "false", "0", "no", "":
				return false, nil
			}
			return true, nil
		}
		if f, ok := toFloat(value); ok {
			return f != 0 && !math.IsNaN(f), nil
		}
		return value != nil, nil

	case valueObject:
		switch v := value.(type) {
		case map[string]any:
			return v, nil
		case string:
			var obj map[string]any
			if err := xjson.Unmarshal([]byte(v), &obj); err != nil || obj == nil {
				return map[string]any{}, nil
			}
			return obj, nil
		}
		if value != nil && reflect.ValueOf(value).Kind() == reflect.Map {
			return value, nil
		}
		return map[string]any{}, nil

	case valueArray:
		switch v := value.(type) {
		case []any:
			return v, nil
		case string:
			var list []any
			if err := xjson.Unmarshal([]byte(v), &list); err == nil && list != nil {
				return list, nil
			}
			parts := strings.Split(v, ",")
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = strings.TrimSpace(p)
			}
			return out, nil
		}
		if list, err := toList(value); err == nil && value != nil {
			return list, nil
		}
		return []any{value}, nil
	}

	return value, nil
}

// Типы преобразований ноды transform.
const (
	transformJSONPath   = "jsonPath"
	transformExpression = "expression"
	transformMap        = "map"
	transformFilter     = "filter"
	transformReduce     = "reduce"
)

// TransformExecutor — исполнитель ноды transform.
//
// Вход берётся из input (путь или шаблон), иначе из inputs.data,
// inputs.input или variables.input.
//
// Outputs:
//
//	{"data": result, "output": result}
type TransformExecutor struct{}

// NewTransformExecutor создаёт исполнитель.
func NewTransformExecutor() *TransformExecutor {
	return &TransformExecutor{}
}

// Type возвращает тип ноды.
func (e *TransformExecutor) Type() string {
	return node.TypeTransform
}

// Validate проверяет, что у выбранного преобразования есть параметры.
func (e *TransformExecutor) Validate(config any) node.ValidationResult {
	cfg, res := node.ValidateConfig[node.TransformConfig](config)
	if !res.Valid {
		return res
	}

	var errs []string
	switch cfg.TransformType {
	case "":
		errs = append(errs, "transformType is required")
	case transformJSONPath:
		if cfg.JSONPath == "" {
			errs = append(errs, "jsonPath is required")
		}
	case transformExpression:
		if cfg.Expression == "" {
			errs = append(errs, "expression is required")
		}
	case transformMap:
		if len(cfg.Mapping) == 0 {
			errs = append(errs, "mapping is required")
		}
	case transformFilter:
		if cfg.Filter == nil {
			errs = append(errs, "filter is required")
		} else if _, ok := normalizeOperator(cfg.Filter.Operator); !ok {
			errs = append(errs, fmt.Sprintf("filter: unknown operator %q", cfg.Filter.Operator))
		}
	case transformReduce:
		if cfg.Reducer == "" {
			errs = append(errs, "reducer is required")
		}
	}
	return node.Invalid(errs...)
}

// Execute применяет преобразование.
func (e *TransformExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()

	cfg, nerr := decodeConfig(nc, node.TransformConfig{})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}

	scope := nc.Scope()
	input := transformInput(cfg, nc)

	result, err := applyTransform(cfg, input, scope)
	if err != nil {
		return rec.Fail(node.NewError(node.CodeTransformFailed, err.Error(), nil, false), nil)
	}

	rec.Info(fmt.Sprintf("data transformed using %s", orDefault(cfg.TransformType, "passthrough")), nil)
	return rec.Succeed(map[string]any{
		"data":   result,
		"output": result,
	})
}

func transformInput(cfg node.TransformConfig, nc *node.Context) any {
	if cfg.Input != "" {
		if engine.HasTemplate(cfg.Input) {
			return engine.ResolveValue(cfg.Input, nc.Scope())
		}
		return engine.GetValueByPath(nc.Scope(), cfg.Input)
	}
	if v, ok := firstDefined(nc.Inputs, "data", "input"); ok {
		return v
	}
	return nc.Variables["input"]
}

func applyTransform(cfg node.TransformConfig, input any, scope map[string]any) (any, error) {
	switch cfg.TransformType {
	case transformJSONPath:
		if cfg.JSONPath == "" {
			return nil, fmt.Errorf("jsonPath is required")
		}
		return engine.GetValueByPath(input, strings.TrimPrefix(strings.TrimPrefix(cfg.JSONPath, "$"), ".")), nil

	case transformExpression:
		if cfg.Expression == "" {
			return nil, fmt.Errorf("expression is required")
		}
		return engine.ResolveValue(cfg.Expression, engine.MergeVars(scope, map[string]any{"data": input})), nil

	case transformMap:
		if len(cfg.Mapping) == 0 {
			return nil, fmt.Errorf("mapping is required")
		}
		if list, err := toList(input); err == nil && input != nil {
			if _, isString := input.(string); !isString {
				out := make([]any, len(list))
				for i, item := range list {
					out[i] = mapItem(cfg.Mapping, item, scope)
				}
				return out, nil
			}
		}
		return mapItem(cfg.Mapping, input, scope), nil

	case transformFilter:
		if cfg.Filter == nil {
			return nil, fmt.Errorf("filter is required")
		}
		list, err := toList(input)
		if err != nil {
			return nil, fmt.Errorf("filter input: %w", err)
		}
		out := make([]any, 0, len(list))
		for i, item := range list {
			ok, err := EvaluateCondition(*cfg.Filter, itemScope(scope, item, i))
			if err != nil {
				return nil, fmt.Errorf("filter: %w", err)
			}
			if ok {
				out = append(out, item)
			}
		}
		return out, nil

	case transformReduce:
		list, err := toList(input)
		if err != nil {
			return nil, fmt.Errorf("reduce input: %w", err)
		}
		return reduce(cfg, list)
	}

	return input, nil
}

// itemScope добавляет в scope текущий элемент как item и его поля верхнего уровня.
func itemScope(scope map[string]any, item any, index int) map[string]any {
	fields, _ := item.(map[string]any)
	return engine.MergeVars(scope, fields, map[string]any{"item": item, "index": index})
}

// mapItem строит объект: ключ — имя поля, значение — путь в элементе или шаблон.
func mapItem(mapping map[string]string, item any, scope map[string]any) map[string]any {
	out := make(map[string]any, len(mapping))
	for key, expr := range mapping {
		if engine.HasTemplate(expr) {
			out[key] = engine.ResolveValue(expr, itemScope(scope, item, 0))
			continue
		}
		out[key] = engine.GetValueByPath(item, expr)
	}
	return out
}

func reduce(cfg node.TransformConfig, list []any) (any, error) {
	values := list
	if cfg.Field != "" {
		values = make([]any, len(list))
		for i, item := range list {
			values[i] = engine.GetValueByPath(item, cfg.Field)
		}
	}

	switch cfg.Reducer {
	case "count":
		return len(values), nil
	case "join":
		sep := cfg.Separator
		if sep == "" {
			sep = ","
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = engine.FormatValue(v)
		}
		return strings.Join(parts, sep), nil
	}

	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("reduce %s: %q: %w", cfg.Reducer, engine.FormatValue(v), ErrNotANumber)
		}
		nums = append(nums, f)
	}

	switch cfg.Reducer {
	case "sum", "":
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		return sum, nil
	case "avg":
		if len(nums) == 0 {
			return nil, nil
		}
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		return sum / float64(len(nums)), nil
	case "min", "max":
		if len(nums) == 0 {
			return nil, nil
		}
		sort.Float64s(nums)
		if cfg.Reducer == "min" {
			return nums[0], nil
		}
		return nums[len(nums)-1], nil
	}
	return nil, fmt.Errorf("unknown reducer %q", cfg.Reducer)
}

// Типы слияния ноды merge.
const (
	mergeObject = "object"
	mergeArray  = "array"
	mergeConcat = "concat"
)

// MergeExecutor — исполнитель ноды merge.
//
// Источники берутся из inputs в порядке sources, а без него в порядке
// сортировки ключей. При слиянии объектов более поздний источник
// перекрывает ключи более раннего.
//
// Outputs:
//
//	{"data": result, "output": result}
type MergeExecutor struct{}

// NewMergeExecutor создаёт исполнитель.
func NewMergeExecutor() *MergeExecutor {
	return &MergeExecutor{}
}

// Type возвращает тип ноды.
func (e *MergeExecutor) Type() string {
	return node.TypeMerge
}

// Validate проверяет тип слияния.
func (e *MergeExecutor) Validate(config any) node.ValidationResult {
	cfg, res := node.ValidateConfig[node.MergeConfig](config)
	if !res.Valid {
		return res
	}
	if cfg.MergeType == "" {
		return node.Invalid("mergeType is required")
	}
	return res
}

// Execute объединяет входы.
func (e *MergeExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()

	cfg, nerr := decodeConfig(nc, node.MergeConfig{MergeType: mergeObject})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}

	values := mergeSources(cfg, nc.Inputs)

	var result any
	switch cfg.MergeType {
	case mergeObject:
		merged := make(map[string]any)
		for _, v := range values {
			obj, ok := v.(map[string]any)
			if !ok {
				rec.Debug(fmt.Sprintf("skip non-object source of type %T", v), nil)
				continue
			}
			for k, val := range obj {
				merged[k] = val
			}
		}
		result = merged
	case mergeArray:
		result = values
	case mergeConcat:
		out := make([]any, 0, len(values))
		for _, v := range values {
			if list, ok := v.([]any); ok {
				out = append(out, list...)
				continue
			}
			out = append(out, v)
		}
		result = out
	default:
		return rec.Fail(node.Errorf(node.CodeMergeFailed, "unknown merge type %q", cfg.MergeType), nil)
	}

	rec.Info(fmt.Sprintf("merged %d inputs using %s", len(values), cfg.MergeType), nil)
	return rec.Succeed(map[string]any{
		"data":   result,
		"output": result,
	})
}

// mergeSources возвращает не-nil значения входов в порядке слияния.
func mergeSources(cfg node.MergeConfig, inputs map[string]any) []any {
	keys := cfg.Sources
	if len(keys) == 0 {
		keys = make([]string, 0, len(inputs))
		for k := range inputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	values := make([]any, 0, len(keys))
	for _, k := range keys {
		v := engine.GetValueByPath(inputs, k)
		if v != nil {
			values = append(values, v)
		}
	}
	return values
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
