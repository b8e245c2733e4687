package steps

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/shaiso/nodeflow/internal/engine"
	"github.com/shaiso/nodeflow/internal/node"
)

// Операторы сравнения.
const (
	opEq          = "eq"
	opNeq         = "neq"
	opGt          = "gt"
	opGte         = "gte"
	opLt          = "lt"
	opLte         = "lte"
	opContains    = "contains"
	opNotContains = "notContains"
	opStartsWith  = "startsWith"
	opEndsWith    = "endsWith"
	opMatches     = "matches"
	opEmpty       = "empty"
	opNotEmpty    = "notEmpty"
)

// operatorAliases — альтернативные записи операторов.
var operatorAliases = map[string]string{
	"==":         opEq,
	"equals":     opEq,
	"!=":         opNeq,
	"notEquals":  opNeq,
	">":          opGt,
	">=":         opGte,
	"<":          opLt,
	"<=":         opLte,
	"isEmpty":    opEmpty,
	"isNotEmpty": opNotEmpty,
	"regex":      opMatches,
}

// ConditionExecutor — исполнитель ноды condition.
//
// Вычисляет группы сравнений и возвращает ветку "true" или "false".
//
// Конфигурация:
//
//	{
//	    "logic": "and",
//	    "conditions": [
//	        {"logic": "or", "conditions": [
//	            {"left": "{{status}}", "operator": "eq", "right": "active"},
//	            {"left": "{{score}}", "operator": "gt", "right": "80"}
//	        ]}
//	    ]
//	}
//
// Outputs:
//
//	{"result": true, "branch": "true", "groups": [true]}
type ConditionExecutor struct{}

// NewConditionExecutor создаёт исполнитель.
func NewConditionExecutor() *ConditionExecutor {
	return &ConditionExecutor{}
}

// Type возвращает тип ноды.
func (e *ConditionExecutor) Type() string {
	return node.TypeCondition
}

// Validate проверяет структуру и операторы.
func (e *ConditionExecutor) Validate(config any) node.ValidationResult {
	cfg, res := node.ValidateConfig[node.ConditionConfig](config)
	if !res.Valid {
		return res
	}

	var errs []string
	for gi, group := range cfg.Conditions {
		for ci, c := range group.Conditions {
			if _, ok := normalizeOperator(c.Operator); !ok {
				errs = append(errs, fmt.Sprintf("conditions[%d].conditions[%d]: unknown operator %q", gi, ci, c.Operator))
			}
		}
	}
	return node.Invalid(errs...)
}

// Execute вычисляет условие.
func (e *ConditionExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()

	if nerr := cancelled(ctx, node.CodeConditionFailed); nerr != nil {
		return rec.Fail(nerr, nil)
	}

	cfg, nerr := decodeConfig(nc, node.ConditionConfig{Logic: "and"})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}

	result, groups, err := EvaluateConditions(cfg, nc.Scope())
	if err != nil {
		return rec.Fail(node.NewError(node.CodeConditionFailed, err.Error(), nil, false), nil)
	}

	branch := "false"
	if result {
		branch = "true"
	}
	rec.Info("condition evaluated", map[string]any{"result": result, "groups": groups})

	return rec.Succeed(map[string]any{
		"result": result,
		"branch": branch,
		"groups": groups,
	})
}

// EvaluateConditions вычисляет все группы и объединяет их логикой конфига.
func EvaluateConditions(cfg node.ConditionConfig, scope map[string]any) (bool, []bool, error) {
	groups := make([]bool, 0, len(cfg.Conditions))
	for i, group := range cfg.Conditions {
		ok, err := evaluateGroup(group, scope)
		if err != nil {
			return false, nil, fmt.Errorf("group %d: %w", i, err)
		}
		groups = append(groups, ok)
	}
	return combine(cfg.Logic, groups), groups, nil
}

func evaluateGroup(group node.ConditionGroup, scope map[string]any) (bool, error) {
	results := make([]bool, 0, len(group.Conditions))
	for _, c := range group.Conditions {
		ok, err := EvaluateCondition(c, scope)
		if err != nil {
			return false, err
		}
		results = append(results, ok)
	}
	return combine(group.Logic, results), nil
}

// combine: and над пустым списком — true, or — false.
func combine(logic string, values []bool) bool {
	if logic == "or" {
		for _, v := range values {
			if v {
				return true
			}
		}
		return false
	}

	for _, v := range values {
		if !v {
			return false
		}
	}
	return true
}

func normalizeOperator(op string) (string, bool) {
	op = strings.TrimSpace(op)
	if alias, ok := operatorAliases[op]; ok {
		return alias, true
	}
	switch op {
	case opEq, opNeq, opGt, opGte, opLt, opLte, opContains, opNotContains,
		opStartsWith, opEndsWith, opMatches, opEmpty, opNotEmpty:
		return op, true
	}
	return "", false
}

// EvaluateCondition вычисляет одно сравнение.
func EvaluateCondition(c node.Condition, scope map[string]any) (bool, error) {
	op, ok := normalizeOperator(c.Operator)
	if !ok {
		return false, fmt.Errorf("unknown operator %q", c.Operator)
	}

	left := resolveOperand(c.Left, scope)
	right := resolveOperand(c.Right, scope)

	switch op {
	case opEq:
		return valuesEqual(left, right), nil
	case opNeq:
		return !valuesEqual(left, right), nil
	case opGt:
		return compareValues(left, right) > 0, nil
	case opGte:
		return compareValues(left, right) >= 0, nil
	case opLt:
		return compareValues(left, right) < 0, nil
	case opLte:
		return compareValues(left, right) <= 0, nil
	case opContains:
		return containsValue(left, right), nil
	case opNotContains:
		return !containsValue(left, right), nil
	case opStartsWith:
		return strings.HasPrefix(engine.FormatValue(left), engine.FormatValue(right)), nil
	case opEndsWith:
		return strings.HasSuffix(engine.FormatValue(left), engine.FormatValue(right)), nil
	case opMatches:
		re, err := regexp.Compile(engine.FormatValue(right))
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", engine.FormatValue(right), err)
		}
		return re.MatchString(engine.FormatValue(left)), nil
	case opEmpty:
		return isEmpty(left), nil
	case opNotEmpty:
		return !isEmpty(left), nil
	}
	return false, fmt.Errorf("unknown operator %q", c.Operator)
}

// resolveOperand превращает операнд в значение.
//
// Строка из одного токена даёт типизированное значение (или nil, если путь не найден),
// строка с токенами рендерится, голая строка, совпадающая с путём в scope, даёт
// значение по пути. Иначе операнд — литерал.
func resolveOperand(v any, scope map[string]any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}

	if path, ok := engine.ExactTokenPath(s); ok {
		return engine.GetValueByPath(scope, path)
	}
	if engine.HasTemplate(s) {
		return engine.RenderTemplate(s, scope)
	}
	if val, ok := engine.LookupPath(scope, s); ok && val != nil {
		return val
	}
	return s
}

// valuesEqual сравнивает численно, если оба операнда — числа, иначе по строковому виду.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return engine.FormatValue(a) == engine.FormatValue(b)
}

// compareValues возвращает -1, 0 или 1.
func compareValues(a, b any) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(engine.FormatValue(a), engine.FormatValue(b))
}

// containsValue: подстрока для строк, элемент для слайсов, ключ для map.
func containsValue(container, item any) bool {
	switch c := container.(type) {
	case nil:
		return false
	case string:
		return strings.Contains(c, engine.FormatValue(item))
	case map[string]any:
		_, ok := c[engine.FormatValue(item)]
		return ok
	}

	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if valuesEqual(rv.Index(i).Interface(), item) {
				return true
			}
		}
		return false
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return false
		}
		return rv.MapIndex(reflect.ValueOf(engine.FormatValue(item)).Convert(rv.Type().Key())).IsValid()
	}
	return strings.Contains(engine.FormatValue(container), engine.FormatValue(item))
}

// isEmpty: nil, пустая строка, пустой слайс или map.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
