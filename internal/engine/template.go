package engine

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shaiso/nodeflow/internal/xjson"
)

// tokenPattern — токен подстановки {{ path }}.
var tokenPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// exactToken — строка, целиком состоящая из одного токена.
var exactToken = regexp.MustCompile(`^\{\{\s*([^{}]+?)\s*\}\}$`)

// RenderTemplate подставляет значения из vars вместо токенов {{path}}.
//
// Правила подстановки:
//   - путь не найден или значение nil — токен остаётся как есть
//   - строка подставляется без изменений
//   - map и slice сериализуются в JSON
//   - остальные значения форматируются через FormatValue
//
// Строка без "{{" возвращается без изменений.
func RenderTemplate(tmpl string, vars map[string]any) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}

	return tokenPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		m := tokenPattern.FindStringSubmatch(token)
		v := GetValueByPath(vars, strings.TrimSpace(m[1]))
		if v == nil {
			return token
		}
		return FormatValue(v)
	})
}

// ExtractTemplateVariables возвращает пути всех токенов шаблона
// без повторов, в порядке первого появления.
func ExtractTemplateVariables(tmpl string) []string {
	vars := []string{}
	seen := make(map[string]struct{})

	for _, m := range tokenPattern.FindAllStringSubmatch(tmpl, -1) {
		path := strings.TrimSpace(m[1])
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		vars = append(vars, path)
	}
	return vars
}

// HasTemplate проверяет, содержит ли строка хотя бы один токен.
func HasTemplate(s string) bool {
	return tokenPattern.MatchString(s)
}

// ExactTokenPath возвращает путь, если строка целиком — один токен {{path}}.
func ExactTokenPath(s string) (string, bool) {
	m := exactToken.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ResolveValue разрешает строку в значение.
//
// Если строка целиком — один токен {{path}} и путь найден, возвращается
// значение с исходным типом. Иначе строка рендерится как шаблон.
func ResolveValue(s string, vars map[string]any) any {
	if path, ok := ExactTokenPath(s); ok {
		if v := GetValueByPath(vars, path); v != nil {
			return v
		}
		return s
	}
	return RenderTemplate(s, vars)
}

// RenderValue рендерит произвольное значение.
// Рекурсивно обрабатывает map и slice, остальные типы возвращает как есть.
func RenderValue(value any, vars map[string]any) any {
	switch v := value.(type) {
	case nil:
		return nil

	case string:
		return RenderTemplate(v, vars)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = RenderValue(val, vars)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = RenderValue(val, vars)
		}
		return result

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			result[key] = RenderTemplate(val, vars)
		}
		return result

	case []string:
		result := make([]string, len(v))
		for i, val := range v {
			result[i] = RenderTemplate(val, vars)
		}
		return result

	default:
		return value
	}
}

// FormatValue приводит значение к строке для подстановки в шаблон.
// Целые float64 печатаются без дробной части, map и slice — как JSON.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return formatFloat(float64(val), 32)
	case float64:
		return formatFloat(val, 64)
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	}

	b, err := xjson.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// MergeVars объединяет области видимости слева направо.
// Более поздние map перекрывают ключи более ранних.
func MergeVars(scopes ...map[string]any) map[string]any {
	size := 0
	for _, s := range scopes {
		size += len(s)
	}
	merged := make(map[string]any, size)
	for _, s := range scopes {
		for k, v := range s {
			merged[k] = v
		}
	}
	return merged
}
