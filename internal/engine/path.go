package engine

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// indexedSegment — сегмент вида name[0] или name[0][1].
var indexedSegment = regexp.MustCompile(`^([^\[\]]*)((?:\[\d+\])+)$`)

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// pathStep — один шаг обхода: ключ map либо индекс слайса.
type pathStep struct {
	key     string
	index   int
	isIndex bool
}

// parsePath разбирает путь "a.b[0].c" в последовательность шагов.
func parsePath(path string) []pathStep {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	var steps []pathStep
	for _, part := range strings.Split(path, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		m := indexedSegment.FindStringSubmatch(part)
		if m == nil {
			steps = append(steps, pathStep{key: part})
			continue
		}

		if m[1] != "" {
			steps = append(steps, pathStep{key: m[1]})
		}
		for _, idx := range indexPattern.FindAllStringSubmatch(m[2], -1) {
			n, err := strconv.Atoi(idx[1])
			if err != nil {
				// Переполнение int: такого индекса заведомо нет
				n = -1
			}
			steps = append(steps, pathStep{index: n, isIndex: true})
		}
	}
	return steps
}

// GetValueByPath возвращает значение по пути или nil, если путь не разрешается.
//
// Поддерживаются сегменты через точку, индексы name[i] и числовые сегменты
// для слайсов (items.0). Отсутствующий промежуточный элемент даёт nil, а не панику.
func GetValueByPath(obj any, path string) any {
	v, _ := LookupPath(obj, path)
	return v
}

// LookupPath как GetValueByPath, но сообщает, был ли путь найден.
func LookupPath(obj any, path string) (any, bool) {
	steps := parsePath(path)
	if len(steps) == 0 {
		return nil, false
	}

	current := obj
	for _, step := range steps {
		var ok bool
		if step.isIndex {
			current, ok = indexOf(current, step.index)
		} else {
			current, ok = childOf(current, step.key)
		}
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// childOf возвращает дочерний элемент по ключу.
func childOf(current any, key string) (any, bool) {
	switch c := current.(type) {
	case nil:
		return nil, false
	case map[string]any:
		v, ok := c[key]
		return v, ok
	case map[string]string:
		v, ok := c[key]
		return v, ok
	}

	// Числовой сегмент для слайса: items.0
	if n, err := strconv.Atoi(key); err == nil {
		if v, ok := indexOf(current, n); ok {
			return v, true
		}
	}

	rv := reflect.ValueOf(current)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Struct:
		return structField(rv, key)
	}
	return nil, false
}

// structField ищет экспортируемое поле по json тегу или имени.
func structField(rv reflect.Value, key string) (any, bool) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == key || (name == "" && strings.EqualFold(f.Name, key)) {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

// indexOf возвращает элемент слайса или массива.
func indexOf(current any, i int) (any, bool) {
	if i < 0 {
		return nil, false
	}

	switch c := current.(type) {
	case nil:
		return nil, false
	case []any:
		if i >= len(c) {
			return nil, false
		}
		return c[i], true
	case []string:
		if i >= len(c) {
			return nil, false
		}
		return c[i], true
	case []map[string]any:
		if i >= len(c) {
			return nil, false
		}
		return c[i], true
	}

	rv := reflect.ValueOf(current)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if i >= rv.Len() {
		return nil, false
	}
	return rv.Index(i).Interface(), true
}

// SetValueByPath записывает value по пути, создавая недостающие map и расширяя слайсы.
//
// Корень изменяется на месте. Если промежуточный элемент — скаляр,
// возвращается ErrPathConflict, а корень остаётся без изменений на этом уровне.
func SetValueByPath(root map[string]any, path string, value any) error {
	if root == nil {
		return ErrNilRoot
	}
	steps := parsePath(path)
	if len(steps) == 0 {
		return ErrEmptyPath
	}
	if steps[0].isIndex {
		return fmt.Errorf("%w: path %q starts with an index", ErrPathConflict, path)
	}

	_, err := setIn(root, steps, value)
	return err
}

// setIn рекурсивно записывает value и возвращает обновлённый контейнер.
func setIn(current any, steps []pathStep, value any) (any, error) {
	if len(steps) == 0 {
		return value, nil
	}
	step := steps[0]

	if !step.isIndex {
		if list, ok := current.([]any); ok {
			if n, err := strconv.Atoi(step.key); err == nil {
				step = pathStep{index: n, isIndex: true}
				return setInSlice(list, step, steps[1:], value)
			}
		}

		m, ok := current.(map[string]any)
		if current == nil || (ok && m == nil) {
			m, ok = make(map[string]any), true
		}
		if !ok {
			return nil, fmt.Errorf("%w: cannot set %q on %T", ErrPathConflict, step.key, current)
		}
		child, err := setIn(m[step.key], steps[1:], value)
		if err != nil {
			return nil, err
		}
		m[step.key] = child
		return m, nil
	}

	list, ok := current.([]any)
	if current == nil {
		list, ok = nil, true
	}
	if !ok {
		return nil, fmt.Errorf("%w: cannot index %T", ErrPathConflict, current)
	}
	return setInSlice(list, step, steps[1:], value)
}

func setInSlice(list []any, step pathStep, rest []pathStep, value any) (any, error) {
	if step.index < 0 {
		return nil, fmt.Errorf("%w: invalid index", ErrPathConflict)
	}
	for len(list) <= step.index {
		list = append(list, nil)
	}
	child, err := setIn(list[step.index], rest, value)
	if err != nil {
		return nil, err
	}
	list[step.index] = child
	return list, nil
}
