package steps

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shaiso/nodeflow/internal/engine"
	"github.com/shaiso/nodeflow/internal/node"
)

// TemplateExecutor — исполнитель ноды template.
//
// Outputs:
//
//	{"text": "Hello, Ada", "output": "Hello, Ada"}
type TemplateExecutor struct{}

// NewTemplateExecutor создаёт исполнитель.
func NewTemplateExecutor() *TemplateExecutor {
	return &TemplateExecutor{}
}

// Type возвращает тип ноды.
func (e *TemplateExecutor) Type() string {
	return node.TypeTemplate
}

// Validate проверяет наличие шаблона.
func (e *TemplateExecutor) Validate(config any) node.ValidationResult {
	_, res := node.ValidateConfig[node.TemplateConfig](config)
	return res
}

// Execute рендерит шаблон.
func (e *TemplateExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()

	cfg, nerr := decodeConfig(nc, node.TemplateConfig{})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}

	text := engine.RenderTemplate(cfg.Template, nc.Scope())
	if missing := unresolved(text); len(missing) > 0 {
		rec.Warn("template has unresolved variables", map[string]any{"variables": missing})
	}

	return rec.Succeed(map[string]any{
		"text":   text,
		"output": text,
	})
}

// unresolved возвращает пути токенов, оставшихся после рендеринга.
func unresolved(rendered string) []string {
	if !engine.HasTemplate(rendered) {
		return nil
	}
	return engine.ExtractTemplateVariables(rendered)
}

// Режимы ноды regex.
const (
	regexFirst   = "first"
	regexAll     = "all"
	regexGroups  = "groups"
	regexReplace = "replace"
)

// allowedRegexFlags — флаги RE2, которые можно задать в конфиге.
const allowedRegexFlags = "imsU"

// RegexExecutor — исполнитель ноды regex.
//
// Флаги i, m, s, U передаются как префикс (?flags). Флаг g из
// JavaScript игнорируется: поиск всех совпадений задаётся режимом all.
//
// Outputs:
//
//	{
//	    "matched": true,
//	    "match": "2024-01-15",
//	    "groups": ["2024", "01", "15"],
//	    "named": {"year": "2024"},
//	    "matches": ["2024-01-15"],
//	    "count": 1
//	}
type RegexExecutor struct{}

// NewRegexExecutor создаёт исполнитель.
func NewRegexExecutor() *RegexExecutor {
	return &RegexExecutor{}
}

// Type возвращает тип ноды.
func (e *RegexExecutor) Type() string {
	return node.TypeRegex
}

// Validate проверяет, что шаблон компилируется.
func (e *RegexExecutor) Validate(config any) node.ValidationResult {
	cfg, res := node.ValidateConfig[node.RegexConfig](config)
	if !res.Valid {
		return res
	}
	if engine.HasTemplate(cfg.Pattern) {
		return res
	}
	if _, err := compileRegex(cfg.Pattern, cfg.Flags); err != nil {
		return node.Invalid(err.Error())
	}
	return res
}

// Execute ищет совпадения.
func (e *RegexExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()

	cfg, nerr := decodeConfig(nc, node.RegexConfig{Input: "{{input}}", Mode: regexFirst})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}

	scope := nc.Scope()
	re, err := compileRegex(engine.RenderTemplate(cfg.Pattern, scope), cfg.Flags)
	if err != nil {
		return rec.Fail(node.NewError(node.CodeRegexFailed, err.Error(), nil, false), nil)
	}

	input := engine.FormatValue(resolveInput(cfg.Input, scope))

	var outputs map[string]any
	switch cfg.Mode {
	case regexReplace:
		text := re.ReplaceAllString(input, engine.RenderTemplate(cfg.Replacement, scope))
		outputs = map[string]any{
			"matched": re.MatchString(input),
			"text":    text,
			"output":  text,
			"count":   len(re.FindAllStringIndex(input, -1)),
		}
	case regexAll:
		found := re.FindAllStringSubmatch(input, -1)
		matches := make([]any, len(found))
		all := make([]any, len(found))
		for i, m := range found {
			matches[i] = m[0]
			all[i] = stringsToAny(m[1:])
		}
		outputs = map[string]any{
			"matched": len(found) > 0,
			"matches": matches,
			"groups":  all,
			"count":   len(found),
			"output":  matches,
		}
	default:
		m := re.FindStringSubmatch(input)
		outputs = map[string]any{
			"matched": m != nil,
			"match":   nil,
			"groups":  []any{},
			"named":   map[string]any{},
			"count":   0,
			"output":  nil,
		}
		if m != nil {
			named := namedGroups(re, m)
			outputs["match"] = m[0]
			outputs["groups"] = stringsToAny(m[1:])
			outputs["named"] = named
			outputs["count"] = 1
			outputs["output"] = m[0]
			if cfg.Mode == regexGroups {
				outputs["output"] = named
			}
		}
	}

	rec.Info(fmt.Sprintf("regex %s: %v", cfg.Mode, outputs["matched"]), nil)
	return rec.Succeed(outputs)
}

// compileRegex компилирует шаблон с флагами.
func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	var keep strings.Builder
	for _, f := range flags {
		switch {
		case f == 'g':
			continue
		case strings.ContainsRune(allowedRegexFlags, f):
			if !strings.ContainsRune(keep.String(), f) {
				keep.WriteRune(f)
			}
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", f)
		}
	}

	if keep.Len() > 0 {
		pattern = "(?" + keep.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return re, nil
}

func namedGroups(re *regexp.Regexp, m []string) map[string]any {
	named := make(map[string]any)
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" || i >= len(m) {
			continue
		}
		named[name] = m[i]
	}
	return named
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// resolveInput разрешает вход ноды. Неразрешённый одиночный токен даёт nil,
// чтобы не обрабатывать текст самого токена.
func resolveInput(expr string, scope map[string]any) any {
	if path, ok := engine.ExactTokenPath(expr); ok {
		return engine.GetValueByPath(scope, path)
	}
	return engine.RenderTemplate(expr, scope)
}

// Операции ноды split-join.
const (
	opSplit = "split"
	opJoin  = "join"
)

// SplitJoinExecutor — исполнитель ноды split-join.
//
// split: строка → items. join: массив → text.
// Разделитель по умолчанию ",".
type SplitJoinExecutor struct{}

// NewSplitJoinExecutor создаёт исполнитель.
func NewSplitJoinExecutor() *SplitJoinExecutor {
	return &SplitJoinExecutor{}
}

// Type возвращает тип ноды.
func (e *SplitJoinExecutor) Type() string {
	return node.TypeSplitJoin
}

// Validate проверяет операцию.
func (e *SplitJoinExecutor) Validate(config any) node.ValidationResult {
	_, res := node.ValidateConfig[node.SplitJoinConfig](config)
	return res
}

// Execute делит или склеивает.
func (e *SplitJoinExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()

	cfg, nerr := decodeConfig(nc, node.SplitJoinConfig{
		Operation: opSplit,
		Input:     "{{input}}",
		Delimiter: ",",
	})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}

	scope := nc.Scope()
	delimiter := unescapeDelimiter(cfg.Delimiter)
	value := resolveInput(cfg.Input, scope)

	switch cfg.Operation {
	case opSplit:
		text := engine.FormatValue(value)

		var parts []string
		switch {
		case text == "":
			parts = nil
		case cfg.Limit > 0:
			parts = strings.SplitN(text, delimiter, cfg.Limit)
		default:
			parts = strings.Split(text, delimiter)
		}

		items := make([]any, 0, len(parts))
		for _, p := range parts {
			if cfg.Trim {
				p = strings.TrimSpace(p)
			}
			if cfg.RemoveEmpty && p == "" {
				continue
			}
			items = append(items, p)
		}

		rec.Info(fmt.Sprintf("split into %d items", len(items)), nil)
		return rec.Succeed(map[string]any{
			"items":  items,
			"count":  len(items),
			"output": items,
		})

	case opJoin:
		list, err := toList(value)
		if err != nil {
			return rec.Fail(node.NewError(node.CodeSplitJoinFailed, "join input: "+err.Error(), nil, false), nil)
		}

		parts := make([]string, 0, len(list))
		for _, item := range list {
			s := engine.FormatValue(item)
			if cfg.Trim {
				s = strings.TrimSpace(s)
			}
			if cfg.RemoveEmpty && s == "" {
				continue
			}
			parts = append(parts, s)
		}
		text := strings.Join(parts, delimiter)

		rec.Info(fmt.Sprintf("joined %d items", len(parts)), nil)
		return rec.Succeed(map[string]any{
			"text":   text,
			"count":  len(parts),
			"output": text,
		})
	}

	return rec.Fail(node.Errorf(node.CodeSplitJoinFailed, "unknown operation %q", cfg.Operation), nil)
}

// unescapeDelimiter понимает \n и \t, как их вводят в редакторе.
func unescapeDelimiter(d string) string {
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r").Replace(d)
}
