package steps

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/telemetry"
)

// aliases — дополнительные имена встроенных типов.
var aliases = map[string]string{
	"llm-chat":      node.TypeLLM,
	"ai-chat":       node.TypeLLM,
	"http-request":  node.TypeHTTP,
	"if":            node.TypeCondition,
	"foreach":       node.TypeLoop,
	"set-variable":  node.TypeVariable,
	"text-template": node.TypeTemplate,
	"regex-extract": node.TypeRegex,
	"wait":          node.TypeDelay,
	"cron":          node.TypeSchedule,
}

// Canonical возвращает канонический тип для алиаса или сам тип.
func Canonical(nodeType string) string {
	if c, ok := aliases[nodeType]; ok {
		return c
	}
	return nodeType
}

// Observer получает результат каждого выполнения через Registry.Execute.
type Observer interface {
	ObserveNode(nodeType string, res *node.Result)
}

// Options — зависимости встроенных исполнителей.
type Options struct {
	// HTTPClient — клиент для LLM провайдеров. nil — http.DefaultClient.
	HTTPClient *http.Client

	// Transport — транспорт HTTP ноды. nil — http.DefaultTransport.
	Transport http.RoundTripper

	// Providers — профили LLM. Пусто — DefaultProviders.
	Providers []Provider

	// Observer — метрики выполнения, может быть nil.
	Observer Observer
}

// builtins — экземпляры встроенных исполнителей.
type builtins struct {
	llm       *LLMExecutor
	http      *HTTPExecutor
	condition *ConditionExecutor
	loop      *LoopExecutor
	variable  *VariableExecutor
	transform *TransformExecutor
	merge     *MergeExecutor
	template  *TemplateExecutor
	regex     *RegexExecutor
	splitJoin *SplitJoinExecutor
	input     *InputExecutor
	output    *OutputExecutor
	delay     *DelayExecutor
	schedule  *ScheduleExecutor
}

// Registry — реестр исполнителей нод.
//
// Встроенные типы и их алиасы разрешаются всегда. Register добавляет
// исполнитель для нового типа или перекрывает встроенный; Unregister
// снимает перекрытие. Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	overrides map[string]node.Executor
	builtin   builtins
	observer  Observer
}

// NewRegistry создаёт реестр со всеми встроенными исполнителями.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		overrides: make(map[string]node.Executor),
		observer:  opts.Observer,
		builtin: builtins{
			llm:       NewLLMExecutor(opts.HTTPClient, opts.Providers...),
			http:      NewHTTPExecutor(opts.Transport),
			condition: NewConditionExecutor(),
			loop:      NewLoopExecutor(),
			variable:  NewVariableExecutor(),
			transform: NewTransformExecutor(),
			merge:     NewMergeExecutor(),
			template:  NewTemplateExecutor(),
			regex:     NewRegexExecutor(),
			splitJoin: NewSplitJoinExecutor(),
			input:     NewInputExecutor(),
			output:    NewOutputExecutor(),
			delay:     NewDelayExecutor(),
			schedule:  NewScheduleExecutor(),
		},
	}
}

// lookupBuiltin — закрытый набор встроенных типов.
func (r *Registry) lookupBuiltin(nodeType string) node.Executor {
	b := &r.builtin
	switch Canonical(nodeType) {
	case node.TypeLLM:
		return b.llm
	case node.TypeHTTP:
		return b.http
	case node.TypeCondition:
		return b.condition
	case node.TypeLoop:
		return b.loop
	case node.TypeVariable:
		return b.variable
	case node.TypeTransform:
		return b.transform
	case node.TypeMerge:
		return b.merge
	case node.TypeTemplate:
		return b.template
	case node.TypeRegex:
		return b.regex
	case node.TypeSplitJoin:
		return b.splitJoin
	case node.TypeInput:
		return b.input
	case node.TypeOutput:
		return b.output
	case node.TypeDelay:
		return b.delay
	case node.TypeSchedule:
		return b.schedule
	}
	return nil
}

// Get возвращает исполнитель по типу или nil.
// Перекрытие по точному имени сильнее встроенного исполнителя.
func (r *Registry) Get(nodeType string) node.Executor {
	r.mu.RLock()
	exec, ok := r.overrides[nodeType]
	r.mu.RUnlock()
	if ok {
		return exec
	}
	return r.lookupBuiltin(nodeType)
}

// Has проверяет, известен ли тип.
func (r *Registry) Has(nodeType string) bool {
	return r.Get(nodeType) != nil
}

// Register регистрирует исполнитель под типом, перезаписывая существующий,
// в том числе встроенный.
func (r *Registry) Register(nodeType string, exec node.Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[nodeType] = exec
}

// Unregister снимает регистрацию. Встроенный тип после этого
// снова разрешается во встроенный исполнитель.
func (r *Registry) Unregister(nodeType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, nodeType)
}

// Types возвращает все известные типы, включая алиасы, отсортированными.
func (r *Registry) Types() []string {
	seen := make(map[string]struct{}, len(node.BuiltinTypes)+len(aliases))
	for _, t := range node.BuiltinTypes {
		seen[t] = struct{}{}
	}
	for a := range aliases {
		seen[a] = struct{}{}
	}

	r.mu.RLock()
	for t := range r.overrides {
		seen[t] = struct{}{}
	}
	r.mu.RUnlock()

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Validate проверяет конфиг через Validator исполнителя, если он его реализует.
func (r *Registry) Validate(nodeType string, config any) (node.ValidationResult, error) {
	exec := r.Get(nodeType)
	if exec == nil {
		return node.ValidationResult{}, fmt.Errorf("%w: %s", ErrUnknownNodeType, nodeType)
	}
	v, ok := exec.(node.Validator)
	if !ok {
		return node.Valid(), nil
	}
	return v.Validate(config), nil
}

// Execute находит исполнитель и выполняет ноду.
//
// Неизвестный тип даёт результат с UNKNOWN_NODE_TYPE, паника исполнителя
// превращается в результат с PANIC. Duration всегда заполнен.
func (r *Registry) Execute(ctx context.Context, nc *node.Context) (res *node.Result) {
	start := time.Now()
	logger := loggerFor(ctx, nc)

	defer func() {
		if p := recover(); p != nil {
			logger.Error("node executor panicked", "panic", p, "stack", string(debug.Stack()))
			res = node.Failure(node.Errorf(node.CodePanic, "executor panicked: %v", p))
		}
		if res.Duration == 0 {
			res.Duration = time.Since(start)
		}
		if r.observer != nil {
			r.observer.ObserveNode(Canonical(nc.NodeType), res)
		}
	}()

	exec := r.Get(nc.NodeType)
	if exec == nil {
		logger.Warn("unknown node type")
		return node.Failure(node.Errorf(node.CodeUnknownNodeType, "%s: %s", ErrUnknownNodeType, nc.NodeType))
	}

	ctx = telemetry.WithLogger(ctx, logger)
	logger.Debug("node execution started")

	res = exec.Execute(ctx, nc)
	if res == nil {
		res = node.Failure(node.Errorf(node.CodeInvalidConfig, "executor for %s returned no result", nc.NodeType))
	}

	if res.Success {
		logger.Info("node execution completed", "duration_ms", time.Since(start).Milliseconds())
	} else if res.Error != nil {
		logger.Warn("node execution failed",
			"code", res.Error.Code,
			"error", res.Error.Message,
			"retryable", res.Error.Retryable,
		)
	}
	return res
}
