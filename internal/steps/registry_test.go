package steps

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/shaiso/nodeflow/internal/node"
)

// stubExecutor — исполнитель для тестов реестра.
type stubExecutor struct {
	typ     string
	outputs map[string]any
	panics  bool
}

func (s *stubExecutor) Type() string { return s.typ }

func (s *stubExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	if s.panics {
		panic("boom")
	}
	return node.Begin().Succeed(s.outputs)
}

// recordingObserver запоминает наблюдения.
type recordingObserver struct {
	mu    sync.Mutex
	types []string
	codes []string
}

func (o *recordingObserver) ObserveNode(nodeType string, res *node.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.types = append(o.types, nodeType)
	code := ""
	if res.Error != nil {
		code = res.Error.Code
	}
	o.codes = append(o.codes, code)
}

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry(Options{})

	for _, typ := range node.BuiltinTypes {
		exec := r.Get(typ)
		if exec == nil {
			t.Errorf("builtin %s should resolve", typ)
			continue
		}
		if exec.Type() != typ {
			t.Errorf("expected executor type %s, got %s", typ, exec.Type())
		}
	}

	aliasCases := map[string]string{
		"llm-chat":      "llm",
		"ai-chat":       "llm",
		"http-request":  "http",
		"if":            "condition",
		"foreach":       "loop",
		"set-variable":  "variable",
		"text-template": "template",
	}
	for alias, canonical := range aliasCases {
		exec := r.Get(alias)
		if exec == nil {
			t.Errorf("alias %s should resolve", alias)
			continue
		}
		if exec != r.Get(canonical) {
			t.Errorf("alias %s should resolve to the %s executor", alias, canonical)
		}
	}

	if r.Get("unknown") != nil {
		t.Error("unknown type should resolve to nil")
	}
}

func TestRegistry_RegisterOverridesBuiltin(t *testing.T) {
	r := NewRegistry(Options{})
	custom := &stubExecutor{typ: "template", outputs: map[string]any{"text": "custom"}}

	r.Register("template", custom)
	if r.Get("template") != custom {
		t.Fatal("Register should override the builtin")
	}

	// Алиас не перекрыт: он по-прежнему ведёт во встроенный исполнитель.
	if r.Get("text-template") == custom {
		t.Error("override by exact name should not affect aliases")
	}

	r.Unregister("template")
	if r.Get("template") == custom {
		t.Error("Unregister should restore the builtin")
	}
	if r.Get("template") == nil {
		t.Error("builtin should resolve after Unregister")
	}
}

func TestRegistry_RegisterNewType(t *testing.T) {
	r := NewRegistry(Options{})
	r.Register("custom:echo", &stubExecutor{typ: "custom:echo"})

	if !r.Has("custom:echo") {
		t.Error("should have custom:echo")
	}
	if !slices.Contains(r.Types(), "custom:echo") {
		t.Errorf("Types should list custom:echo, got %v", r.Types())
	}
	if !slices.IsSorted(r.Types()) {
		t.Error("Types should be sorted")
	}

	r.Unregister("custom:echo")
	if r.Has("custom:echo") {
		t.Error("should not have custom:echo after unregister")
	}
}

func TestRegistry_Execute(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRegistry(Options{Observer: obs})

	res := r.Execute(context.Background(), &node.Context{
		NodeID:   "n1",
		NodeType: "text-template",
		Config:   map[string]any{"template": "Hi {{name}}"},
		Inputs:   map[string]any{"name": "Ada"},
	})

	if !res.Success {
		t.Fatalf("expected success, got %+v", res.Error)
	}
	if res.Outputs["text"] != "Hi Ada" {
		t.Errorf("expected Hi Ada, got %v", res.Outputs["text"])
	}
	if len(obs.types) != 1 || obs.types[0] != "template" {
		t.Errorf("observer should see canonical type, got %v", obs.types)
	}
}

func TestRegistry_ExecuteUnknownType(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRegistry(Options{Observer: obs})

	res := r.Execute(context.Background(), &node.Context{NodeType: "nope"})

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error.Code != node.CodeUnknownNodeType {
		t.Errorf("expected %s, got %s", node.CodeUnknownNodeType, res.Error.Code)
	}
	if len(obs.codes) != 1 || obs.codes[0] != node.CodeUnknownNodeType {
		t.Errorf("observer should see the failure, got %v", obs.codes)
	}
}

func TestRegistry_ExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry(Options{})
	r.Register("explode", &stubExecutor{typ: "explode", panics: true})

	res := r.Execute(context.Background(), &node.Context{NodeType: "explode"})

	if res == nil || res.Success {
		t.Fatal("expected failure result")
	}
	if res.Error.Code != node.CodePanic {
		t.Errorf("expected %s, got %s", node.CodePanic, res.Error.Code)
	}
}

func TestRegistry_Validate(t *testing.T) {
	r := NewRegistry(Options{})

	res, err := r.Validate("set-variable", map[string]any{"variableName": "bad name", "valueType": "string"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid {
		t.Error("expected invalid variable name")
	}

	res, err = r.Validate("custom:noop", nil)
	if !errors.Is(err, ErrUnknownNodeType) {
		t.Errorf("expected ErrUnknownNodeType, got %v", err)
	}

	r.Register("custom:noop", &stubExecutor{typ: "custom:noop"})
	res, err = r.Validate("custom:noop", nil)
	if err != nil || !res.Valid {
		t.Errorf("executor without Validator should be valid, got %v %v", res, err)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(Options{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "custom:" + string(rune('a'+i))
			r.Register(name, &stubExecutor{typ: name})
			_ = r.Get(name)
			_ = r.Types()
			r.Unregister(name)
		}(i)
	}
	wg.Wait()

	for _, typ := range r.Types() {
		if len(typ) > 7 && typ[:7] == "custom:" {
			t.Errorf("leftover registration %s", typ)
		}
	}
}
