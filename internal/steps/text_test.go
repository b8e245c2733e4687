package steps

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shaiso/nodeflow/internal/node"
)

func TestTemplateExecutor(t *testing.T) {
	res := NewTemplateExecutor().Execute(context.Background(), &node.Context{
		NodeType:  "template",
		Config:    map[string]any{"template": "Hello, {{user.name}}! You have {{count}} new {{missing}}."},
		Variables: map[string]any{"count": 3},
		Inputs:    map[string]any{"user": map[string]any{"name": "Ada"}},
	})

	if !res.Success {
		t.Fatalf("expected success, got %+v", res.Error)
	}
	want := "Hello, Ada! You have 3 new {{missing}}."
	if res.Outputs["text"] != want {
		t.Errorf("expected %q, got %q", want, res.Outputs["text"])
	}
	if res.Outputs["output"] != want {
		t.Errorf("output should equal text, got %q", res.Outputs["output"])
	}
	if len(res.Logs) == 0 || res.Logs[0].Level != node.LevelWarn {
		t.Errorf("expected a warning about unresolved variables, got %+v", res.Logs)
	}
}

func TestTemplateExecutor_Validate(t *testing.T) {
	if res := NewTemplateExecutor().Validate(map[string]any{}); res.Valid {
		t.Error("empty template should be invalid")
	}
}

func TestRegexExecutor(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		inputs map[string]any
		check  func(t *testing.T, out map[string]any)
	}{
		{
			name:   "first with named groups",
			config: map[string]any{"pattern": `(?P<year>\d{4})-(?P<month>\d{2})`},
			inputs: map[string]any{"input": "from 2024-01 to 2025-06"},
			check: func(t *testing.T, out map[string]any) {
				if out["match"] != "2024-01" {
					t.Errorf("expected 2024-01, got %v", out["match"])
				}
				if diff := cmp.Diff([]any{"2024", "01"}, out["groups"]); diff != "" {
					t.Errorf("groups mismatch:\n%s", diff)
				}
				if diff := cmp.Diff(map[string]any{"year": "2024", "month": "01"}, out["named"]); diff != "" {
					t.Errorf("named mismatch:\n%s", diff)
				}
			},
		},
		{
			name:   "all",
			config: map[string]any{"pattern": `\d+`, "mode": "all"},
			inputs: map[string]any{"input": "a1 b22 c333"},
			check: func(t *testing.T, out map[string]any) {
				if diff := cmp.Diff([]any{"1", "22", "333"}, out["matches"]); diff != "" {
					t.Errorf("matches mismatch:\n%s", diff)
				}
				if out["count"] != 3 {
					t.Errorf("expected 3, got %v", out["count"])
				}
			},
		},
		{
			name:   "groups mode outputs named",
			config: map[string]any{"pattern": `(?P<user>\w+)@`, "mode": "groups", "input": "{{email}}"},
			inputs: map[string]any{"email": "ada@example.com"},
			check: func(t *testing.T, out map[string]any) {
				if diff := cmp.Diff(map[string]any{"user": "ada"}, out["output"]); diff != "" {
					t.Errorf("output mismatch:\n%s", diff)
				}
			},
		},
		{
			name:   "case insensitive flag",
			config: map[string]any{"pattern": "hello", "flags": "gi"},
			inputs: map[string]any{"input": "HeLLo there"},
			check: func(t *testing.T, out map[string]any) {
				if out["matched"] != true {
					t.Error("expected match with i flag")
				}
			},
		},
		{
			name:   "replace",
			config: map[string]any{"pattern": `\s+`, "mode": "replace", "replacement": "-"},
			inputs: map[string]any{"input": "a  b   c"},
			check: func(t *testing.T, out map[string]any) {
				if out["text"] != "a-b-c" {
					t.Errorf("expected a-b-c, got %v", out["text"])
				}
			},
		},
		{
			name:   "no match",
			config: map[string]any{"pattern": `\d`},
			inputs: map[string]any{"input": "letters"},
			check: func(t *testing.T, out map[string]any) {
				if out["matched"] != false || out["match"] != nil {
					t.Errorf("expected no match, got %v", out)
				}
			},
		},
		{
			name:   "unresolved input is empty",
			config: map[string]any{"pattern": `input`},
			check: func(t *testing.T, out map[string]any) {
				if out["matched"] != false {
					t.Error("token text should not be matched")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewRegexExecutor().Execute(context.Background(), &node.Context{
				NodeType: "regex",
				Config:   tt.config,
				Inputs:   tt.inputs,
			})
			if !res.Success {
				t.Fatalf("expected success, got %+v", res.Error)
			}
			tt.check(t, res.Outputs)
		})
	}
}

func TestRegexExecutor_Errors(t *testing.T) {
	exec := NewRegexExecutor()

	res := exec.Execute(context.Background(), &node.Context{
		NodeType: "regex",
		Config:   map[string]any{"pattern": "(unclosed"},
		Inputs:   map[string]any{"input": "x"},
	})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error.Code != node.CodeRegexFailed {
		t.Errorf("expected %s, got %s", node.CodeRegexFailed, res.Error.Code)
	}

	if v := exec.Validate(map[string]any{"pattern": "a", "flags": "x"}); v.Valid {
		t.Error("unsupported flag should be invalid")
	}
	if v := exec.Validate(map[string]any{"pattern": "[a-z]+", "flags": "im"}); !v.Valid {
		t.Errorf("expected valid, got %v", v.Errors)
	}
}

func TestSplitJoinExecutor(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		inputs   map[string]any
		key      string
		expected any
	}{
		{
			name:     "split default delimiter",
			config:   map[string]any{},
			inputs:   map[string]any{"input": "a,b,,c"},
			key:      "items",
			expected: []any{"a", "b", "", "c"},
		},
		{
			name:     "split trim remove empty",
			config:   map[string]any{"delimiter": ";", "trim": true, "removeEmpty": true},
			inputs:   map[string]any{"input": " a ; ;b "},
			key:      "items",
			expected: []any{"a", "b"},
		},
		{
			name:     "split newline limit",
			config:   map[string]any{"delimiter": `\n`, "limit": 2},
			inputs:   map[string]any{"input": "l1\nl2\nl3"},
			key:      "items",
			expected: []any{"l1", "l2\nl3"},
		},
		{
			name:     "split empty",
			config:   map[string]any{},
			inputs:   map[string]any{},
			key:      "count",
			expected: 0,
		},
		{
			name:     "join",
			config:   map[string]any{"operation": "join", "delimiter": " | ", "input": "{{tags}}"},
			inputs:   map[string]any{"tags": []any{"go", 1, "rust"}},
			key:      "text",
			expected: "go | 1 | rust",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewSplitJoinExecutor().Execute(context.Background(), &node.Context{
				NodeType: "split-join",
				Config:   tt.config,
				Inputs:   tt.inputs,
			})
			if !res.Success {
				t.Fatalf("expected success, got %+v", res.Error)
			}
			if diff := cmp.Diff(tt.expected, res.Outputs[tt.key]); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", tt.key, diff)
			}
		})
	}
}

func TestSplitJoinExecutor_JoinNotArray(t *testing.T) {
	res := NewSplitJoinExecutor().Execute(context.Background(), &node.Context{
		NodeType: "split-join",
		Config:   map[string]any{"operation": "join"},
		Inputs:   map[string]any{"input": 42},
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error.Code != node.CodeSplitJoinFailed {
		t.Errorf("expected %s, got %s", node.CodeSplitJoinFailed, res.Error.Code)
	}
}
