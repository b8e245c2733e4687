package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/nodeflow/internal/versioning"
)

const sampleManifest = `
nodes:
  - id: slack-post
    name: Slack Message
    description: Post a message to a channel
    category: http
    iconGlyph: 💬
    version: 1.2.0
    tags: [chat]
    minSdkVersion: 2.0.0
  - id: sheet
    name: Spreadsheet
    category: db
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(m.Nodes))
	}

	entries := m.Entries(versioning.Context{SDKVersion: "1.0.0"})

	slack := entries[0]
	if slack.Source != SourceExtension {
		t.Errorf("expected extension source, got %s", slack.Source)
	}
	if slack.IconGlyph != "💬" || slack.Version != "1.2.0" || slack.Category != CategoryHTTP {
		t.Errorf("unexpected entry %+v", slack)
	}
	if slack.Compatibility == nil || slack.Compatibility.Compatible {
		t.Errorf("expected incompatible entry, got %+v", slack.Compatibility)
	}

	if entries[1].Compatibility != nil {
		t.Errorf("entry without bounds should have no compatibility, got %+v", entries[1].Compatibility)
	}
}

func TestParseManifest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing id", doc: "nodes:\n  - name: x\n"},
		{name: "missing name", doc: "nodes:\n  - id: x\n"},
		{name: "duplicate", doc: "nodes:\n  - {id: x, name: a}\n  - {id: x, name: b}\n"},
		{name: "bad version", doc: "nodes:\n  - {id: x, name: a, version: latest}\n"},
		{name: "unknown field", doc: "nodes:\n  - {id: x, name: a, colour: red}\n"},
		{name: "not yaml", doc: "nodes: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest(strings.NewReader(tt.doc))
			if !errors.Is(err, ErrInvalidManifest) {
				t.Errorf("expected ErrInvalidManifest, got %v", err)
			}
		})
	}
}

func TestParseManifest_Empty(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Nodes) != 0 {
		t.Errorf("expected no nodes, got %d", len(m.Nodes))
	}
}

func TestCatalog_LoadExtensions(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "nodes.yaml")
	doc := sampleManifest + "  - id: webhook\n    name: Shadow\n"
	if err := os.WriteFile(yamlPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	jsonPath := filepath.Join(dir, "more.json")
	if err := os.WriteFile(jsonPath, []byte(`{"nodes":[{"id":"pdf","name":"PDF Reader","category":"utility"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(nil)

	n, err := c.LoadExtensions(yamlPath, versioning.Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 accepted (webhook is reserved), got %d", n)
	}

	n, err = c.LoadExtensions(jsonPath, versioning.Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 accepted, got %d", n)
	}

	got := ids(c.List(ListOptions{ExcludeBuiltin: true}))
	if len(got) != 3 {
		t.Errorf("expected 3 extensions, got %v", got)
	}

	if _, err := c.LoadExtensions(filepath.Join(dir, "missing.yaml"), versioning.Context{}); err == nil {
		t.Error("expected error for missing file")
	}
}
