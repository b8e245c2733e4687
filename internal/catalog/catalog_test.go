package catalog

import (
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/shaiso/nodeflow/internal/domain"
	"github.com/shaiso/nodeflow/internal/versioning"
)

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func find(entries []Entry, id string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

func TestBuiltins(t *testing.T) {
	b := Builtins()
	if len(b) != 16 {
		t.Fatalf("expected 16 builtin entries, got %d", len(b))
	}
	for _, e := range b {
		if e.Source != SourceBuiltin {
			t.Errorf("%s: expected source builtin, got %s", e.ID, e.Source)
		}
		if e.Version != "1.0.0" {
			t.Errorf("%s: expected version 1.0.0, got %s", e.ID, e.Version)
		}
		if !e.Category.IsValid() {
			t.Errorf("%s: invalid category %s", e.ID, e.Category)
		}
	}

	// Копия не влияет на исходный список.
	b[0].Name = "changed"
	if Builtins()[0].Name == "changed" {
		t.Error("Builtins should return a copy")
	}
}

func TestCatalog_RegisterBuiltinIDIsNoop(t *testing.T) {
	c := New(nil)

	if c.Register(Entry{ID: "webhook", Name: "Fake Webhook"}) {
		t.Error("builtin id should be rejected")
	}

	e, ok := find(c.List(ListOptions{}), "webhook")
	if !ok {
		t.Fatal("webhook should still be listed")
	}
	if e.Name != "Webhook Trigger" {
		t.Errorf("expected builtin entry unchanged, got %q", e.Name)
	}
	if len(c.List(ListOptions{ExcludeBuiltin: true})) != 0 {
		t.Error("rejected entry should not appear among extensions")
	}
}

func TestCatalog_RegisterExtension(t *testing.T) {
	c := New(nil)

	n := c.RegisterAll([]Entry{
		{ID: "slack", Name: "Slack", Category: CategoryHTTP},
		{ID: "odd", Name: "Odd", Category: "weird"},
		{ID: "", Name: "No ID"},
		{ID: "loop", Name: "Fake Loop"},
	})
	if n != 2 {
		t.Errorf("expected 2 accepted, got %d", n)
	}

	ext := c.List(ListOptions{ExcludeBuiltin: true})
	want := []string{"slack", "odd"}
	if diff := cmp.Diff(want, ids(ext)); diff != "" {
		t.Errorf("extensions mismatch (-want +got):\n%s", diff)
	}

	slack, _ := find(ext, "slack")
	if slack.Source != SourceExtension || slack.Version != "1.0.0" {
		t.Errorf("expected normalized entry, got %+v", slack)
	}
	if slack.Style != StyleFor(CategoryHTTP) {
		t.Errorf("expected category style, got %+v", slack.Style)
	}

	odd, _ := find(ext, "odd")
	if odd.Category != CategoryUtility {
		t.Errorf("unknown category should become utility, got %s", odd.Category)
	}

	c.Unregister("slack")
	if _, ok := find(c.List(ListOptions{}), "slack"); ok {
		t.Error("slack should be unregistered")
	}

	// Встроенную ноду удалить нельзя.
	c.Unregister("webhook")
	if _, ok := find(c.List(ListOptions{}), "webhook"); !ok {
		t.Error("builtin entry must survive Unregister")
	}
}

func TestCatalog_ListOrder(t *testing.T) {
	c := New(nil)
	nodes := c.List(ListOptions{})

	for i := 1; i < len(nodes); i++ {
		if nodes[i-1].Category.order() > nodes[i].Category.order() {
			t.Fatalf("entries not ordered by category at %d: %s after %s", i, nodes[i].Category, nodes[i-1].Category)
		}
	}
	if nodes[0].ID != "ai-agent" || nodes[1].ID != "ai-chat" {
		t.Errorf("expected AI Agent then AI Conversation first, got %v", ids(nodes[:2]))
	}
	if nodes[len(nodes)-1].Category != CategoryUtility {
		t.Errorf("expected utility last, got %s", nodes[len(nodes)-1].Category)
	}

	if got := c.List(ListOptions{ExcludeBuiltin: true, ExcludeExtensions: true}); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %v", got)
	}
}

func TestMapCustomNode(t *testing.T) {
	id := uuid.MustParse("3f1e0c1a-0000-4000-8000-000000000001")

	tests := []struct {
		name     string
		node     domain.CustomNode
		vctx     versioning.Context
		expected Entry
	}{
		{
			name: "full record",
			node: domain.CustomNode{
				ID: id, Name: "translator", Slug: "translator", DisplayName: "Translator",
				Description: "Translate text", Icon: "🌐", Category: "ai",
				Tags: []string{"nlp"}, Version: "2.1.0",
			},
			expected: Entry{
				ID: "custom:translator", Name: "Translator", Description: "Translate text",
				Icon: "package", IconGlyph: "🌐", Category: CategoryAI, Style: StyleFor(CategoryAI),
				Version: "2.1.0", Source: SourceCustom, Tags: []string{"nlp"},
				Compatibility: &versioning.Compatibility{Compatible: true},
			},
		},
		{
			name: "fallbacks",
			node: domain.CustomNode{
				ID: id, Name: "pg-sync", Icon: "database", Category: "storage", LatestVersion: "0.3.0",
			},
			expected: Entry{
				ID: "custom:" + id.String(), Name: "pg-sync",
				Icon: "package", IconGlyph: DefaultIconGlyph, Category: CategoryDB, Style: StyleFor(CategoryDB),
				Version: "0.3.0", Source: SourceCustom, Tags: []string{},
				Compatibility: &versioning.Compatibility{Compatible: true},
			},
		},
		{
			name: "name only",
			node: domain.CustomNode{Category: "communication", IconURL: "https://cdn/x.png"},
			expected: Entry{
				ID: "custom:CustomNode", Name: "CustomNode",
				Icon: "package", IconGlyph: DefaultIconGlyph, Category: CategoryHTTP, Style: StyleFor(CategoryHTTP),
				Version: "1.0.0", Source: SourceCustom, Tags: []string{},
				Compatibility: &versioning.Compatibility{Compatible: true},
			},
		},
		{
			name: "sdk too old",
			node: domain.CustomNode{Slug: "vision", Name: "vision", Category: "logic", MinSDKVersion: "2.0.0"},
			vctx: versioning.Context{SDKVersion: "1.5.0"},
			expected: Entry{
				ID: "custom:vision", Name: "vision",
				Icon: "package", IconGlyph: DefaultIconGlyph, Category: CategoryUtility, Style: StyleFor(CategoryUtility),
				Version: "1.0.0", Source: SourceCustom, Tags: []string{},
				Compatibility: &versioning.Compatibility{
					Compatible: false,
					Issues: []versioning.Issue{{
						Type:     versioning.IssueTypeSDK,
						Severity: versioning.SeverityError,
						Message:  "node requires SDK >= 2.0.0, current is 1.5.0",
					}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapCustomNode(&tt.node, tt.vctx)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("entry mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMapCustomNode_DefaultSDKVersion(t *testing.T) {
	n := &domain.CustomNode{Slug: "x", MaxSDKVersion: "0.9.0"}

	got := MapCustomNode(n, versioning.Context{})
	if got.Compatibility == nil || got.Compatibility.Compatible {
		t.Errorf("default SDK %s should exceed max 0.9.0, got %+v", versioning.DefaultNodeSDKVersion, got.Compatibility)
	}
}

func TestCatalog_Build(t *testing.T) {
	c := New(nil)
	c.Register(Entry{ID: "custom:dup", Name: "From Extension", Category: CategoryAI})
	c.Register(Entry{ID: "notify", Name: "Notify", Category: CategoryHTTP})

	listing := c.Build(BuildOptions{
		CustomNodes: []domain.CustomNode{
			{Slug: "dup", Name: "From Custom", Category: "ai"},
			{Slug: "beijing", DisplayName: "北京", Category: "data"},
			{Slug: "anquan", DisplayName: "安全", Category: "data"},
		},
	})

	if len(listing.Nodes) != 16+2+2 {
		t.Fatalf("expected 20 nodes, got %d: %v", len(listing.Nodes), ids(listing.Nodes))
	}

	dup, _ := find(listing.Nodes, "custom:dup")
	if dup.Source != SourceCustom || dup.Name != "From Custom" {
		t.Errorf("custom entry should replace the extension, got %+v", dup)
	}

	var db []string
	for _, n := range listing.Nodes {
		if n.Category == CategoryDB {
			db = append(db, n.Name)
		}
	}
	if diff := cmp.Diff([]string{"Database Action", "安全", "北京"}, db); diff != "" {
		t.Errorf("db order mismatch (-want +got):\n%s", diff)
	}

	counts := map[Category]int{}
	for _, s := range listing.Categories {
		counts[s.ID] = s.Count
	}
	want := map[Category]int{CategoryAI: 3, CategoryHTTP: 4, CategoryDB: 3, CategoryUI: 3, CategoryUtility: 7}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("category counts mismatch (-want +got):\n%s", diff)
	}
	if listing.Categories[0].ID != CategoryAI || listing.Categories[4].ID != CategoryUtility {
		t.Errorf("categories should follow display order, got %+v", listing.Categories)
	}
}

func TestCatalog_BuildDuplicateCustomLastWins(t *testing.T) {
	c := New(nil)

	listing := c.Build(BuildOptions{
		ListOptions: ListOptions{ExcludeBuiltin: true},
		CustomNodes: []domain.CustomNode{
			{Slug: "same", Name: "first"},
			{Slug: "same", Name: "second"},
		},
	})

	if len(listing.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %v", ids(listing.Nodes))
	}
	if listing.Nodes[0].Name != "second" {
		t.Errorf("expected later record to win, got %s", listing.Nodes[0].Name)
	}
}

func TestCatalog_BuildEmpty(t *testing.T) {
	listing := New(nil).Build(BuildOptions{ListOptions: ListOptions{ExcludeBuiltin: true}})

	if len(listing.Nodes) != 0 {
		t.Errorf("expected no nodes, got %v", ids(listing.Nodes))
	}
	if len(listing.Categories) != len(Categories) {
		t.Errorf("summary should list every category, got %d", len(listing.Categories))
	}
	for _, s := range listing.Categories {
		if s.Count != 0 {
			t.Errorf("expected zero count for %s, got %d", s.ID, s.Count)
		}
	}
}

func TestCatalog_ConcurrentAccess(t *testing.T) {
	c := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "ext-" + string(rune('a'+i))
			c.Register(Entry{ID: id, Name: id})
			_ = c.Build(BuildOptions{})
			c.Unregister(id)
		}(i)
	}
	wg.Wait()

	if got := c.List(ListOptions{ExcludeBuiltin: true}); len(got) != 0 {
		t.Errorf("expected no leftover extensions, got %v", ids(got))
	}
}

func TestIconGlyph(t *testing.T) {
	tests := map[string]string{
		"":          DefaultIconGlyph,
		"  ":        DefaultIconGlyph,
		"puzzle":    DefaultIconGlyph,
		" 🤖 ":       "🤖",
		"https://x": DefaultIconGlyph,
	}
	for in, want := range tests {
		if got := iconGlyph(in); got != want {
			t.Errorf("iconGlyph(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestMapCustomCategory(t *testing.T) {
	cases := map[string]Category{
		"ai": CategoryAI, "data": CategoryDB, "storage": CategoryDB,
		"integration": CategoryHTTP, "communication": CategoryHTTP,
		"logic": CategoryUtility, "trigger": CategoryUtility, "": CategoryUtility,
	}
	for in, want := range cases {
		if got := MapCustomCategory(in); got != want {
			t.Errorf("MapCustomCategory(%q): expected %s, got %s", in, want, got)
		}
	}
	if !slices.ContainsFunc(Categories, func(c CategoryInfo) bool { return c.ID == CategoryDB }) {
		t.Error("db category missing")
	}
}
