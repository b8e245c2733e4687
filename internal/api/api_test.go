package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/nodeflow/internal/catalog"
	"github.com/shaiso/nodeflow/internal/domain"
	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/repo"
	"github.com/shaiso/nodeflow/internal/steps"
	"github.com/shaiso/nodeflow/internal/telemetry"
	"github.com/shaiso/nodeflow/internal/versioning"
	"github.com/shaiso/nodeflow/internal/xjson"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCustomNodes — хранилище пользовательских нод в памяти.
type fakeCustomNodes struct {
	mu    sync.Mutex
	nodes []domain.CustomNode
	err   error
}

func (f *fakeCustomNodes) Create(ctx context.Context, n *domain.CustomNode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.nodes {
		if existing.Key() == n.Key() {
			return repo.ErrAlreadyExists
		}
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.Slug = n.Key()
	n.CreatedAt = time.Now().UTC()
	f.nodes = append(f.nodes, *n)
	return nil
}

func (f *fakeCustomNodes) ListPublished(ctx context.Context) ([]domain.CustomNode, error) {
	return f.nodes, f.err
}

func (f *fakeCustomNodes) GetBySlug(ctx context.Context, slug string) (*domain.CustomNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.nodes {
		if f.nodes[i].Slug == slug {
			n := f.nodes[i]
			return &n, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeCustomNodes) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CustomNodeStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.nodes {
		if f.nodes[i].ID != id {
			continue
		}
		if !f.nodes[i].Status.CanTransitionTo(status) {
			return repo.ErrInvalidState
		}
		f.nodes[i].Status = status
		if status == domain.CustomNodeStatusPublished && f.nodes[i].PublishedAt == nil {
			now := time.Now().UTC()
			f.nodes[i].PublishedAt = &now
		}
		return nil
	}
	return repo.ErrNotFound
}

// fakePublisher запоминает поставленные в очередь запросы.
type fakePublisher struct {
	mu   sync.Mutex
	reqs []*domain.ExecutionRequest
	err  error
}

func (p *fakePublisher) PublishExecute(ctx context.Context, req *domain.ExecutionRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	return p.err
}

// streamingExecutor пишет фрагменты в поток, не закрывая его.
type streamingExecutor struct{}

func (streamingExecutor) Type() string { return "custom:streamer" }

func (streamingExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	nc.Stream <- node.StreamChunk{Content: "Hel"}
	nc.Stream <- node.StreamChunk{Content: "lo"}
	return node.Begin().Succeed(map[string]any{"text": "Hello"})
}

func newTestServer(cfg Config) (*Handler, *http.ServeMux) {
	if cfg.Registry == nil {
		cfg.Registry = steps.NewRegistry(steps.Options{})
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.New(discardLogger())
	}
	cfg.Logger = discardLogger()

	h := NewHandler(cfg)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h, mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data T `json:"data"`
	}
	if err := xjson.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp.Data
}

func TestHealth(t *testing.T) {
	_, mux := newTestServer(Config{})

	rec := do(mux, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// Catalog Tests

func TestGetCatalog(t *testing.T) {
	cat := catalog.New(discardLogger())
	cat.Register(catalog.Entry{ID: "slack", Name: "Slack", Category: catalog.CategoryHTTP})

	source := &fakeCustomNodes{nodes: []domain.CustomNode{
		{Name: "summarize", Slug: "summarize", DisplayName: "Summarize", Category: "ai", Status: domain.CustomNodeStatusPublished},
	}}
	_, mux := newTestServer(Config{Catalog: cat, CustomNodes: source})

	rec := do(mux, http.MethodGet, "/api/v1/catalog", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	listing := decodeData[catalog.Listing](t, rec)
	if len(listing.Nodes) != 18 {
		t.Errorf("expected 18 nodes, got %d", len(listing.Nodes))
	}
	if len(listing.Categories) != 5 {
		t.Errorf("expected 5 categories, got %d", len(listing.Categories))
	}

	ids := make(map[string]catalog.Source)
	for _, n := range listing.Nodes {
		ids[n.ID] = n.Source
	}
	if ids["slack"] != catalog.SourceExtension {
		t.Errorf("expected slack extension, got %q", ids["slack"])
	}
	if ids["custom:summarize"] != catalog.SourceCustom {
		t.Errorf("expected custom:summarize, got %q", ids["custom:summarize"])
	}
}

func TestGetCatalog_Filters(t *testing.T) {
	cat := catalog.New(discardLogger())
	cat.Register(catalog.Entry{ID: "slack", Name: "Slack"})
	source := &fakeCustomNodes{nodes: []domain.CustomNode{{Name: "x", Slug: "x"}}}
	_, mux := newTestServer(Config{Catalog: cat, CustomNodes: source})

	tests := []struct {
		name     string
		query    string
		expected int
	}{
		{name: "no builtins", query: "?includeBuiltin=false", expected: 2},
		{name: "builtins only", query: "?includeExtensions=false&includeCustom=false", expected: 16},
		{name: "nothing", query: "?includeBuiltin=false&includeExtensions=false&includeCustom=false", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, http.MethodGet, "/api/v1/catalog"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			listing := decodeData[catalog.Listing](t, rec)
			if len(listing.Nodes) != tt.expected {
				t.Errorf("expected %d nodes, got %d", tt.expected, len(listing.Nodes))
			}
		})
	}
}

func TestGetCatalog_BadQuery(t *testing.T) {
	_, mux := newTestServer(Config{})

	for _, q := range []string{"?includeBuiltin=maybe", "?sdkVersion=latest"} {
		rec := do(mux, http.MethodGet, "/api/v1/catalog"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestGetCatalog_CustomSourceFailure(t *testing.T) {
	_, mux := newTestServer(Config{CustomNodes: &fakeCustomNodes{err: errors.New("db down")}})

	rec := do(mux, http.MethodGet, "/api/v1/catalog", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog should degrade, got %d", rec.Code)
	}
	if n := len(decodeData[catalog.Listing](t, rec).Nodes); n != 16 {
		t.Errorf("expected 16 builtins, got %d", n)
	}
}

func TestGetCatalog_Compatibility(t *testing.T) {
	source := &fakeCustomNodes{nodes: []domain.CustomNode{{Name: "x", Slug: "x", MinSDKVersion: "2.0.0"}}}
	_, mux := newTestServer(Config{CustomNodes: source})

	rec := do(mux, http.MethodGet, "/api/v1/catalog?includeBuiltin=false&sdkVersion=1.5.0", "")
	listing := decodeData[catalog.Listing](t, rec)
	if len(listing.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(listing.Nodes))
	}
	compat := listing.Nodes[0].Compatibility
	if compat == nil || compat.Compatible {
		t.Errorf("expected incompatible node, got %+v", compat)
	}
}

func TestRegisterExtension(t *testing.T) {
	h, mux := newTestServer(Config{})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "ok", body: `{"id":"slack","name":"Slack","category":"http","version":"1.2.0"}`, status: http.StatusCreated},
		{name: "builtin id", body: `{"id":"webhook","name":"Hook"}`, status: http.StatusConflict},
		{name: "missing name", body: `{"id":"x"}`, status: http.StatusBadRequest},
		{name: "bad version", body: `{"id":"x","name":"X","version":"v1"}`, status: http.StatusBadRequest},
		{name: "bad json", body: `{`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, http.MethodPost, "/api/v1/catalog/extensions", tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}

	entries := h.catalog.List(catalog.ListOptions{ExcludeBuiltin: true})
	if len(entries) != 1 || entries[0].ID != "slack" {
		t.Fatalf("expected only slack, got %+v", entries)
	}
	if entries[0].Style != catalog.StyleFor(catalog.CategoryHTTP) {
		t.Errorf("expected http style, got %+v", entries[0].Style)
	}
}

func TestRegisterExtension_Compatibility(t *testing.T) {
	_, mux := newTestServer(Config{Versions: versioning.Context{SDKVersion: "1.0.0"}})

	rec := do(mux, http.MethodPost, "/api/v1/catalog/extensions", `{"id":"next","name":"Next","minSdkVersion":"2.0.0"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	entry := decodeData[catalog.Entry](t, rec)
	if entry.Compatibility == nil || entry.Compatibility.Compatible {
		t.Errorf("expected incompatible entry, got %+v", entry.Compatibility)
	}
}

func TestUnregisterExtension(t *testing.T) {
	h, mux := newTestServer(Config{})
	h.catalog.Register(catalog.Entry{ID: "slack", Name: "Slack"})

	if rec := do(mux, http.MethodDelete, "/api/v1/catalog/extensions/webhook", ""); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for builtin, got %d", rec.Code)
	}
	if rec := do(mux, http.MethodDelete, "/api/v1/catalog/extensions/slack", ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	rec := do(mux, http.MethodGet, "/api/v1/catalog/extensions", "")
	if entries := decodeData[[]catalog.Entry](t, rec); len(entries) != 0 {
		t.Errorf("expected no extensions, got %+v", entries)
	}
}

func TestGetCustomNode(t *testing.T) {
	_, noStore := newTestServer(Config{})
	if rec := do(noStore, http.MethodGet, "/api/v1/custom-nodes/x", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without storage, got %d", rec.Code)
	}

	source := &fakeCustomNodes{nodes: []domain.CustomNode{{Name: "x", Slug: "x", Category: "storage", Version: "2.1.0"}}}
	_, mux := newTestServer(Config{CustomNodes: source})

	if rec := do(mux, http.MethodGet, "/api/v1/custom-nodes/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec := do(mux, http.MethodGet, "/api/v1/custom-nodes/x", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeData[CustomNodeResponse](t, rec)
	if resp.Entry.ID != "custom:x" || resp.Entry.Category != catalog.CategoryDB {
		t.Errorf("unexpected entry %+v", resp.Entry)
	}
	if resp.Version != "2.1.0" {
		t.Errorf("expected version 2.1.0, got %s", resp.Version)
	}
}

func TestCreateCustomNode(t *testing.T) {
	store := &fakeCustomNodes{}
	_, mux := newTestServer(Config{CustomNodes: store})

	rec := do(mux, http.MethodPost, "/api/v1/custom-nodes",
		`{"name":"summarize","displayName":"Summarize","category":"ai","version":"1.2.0","minSdkVersion":"1.0.0"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeData[CustomNodeResponse](t, rec)
	if resp.Status != string(domain.CustomNodeStatusDraft) {
		t.Errorf("expected draft, got %s", resp.Status)
	}
	if resp.Slug != "summarize" || resp.Entry.ID != "custom:summarize" {
		t.Errorf("unexpected response %+v", resp)
	}

	if rec := do(mux, http.MethodPost, "/api/v1/custom-nodes", `{"name":"summarize"}`); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate slug, got %d", rec.Code)
	}
}

func TestCreateCustomNode_Invalid(t *testing.T) {
	_, mux := newTestServer(Config{CustomNodes: &fakeCustomNodes{}})

	tests := []struct {
		name string
		body string
	}{
		{name: "bad json", body: `{`},
		{name: "missing name", body: `{"displayName":"X"}`},
		{name: "bad icon url", body: `{"name":"x","iconUrl":"not a url"}`},
		{name: "bad version", body: `{"name":"x","version":"latest"}`},
		{name: "bad bound", body: `{"name":"x","maxAppVersion":"2.x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, http.MethodPost, "/api/v1/custom-nodes", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUpdateCustomNodeStatus(t *testing.T) {
	store := &fakeCustomNodes{nodes: []domain.CustomNode{
		{ID: uuid.New(), Name: "x", Slug: "x", Status: domain.CustomNodeStatusDraft},
	}}
	_, mux := newTestServer(Config{CustomNodes: store})

	transitions := []struct {
		status   string
		expected int
	}{
		{status: "published", expected: http.StatusUnprocessableEntity},
		{status: "pending", expected: http.StatusOK},
		{status: "approved", expected: http.StatusOK},
		{status: "published", expected: http.StatusOK},
		{status: "draft", expected: http.StatusUnprocessableEntity},
		{status: "archived", expected: http.StatusBadRequest},
	}

	for _, tr := range transitions {
		rec := do(mux, http.MethodPut, "/api/v1/custom-nodes/x/status", `{"status":"`+tr.status+`"}`)
		if rec.Code != tr.expected {
			t.Errorf("%s: expected %d, got %d: %s", tr.status, tr.expected, rec.Code, rec.Body.String())
		}
	}

	n, _ := store.GetBySlug(context.Background(), "x")
	if n.Status != domain.CustomNodeStatusPublished {
		t.Errorf("expected published, got %s", n.Status)
	}
	if n.PublishedAt == nil {
		t.Error("publishedAt should be set")
	}

	if rec := do(mux, http.MethodPut, "/api/v1/custom-nodes/missing/status", `{"status":"pending"}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// Node Tests

func TestListExecutors(t *testing.T) {
	h, mux := newTestServer(Config{})
	h.registry.Register("custom:echo", streamingExecutor{})

	rec := do(mux, http.MethodGet, "/api/v1/executors", "")
	executors := decodeData[[]ExecutorResponse](t, rec)

	found := map[string]bool{}
	for _, e := range executors {
		found[e.Type] = e.Builtin
	}
	if builtin, ok := found[node.TypeTemplate]; !ok || !builtin {
		t.Errorf("expected builtin template, got %v", found)
	}
	if builtin, ok := found["custom:echo"]; !ok || builtin {
		t.Errorf("expected non-builtin custom:echo, got %v", found)
	}
}

func TestExecuteNode_Sync(t *testing.T) {
	_, mux := newTestServer(Config{})

	rec := do(mux, http.MethodPost, "/api/v1/nodes/text-template/execute",
		`{"nodeId":"greet","config":{"template":"Hello, {{name}}"},"inputs":{"name":"Ada"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	result := decodeData[domain.ExecutionResult](t, rec)
	if result.Status != domain.ExecutionStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", result.Status)
	}
	if result.NodeID != "greet" || result.NodeType != "text-template" {
		t.Errorf("unexpected ids %s/%s", result.NodeID, result.NodeType)
	}
	if result.Result.Outputs["text"] != "Hello, Ada" {
		t.Errorf("expected Hello, Ada, got %v", result.Result.Outputs["text"])
	}
}

func TestExecuteNode_FailureIsResult(t *testing.T) {
	_, mux := newTestServer(Config{})

	rec := do(mux, http.MethodPost, "/api/v1/nodes/variable/execute",
		`{"config":{"variableName":"n","value":"abc","valueType":"number"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("node failure is not an HTTP error, got %d", rec.Code)
	}

	result := decodeData[domain.ExecutionResult](t, rec)
	if result.Status != domain.ExecutionStatusFailed {
		t.Errorf("expected FAILED, got %s", result.Status)
	}
	if result.Result.Error == nil || result.Result.Error.Code != node.CodeVariableSetFailed {
		t.Errorf("expected %s, got %+v", node.CodeVariableSetFailed, result.Result.Error)
	}
}

func TestExecuteNode_UnknownType(t *testing.T) {
	_, mux := newTestServer(Config{})

	rec := do(mux, http.MethodPost, "/api/v1/nodes/nope/execute", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestExecuteNode_Async(t *testing.T) {
	_, noQueue := newTestServer(Config{})
	if rec := do(noQueue, http.MethodPost, "/api/v1/nodes/template/execute", `{"async":true}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without publisher, got %d", rec.Code)
	}

	pub := &fakePublisher{}
	_, mux := newTestServer(Config{Publisher: pub})

	rec := do(mux, http.MethodPost, "/api/v1/nodes/template/execute",
		`{"async":true,"config":{"template":"x"},"credentials":{"openai":"sk-test"}}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	queued := decodeData[ExecutionQueuedResponse](t, rec)
	if len(pub.reqs) != 1 {
		t.Fatalf("expected 1 published request, got %d", len(pub.reqs))
	}
	if pub.reqs[0].ExecutionID != queued.ExecutionID {
		t.Errorf("executionId mismatch: %s vs %s", pub.reqs[0].ExecutionID, queued.ExecutionID)
	}
	if pub.reqs[0].Credentials["openai"] != "sk-test" {
		t.Error("credentials should be forwarded to the queue")
	}
	if strings.Contains(rec.Body.String(), "sk-test") {
		t.Error("credentials must not be echoed")
	}
}

func TestExecuteNode_AsyncPublishError(t *testing.T) {
	_, mux := newTestServer(Config{Publisher: &fakePublisher{err: errors.New("broker down")}})

	rec := do(mux, http.MethodPost, "/api/v1/nodes/template/execute", `{"async":true}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestExecuteNode_Stream(t *testing.T) {
	h, mux := newTestServer(Config{})
	h.registry.Register("custom:streamer", streamingExecutor{})

	rec := do(mux, http.MethodPost, "/api/v1/nodes/custom:streamer/execute?stream=true", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %s", ct)
	}

	body := rec.Body.String()
	if n := strings.Count(body, "event: chunk\n"); n != 2 {
		t.Errorf("expected 2 chunks, got %d:\n%s", n, body)
	}
	if !strings.Contains(body, `"content":"Hel"`) || !strings.Contains(body, `"content":"lo"`) {
		t.Errorf("chunks missing:\n%s", body)
	}

	last := strings.LastIndex(body, "event: ")
	if !strings.HasPrefix(body[last:], "event: result\n") {
		t.Errorf("result should be the final event:\n%s", body)
	}
}

func TestValidateNode(t *testing.T) {
	_, mux := newTestServer(Config{})

	rec := do(mux, http.MethodPost, "/api/v1/nodes/set-variable/validate",
		`{"config":{"variableName":"bad name","valueType":"string"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeData[ValidateNodeResponse](t, rec)
	if resp.Valid {
		t.Error("expected invalid config")
	}
	if resp.NodeType != node.TypeVariable {
		t.Errorf("expected canonical type %s, got %s", node.TypeVariable, resp.NodeType)
	}

	if rec := do(mux, http.MethodPost, "/api/v1/nodes/nope/validate", `{}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// Version Tests

func TestCompareVersions(t *testing.T) {
	_, mux := newTestServer(Config{})

	rec := do(mux, http.MethodGet, "/api/v1/versions/compare?from=1.2.0&to=1.3.0", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeData[CompareVersionsResponse](t, rec)
	if resp.Comparison != -1 || resp.UpgradeType != versioning.UpgradeMinor || !resp.AutoUpgrade {
		t.Errorf("unexpected comparison %+v", resp)
	}

	if rec := do(mux, http.MethodGet, "/api/v1/versions/compare?from=1.2&to=1.3.0", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCheckCompatibility(t *testing.T) {
	_, mux := newTestServer(Config{Versions: versioning.Context{SDKVersion: "3.0.0"}})

	tests := []struct {
		name       string
		body       string
		status     int
		compatible bool
	}{
		{name: "client context", body: `{"minSdkVersion":"2.0.0","context":{"sdkVersion":"1.5.0"}}`, status: http.StatusOK, compatible: false},
		{name: "server context", body: `{"minSdkVersion":"2.0.0"}`, status: http.StatusOK, compatible: true},
		{name: "bad bound", body: `{"maxAppVersion":"latest"}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, http.MethodPost, "/api/v1/versions/compatibility", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if tt.status != http.StatusOK {
				return
			}
			got := decodeData[versioning.Compatibility](t, rec)
			if got.Compatible != tt.compatible {
				t.Errorf("expected compatible=%v, got %+v", tt.compatible, got)
			}
			if !tt.compatible {
				if len(got.Issues) != 1 || got.Issues[0].Type != versioning.IssueTypeSDK || got.Issues[0].Severity != versioning.SeverityError {
					t.Errorf("expected one sdk error issue, got %+v", got.Issues)
				}
				if !strings.Contains(rec.Body.String(), `"type":"sdk"`) {
					t.Errorf("expected issue type on the wire, got %s", rec.Body.String())
				}
			}
		})
	}
}

// Middleware Tests

func TestRateLimit(t *testing.T) {
	_, mux := newTestServer(Config{RateLimit: 1})

	first := do(mux, http.MethodGet, "/api/v1/executors", "")
	second := do(mux, http.MethodGet, "/api/v1/executors", "")

	if first.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", second.Code)
	}
	if got := second.Header().Get("Retry-After"); got != "1" {
		t.Errorf("expected Retry-After 1, got %q", got)
	}

	// health не ограничивается
	if rec := do(mux, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for healthz, got %d", rec.Code)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, mux := newTestServer(Config{Metrics: telemetry.NewHTTPMetrics(reg)})

	do(mux, http.MethodPost, "/api/v1/nodes/template/validate", `{"config":{"template":"x"}}`)
	do(mux, http.MethodPost, "/api/v1/nodes/loop/validate", `{}`)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "nodeflow_api_http_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "route" && l.GetValue() != "/api/v1/nodes/{type}/validate" {
					t.Errorf("route label should be the pattern, got %s", l.GetValue())
				}
			}
		}
		return
	}
	t.Error("request counter not found")
}

func TestRecovery(t *testing.T) {
	handler := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
