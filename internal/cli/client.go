package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaiso/nodeflow/internal/xjson"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// CompatibilityIssue — замечание проверки совместимости.
type CompatibilityIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// CompatibilityResponse — результат проверки совместимости.
type CompatibilityResponse struct {
	Compatible bool                 `json:"compatible"`
	Issues     []CompatibilityIssue `json:"issues,omitempty"`
}

// CatalogEntry — нода каталога из API.
type CatalogEntry struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Icon          string                 `json:"icon,omitempty"`
	IconGlyph     string                 `json:"iconGlyph,omitempty"`
	Category      string                 `json:"category"`
	Version       string                 `json:"version"`
	Source        string                 `json:"source"`
	Tags          []string               `json:"tags,omitempty"`
	Compatibility *CompatibilityResponse `json:"compatibility,omitempty"`
}

// CategorySummary — категория каталога с числом нод.
type CategorySummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CatalogListing — каталог из API.
type CatalogListing struct {
	Nodes      []CatalogEntry    `json:"nodes"`
	Categories []CategorySummary `json:"categories"`
}

// ExecutorResponse — исполнитель из API.
type ExecutorResponse struct {
	Type    string `json:"type"`
	Builtin bool   `json:"builtin"`
}

// NodeError — ошибка выполнения ноды.
type NodeError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

// NodeResult — результат исполнителя.
type NodeResult struct {
	Success  bool           `json:"success"`
	Outputs  map[string]any `json:"outputs"`
	Error    *NodeError     `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// ExecutionResponse — результат выполнения ноды.
type ExecutionResponse struct {
	ExecutionID string     `json:"executionId"`
	NodeID      string     `json:"nodeId"`
	NodeType    string     `json:"nodeType"`
	Status      string     `json:"status"`
	Result      NodeResult `json:"result"`
	StartedAt   string     `json:"startedAt"`
	FinishedAt  string     `json:"finishedAt"`
}

// QueuedResponse — ответ на асинхронное выполнение.
type QueuedResponse struct {
	ExecutionID string `json:"executionId"`
	NodeType    string `json:"nodeType"`
	Status      string `json:"status"`
}

// ValidationResponse — результат проверки конфигурации.
type ValidationResponse struct {
	NodeType string   `json:"nodeType"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
}

// CompareResponse — сравнение версий.
type CompareResponse struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Comparison  int    `json:"comparison"`
	UpgradeType string `json:"upgradeType"`
	AutoUpgrade bool   `json:"autoUpgrade"`
}

// StreamChunk — фрагмент потокового ответа.
type StreamChunk struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// --- Request types ---

// ExecuteRequest — выполнение ноды.
type ExecuteRequest struct {
	NodeID      string            `json:"nodeId,omitempty"`
	Config      map[string]any    `json:"config,omitempty"`
	Variables   map[string]any    `json:"variables,omitempty"`
	Inputs      map[string]any    `json:"inputs,omitempty"`
	Credentials map[string]string `json:"credentials,omitempty"`
	Async       bool              `json:"async,omitempty"`
}

// ExtensionRequest — регистрация ноды расширения.
type ExtensionRequest struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category,omitempty"`
	Version       string   `json:"version,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	MinSDKVersion string   `json:"minSdkVersion,omitempty"`
	MaxSDKVersion string   `json:"maxSdkVersion,omitempty"`
	MinAppVersion string   `json:"minAppVersion,omitempty"`
	MaxAppVersion string   `json:"maxAppVersion,omitempty"`
}

// CustomNodeRequest — заявка на пользовательскую ноду.
type CustomNodeRequest struct {
	Name          string   `json:"name"`
	Slug          string   `json:"slug,omitempty"`
	DisplayName   string   `json:"displayName,omitempty"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Version       string   `json:"version,omitempty"`
	MinSDKVersion string   `json:"minSdkVersion,omitempty"`
	MaxSDKVersion string   `json:"maxSdkVersion,omitempty"`
	MinAppVersion string   `json:"minAppVersion,omitempty"`
	MaxAppVersion string   `json:"maxAppVersion,omitempty"`
}

// CustomNodeResponse — пользовательская нода из API.
type CustomNodeResponse struct {
	ID          string       `json:"id"`
	Slug        string       `json:"slug"`
	Status      string       `json:"status"`
	Version     string       `json:"version"`
	PublishedAt *time.Time   `json:"publishedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	Entry       CatalogEntry `json:"entry"`
}

// VersionContext — версии окружения.
type VersionContext struct {
	SDKVersion string `json:"sdkVersion,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
}

// CompatibilityRequest — проверка ограничений ноды.
type CompatibilityRequest struct {
	MinSDKVersion string          `json:"minSdkVersion,omitempty"`
	MaxSDKVersion string          `json:"maxSdkVersion,omitempty"`
	MinAppVersion string          `json:"minAppVersion,omitempty"`
	MaxAppVersion string          `json:"maxAppVersion,omitempty"`
	Context       *VersionContext `json:"context,omitempty"`
}

// CatalogOpts — фильтры каталога.
type CatalogOpts struct {
	ExcludeBuiltin    bool
	ExcludeExtensions bool
	ExcludeCustom     bool
	SDKVersion        string
	AppVersion        string
}

// --- API response wrappers ---

type dataResponse struct {
	Data xjson.RawMessage `json:"data"`
}

type listResponse struct {
	Data  xjson.RawMessage `json:"data"`
	Total int              `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details,omitempty"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для nodeflow API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// streamClient без общего таймаута: поток живёт столько, сколько нода.
	streamClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{},
	}
}

// --- Catalog ---

// GetCatalog возвращает каталог нод.
func (c *Client) GetCatalog(opts CatalogOpts) (*CatalogListing, error) {
	params := url.Values{}
	if opts.ExcludeBuiltin {
		params.Set("includeBuiltin", "false")
	}
	if opts.ExcludeExtensions {
		params.Set("includeExtensions", "false")
	}
	if opts.ExcludeCustom {
		params.Set("includeCustom", "false")
	}
	if opts.SDKVersion != "" {
		params.Set("sdkVersion", opts.SDKVersion)
	}
	if opts.AppVersion != "" {
		params.Set("appVersion", opts.AppVersion)
	}

	path := "/api/v1/catalog"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var listing CatalogListing
	err := c.get(path, &listing)
	return &listing, err
}

// ListExtensions возвращает зарегистрированные расширения.
func (c *Client) ListExtensions() ([]CatalogEntry, error) {
	var entries []CatalogEntry
	err := c.list("/api/v1/catalog/extensions", nil, &entries)
	return entries, err
}

// AddExtension регистрирует ноду расширения.
func (c *Client) AddExtension(req ExtensionRequest) (*CatalogEntry, error) {
	var entry CatalogEntry
	err := c.post("/api/v1/catalog/extensions", req, &entry)
	return &entry, err
}

// RemoveExtension удаляет ноду расширения.
func (c *Client) RemoveExtension(id string) error {
	return c.delete("/api/v1/catalog/extensions/" + url.PathEscape(id))
}

// --- Custom nodes ---

// CreateCustomNode создаёт пользовательскую ноду в статусе draft.
func (c *Client) CreateCustomNode(req CustomNodeRequest) (*CustomNodeResponse, error) {
	var n CustomNodeResponse
	err := c.post("/api/v1/custom-nodes", req, &n)
	return &n, err
}

// GetCustomNode возвращает пользовательскую ноду по slug.
func (c *Client) GetCustomNode(slug string) (*CustomNodeResponse, error) {
	var n CustomNodeResponse
	err := c.get("/api/v1/custom-nodes/"+url.PathEscape(slug), &n)
	return &n, err
}

// SetCustomNodeStatus переводит ноду в новый статус.
func (c *Client) SetCustomNodeStatus(slug, status string) (*CustomNodeResponse, error) {
	var n CustomNodeResponse
	body := map[string]string{"status": status}
	err := c.doData(http.MethodPut, "/api/v1/custom-nodes/"+url.PathEscape(slug)+"/status", body, &n)
	return &n, err
}

// --- Nodes ---

// ListExecutors возвращает зарегистрированные исполнители.
func (c *Client) ListExecutors() ([]ExecutorResponse, error) {
	var executors []ExecutorResponse
	err := c.list("/api/v1/executors", nil, &executors)
	return executors, err
}

// Execute выполняет ноду синхронно.
func (c *Client) Execute(nodeType string, req ExecuteRequest) (*ExecutionResponse, error) {
	req.Async = false
	var res ExecutionResponse
	err := c.post(nodePath(nodeType, "execute"), req, &res)
	return &res, err
}

// Enqueue ставит выполнение ноды в очередь.
func (c *Client) Enqueue(nodeType string, req ExecuteRequest) (*QueuedResponse, error) {
	req.Async = true
	var res QueuedResponse
	err := c.post(nodePath(nodeType, "execute"), req, &res)
	return &res, err
}

// ExecuteStream выполняет ноду в режиме стриминга. onChunk вызывается
// для каждого фрагмента, итог возвращается после события result.
func (c *Client) ExecuteStream(nodeType string, req ExecuteRequest, onChunk func(StreamChunk)) (*ExecutionResponse, error) {
	req.Async = false
	data, err := xjson.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+nodePath(nodeType, "execute")+"?stream=true", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	return readEvents(resp.Body, onChunk)
}

// readEvents разбирает поток событий chunk/result.
func readEvents(r io.Reader, onChunk func(StreamChunk)) (*ExecutionResponse, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := []byte(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			switch event {
			case "chunk":
				var chunk StreamChunk
				if err := xjson.Unmarshal(data, &chunk); err != nil {
					return nil, fmt.Errorf("failed to decode chunk: %w", err)
				}
				if onChunk != nil {
					onChunk(chunk)
				}
			case "result":
				var res ExecutionResponse
				if err := xjson.Unmarshal(data, &res); err != nil {
					return nil, fmt.Errorf("failed to decode result: %w", err)
				}
				return &res, nil
			}
		case line == "":
			event = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("stream ended without result")
}

// Validate проверяет конфигурацию ноды.
func (c *Client) Validate(nodeType string, config map[string]any) (*ValidationResponse, error) {
	var res ValidationResponse
	err := c.post(nodePath(nodeType, "validate"), map[string]any{"config": config}, &res)
	return &res, err
}

func nodePath(nodeType, action string) string {
	return "/api/v1/nodes/" + url.PathEscape(nodeType) + "/" + action
}

// --- Versions ---

// CompareVersions сравнивает две версии.
func (c *Client) CompareVersions(from, to string) (*CompareResponse, error) {
	params := url.Values{}
	params.Set("from", from)
	params.Set("to", to)

	var res CompareResponse
	err := c.get("/api/v1/versions/compare?"+params.Encode(), &res)
	return &res, err
}

// CheckCompatibility проверяет ограничения ноды.
func (c *Client) CheckCompatibility(req CompatibilityRequest) (*CompatibilityResponse, error) {
	var res CompatibilityResponse
	err := c.post("/api/v1/versions/compatibility", req, &res)
	return &res, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := xjson.Decode(resp.Body, &lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return xjson.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := xjson.Decode(resp.Body, &dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return xjson.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := xjson.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := xjson.Decode(resp.Body, &er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	if errs, ok := er.Error.Details.([]any); ok && len(errs) > 0 {
		parts := make([]string, len(errs))
		for i, e := range errs {
			parts[i] = fmt.Sprint(e)
		}
		return fmt.Errorf("%s: %s (%s)", er.Error.Code, er.Error.Message, strings.Join(parts, "; "))
	}
	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
