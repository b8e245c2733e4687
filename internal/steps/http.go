package steps

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shaiso/nodeflow/internal/engine"
	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/xjson"
)

const (
	defaultHTTPTimeout = 30000
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
	defaultAPIKeyName  = "X-API-Key"
)

// Типы тела запроса.
const (
	bodyJSON = "json"
	bodyForm = "form"
	bodyRaw  = "raw"
	bodyNone = "none"
)

var contentTypes = map[string]string{
	bodyJSON: "application/json",
	bodyForm: "application/x-www-form-urlencoded",
	bodyRaw:  "text/plain",
}

// HTTPExecutor — исполнитель ноды http.
//
// Рендерит URL, query, заголовки и тело из переменных, добавляет
// аутентификацию и выполняет запрос с таймаутом.
//
// Конфигурация:
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/users/{{userId}}",
//	    "queryParams": {"expand": "{{expand}}"},
//	    "headers": {"X-Trace": "{{traceId}}"},
//	    "bodyType": "json",
//	    "body": {"name": "{{name}}"},
//	    "authType": "bearer",
//	    "authConfig": {"token": "{{token}}"},
//	    "timeout": 30000,
//	    "followRedirects": true,
//	    "validateStatus": true
//	}
//
// Outputs:
//
//	{
//	    "status": 200,
//	    "statusText": "OK",
//	    "headers": {"Content-Type": "application/json"},
//	    "data": {...}  // JSON или строка
//	}
type HTTPExecutor struct {
	transport http.RoundTripper
}

// NewHTTPExecutor создаёт исполнитель. nil transport — http.DefaultTransport.
func NewHTTPExecutor(transport http.RoundTripper) *HTTPExecutor {
	return &HTTPExecutor{transport: transport}
}

// Type возвращает тип ноды.
func (e *HTTPExecutor) Type() string {
	return node.TypeHTTP
}

// Validate проверяет URL, метод и таймаут.
func (e *HTTPExecutor) Validate(config any) node.ValidationResult {
	cfg, err := node.DecodeConfig(config, node.HTTPConfig{})
	if err != nil {
		return node.Invalid(err.Error())
	}
	cfg.Method = strings.ToUpper(cfg.Method)

	errs := node.CheckStruct(cfg)
	switch {
	case strings.TrimSpace(cfg.URL) == "":
		errs = append(errs, "url is required")
	case !engine.HasTemplate(cfg.URL):
		if u, err := url.Parse(cfg.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, "url must be a valid absolute URL")
		}
	}
	return node.Invalid(errs...)
}

// httpOutcome — ответ, прочитанный внутри таймаута.
type httpOutcome struct {
	status     int
	statusText string
	headers    map[string]string
	raw        []byte
	data       any
}

// Execute выполняет HTTP запрос.
func (e *HTTPExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()
	logger := loggerFor(ctx, nc)

	cfg, nerr := decodeConfig(nc, node.HTTPConfig{
		Method:   http.MethodGet,
		BodyType: bodyJSON,
		Timeout:  defaultHTTPTimeout,
	})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}
	cfg.Method = strings.ToUpper(cfg.Method)

	scope := nc.Scope()
	httpReq, err := e.buildRequest(ctx, cfg, scope)
	if err != nil {
		return rec.Fail(node.NewError(node.CodeInvalidConfig, err.Error(), nil, false), nil)
	}

	rec.Info(fmt.Sprintf("%s %s", cfg.Method, redactURL(httpReq.URL)), nil)
	logger.Debug("http request", "method", cfg.Method, "url", redactURL(httpReq.URL))

	client := e.buildClient(cfg)
	timeoutMsg := fmt.Sprintf("HTTP request timed out after %dms", cfg.Timeout)

	out, err := engine.WithTimeout(ctx, millis(cfg.Timeout), timeoutMsg, func(ctx context.Context) (*httpOutcome, error) {
		resp, err := client.Do(httpReq.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return e.parseResponse(resp)
	})
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redactURL(httpReq.URL)
		}
		logger.Warn("http request failed", "error", err)
		return rec.Fail(node.NewError(node.CodeHTTPRequestFailed, err.Error(),
			map[string]any{"method": cfg.Method, "url": redactURL(httpReq.URL)}, true), nil)
	}

	outputs := map[string]any{
		"status":     out.status,
		"statusText": out.statusText,
		"headers":    out.headers,
		"data":       out.data,
	}
	rec.Info(fmt.Sprintf("response %d %s", out.status, out.statusText), nil)

	if boolOr(cfg.ValidateStatus, true) && (out.status < 200 || out.status >= 300) {
		return rec.Fail(node.NewError(node.CodeHTTPError,
			fmt.Sprintf("HTTP %d: %s", out.status, out.statusText),
			map[string]any{
				"status":     out.status,
				"statusText": out.statusText,
				"body":       truncate(string(out.raw), 2048),
			},
			out.status >= 500), outputs)
	}

	return rec.Succeed(outputs)
}

// buildClient создаёт HTTP клиент с нужными настройками.
// Таймаут задаётся через context, а не через http.Client.
func (e *HTTPExecutor) buildClient(cfg node.HTTPConfig) *http.Client {
	transport := e.transport
	if !boolOr(cfg.ValidateSSL, true) {
		transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	var checkRedirect func(*http.Request, []*http.Request) error
	if !boolOr(cfg.FollowRedirects, true) {
		checkRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &http.Client{
		Transport:     transport,
		CheckRedirect: checkRedirect,
	}
}

// buildRequest рендерит все части запроса из scope.
func (e *HTTPExecutor) buildRequest(ctx context.Context, cfg node.HTTPConfig, scope map[string]any) (*http.Request, error) {
	rawURL := strings.TrimSpace(engine.RenderTemplate(cfg.URL, scope))
	if rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("url must be absolute, got %q", rawURL)
	}

	query := u.Query()
	for key, value := range cfg.QueryParams {
		query.Set(key, engine.RenderTemplate(value, scope))
	}

	headers := make(http.Header)
	for key, value := range cfg.Headers {
		headers.Set(key, engine.RenderTemplate(value, scope))
	}

	applyAuth(cfg, scope, headers, query)
	u.RawQuery = query.Encode()

	var body io.Reader
	if cfg.Body != nil && cfg.BodyType != bodyNone && cfg.Method != http.MethodGet && cfg.Method != http.MethodHead {
		payload, err := serializeBody(cfg.Body, cfg.BodyType, scope)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		body = bytes.NewReader(payload)

		// Content-Type по типу тела, если не задан явно
		if headers.Get("Content-Type") == "" {
			headers.Set("Content-Type", contentTypes[cfg.BodyType])
		}
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header = headers
	return req, nil
}

// applyAuth добавляет аутентификацию в заголовки или query.
func applyAuth(cfg node.HTTPConfig, scope map[string]any, headers http.Header, query url.Values) {
	auth := cfg.Auth
	if auth == nil {
		auth = &node.HTTPAuth{}
	}
	render := func(s string) string { return engine.RenderTemplate(s, scope) }

	switch cfg.AuthType {
	case "basic":
		creds := render(auth.Username) + ":" + render(auth.Password)
		headers.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds)))
	case "bearer":
		headers.Set("Authorization", "Bearer "+render(auth.Token))
	case "apiKey":
		name := auth.Key
		if name == "" {
			name = defaultAPIKeyName
		}
		if auth.AddTo == "query" {
			query.Set(name, render(auth.Value))
		} else {
			headers.Set(name, render(auth.Value))
		}
	}
}

// serializeBody готовит тело по bodyType.
func serializeBody(body any, bodyType string, scope map[string]any) ([]byte, error) {
	switch bodyType {
	case bodyForm:
		switch v := body.(type) {
		case string:
			return []byte(engine.RenderTemplate(v, scope)), nil
		case map[string]any:
			form := url.Values{}
			for key, val := range v {
				form.Set(key, engine.FormatValue(engine.RenderValue(val, scope)))
			}
			return []byte(form.Encode()), nil
		case map[string]string:
			form := url.Values{}
			for key, val := range v {
				form.Set(key, engine.RenderTemplate(val, scope))
			}
			return []byte(form.Encode()), nil
		}
		return nil, fmt.Errorf("form body must be an object or string, got %T", body)

	case bodyRaw:
		if s, ok := body.(string); ok {
			return []byte(engine.RenderTemplate(s, scope)), nil
		}
		return xjson.Marshal(engine.RenderValue(body, scope))

	default:
		if s, ok := body.(string); ok {
			return []byte(engine.RenderTemplate(s, scope)), nil
		}
		return xjson.Marshal(engine.RenderValue(body, scope))
	}
}

// parseResponse читает тело с ограничением размера и разбирает JSON, если это JSON.
func (e *HTTPExecutor) parseResponse(resp *http.Response) (*httpOutcome, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var data any
	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "json"):
		if err := xjson.Unmarshal(raw, &data); err != nil {
			// Некорректный JSON отдаём текстом
			data = string(raw)
		}
	case strings.HasPrefix(contentType, "text/"):
		data = string(raw)
	default:
		if len(raw) > 0 && xjson.Valid(raw) {
			_ = xjson.Unmarshal(raw, &data)
		} else {
			data = string(raw)
		}
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return &httpOutcome{
		status:     resp.StatusCode,
		statusText: http.StatusText(resp.StatusCode),
		headers:    headers,
		raw:        raw,
		data:       data,
	}, nil
}

// redactURL убирает userinfo и query из URL для логов: там бывают ключи.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	clean.RawQuery = ""
	return clean.Redacted()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
