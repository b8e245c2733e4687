package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/nodeflow/internal/node"
)

// Metrics — счётчики выполнения нод.
//
// Реализует steps.Observer, поэтому подключается к реестру исполнителей напрямую.
type Metrics struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	tokens     *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg.
// nil означает prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		executions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodeflow",
			Name:      "node_executions_total",
			Help:      "Node executions by type and outcome.",
		}, []string{"node_type", "status", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nodeflow",
			Name:      "node_execution_duration_seconds",
			Help:      "Node execution duration.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"node_type"}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodeflow",
			Name:      "llm_tokens_total",
			Help:      "LLM tokens consumed.",
		}, []string{"kind"}),
	}
}

// ObserveNode учитывает одно выполнение.
func (m *Metrics) ObserveNode(nodeType string, res *node.Result) {
	if m == nil || res == nil {
		return
	}

	status, code := "success", ""
	if !res.Success {
		status = "failure"
		if res.Error != nil {
			code = res.Error.Code
		}
	}

	m.executions.WithLabelValues(nodeType, status, code).Inc()
	m.duration.WithLabelValues(nodeType).Observe(res.Duration.Seconds())

	if res.Usage != nil {
		m.tokens.WithLabelValues("prompt").Add(float64(res.Usage.PromptTokens))
		m.tokens.WithLabelValues("completion").Add(float64(res.Usage.CompletionTokens))
	}
}

// HTTPMetrics — счётчики HTTP API.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics регистрирует метрики API в reg.
// nil означает prometheus.DefaultRegisterer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &HTTPMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodeflow",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nodeflow",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveRequest учитывает один запрос. route — шаблон маршрута, а не путь,
// чтобы не раздувать кардинальность.
func (m *HTTPMetrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}
