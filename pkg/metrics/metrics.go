// Package metrics 定义服务暴露的 Prometheus 指标。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatbot"

// 使用独立的 registry，测试中重复初始化不会与默认 registry 冲突。
var Registry = prometheus.NewRegistry()

var (
	// ChatRequests 按结果统计聊天请求：ok、bad_request、unauthorized、error。
	ChatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of chat requests by outcome",
		},
		[]string{"outcome"},
	)

	// StreamErrors 统计流式响应中途失败的次数。
	StreamErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "stream_errors_total",
			Help:      "Total number of errors during response streaming",
		},
	)

	ToolInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tools",
			Name:      "invocations_total",
			Help:      "Total tool invocations",
		},
		[]string{"tool", "status"},
	)

	JokeResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "joke",
			Name:      "responses_total",
			Help:      "Jokes served by source",
		},
		[]string{"source"},
	)

	RateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limit decisions by scope and result",
		},
		[]string{"scope", "result"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ChatRequests,
		StreamErrors,
		ToolInvocations,
		JokeResponses,
		RateLimitDecisions,
		HTTPDuration,
	)
}

// Handler 返回暴露 Registry 的 HTTP handler。
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
