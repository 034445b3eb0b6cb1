// Package metrics 定义服务暴露的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chaptertrans"

var (
	// RequestsTotal 按结果统计章节请求
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of chapter requests by outcome",
		},
		[]string{"outcome"},
	)

	// CacheLookups 按结果统计缓存查询
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of chapter store lookups by result",
		},
		[]string{"result"},
	)

	// BackendCalls 按提供商和状态统计翻译后端调用
	BackendCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Total number of translation backend calls",
		},
		[]string{"provider", "status"},
	)

	// BackendDuration 翻译后端调用耗时
	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Duration of translation backend calls in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90, 120},
		},
		[]string{"provider"},
	)

	// BackendTokens 后端报告的 token 用量
	BackendTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_tokens_total",
			Help:      "Tokens reported by translation backends",
		},
		[]string{"provider", "direction"},
	)

	// PaddedParagraphs 后端少返回段落时补齐的空段落数
	PaddedParagraphs = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "padded_paragraphs_total",
			Help:      "Paragraphs padded because the backend returned fewer pieces than requested",
		},
	)

	// PersistenceFailures 写回失败次数
	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Total number of failed store or static writes",
		},
		[]string{"target"},
	)
)

// RecordRequest 记录一次章节请求的结果
func RecordRequest(outcome string) {
	RequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup 记录缓存查询结果（hit、miss、error）
func RecordCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

// RecordBackendCall 记录一次后端调用
func RecordBackendCall(provider, status string, seconds float64, tokensIn, tokensOut int) {
	BackendCalls.WithLabelValues(provider, status).Inc()
	BackendDuration.WithLabelValues(provider).Observe(seconds)
	if tokensIn > 0 {
		BackendTokens.WithLabelValues(provider, "in").Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		BackendTokens.WithLabelValues(provider, "out").Add(float64(tokensOut))
	}
}

// RecordPadding 记录补齐的段落数
func RecordPadding(n int) {
	if n > 0 {
		PaddedParagraphs.Add(float64(n))
	}
}

// RecordPersistenceFailure 记录写回失败（store、static）
func RecordPersistenceFailure(target string) {
	PersistenceFailures.WithLabelValues(target).Inc()
}
