// Package metrics 提供问答服务的 Prometheus 业务指标。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medbot"

// Metrics 问答服务指标。
type Metrics struct {
	registry *prometheus.Registry

	// 流水线阶段指标
	StageTotal    *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	// 检索结果数量
	Passages prometheus.Histogram

	// /get 请求结果，按错误码统计
	Answers *prometheus.CounterVec
}

// New creates the metrics on a private registry that also carries the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StageTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_total",
				Help:      "Total number of pipeline stage executions",
			},
			[]string{"stage", "outcome"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		Passages: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retrieved_passages",
				Help:      "Number of passages returned by the vector index per query",
				Buckets:   prometheus.LinearBuckets(0, 1, 11),
			},
		),
		Answers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_total",
				Help:      "Total number of chat requests by result code",
			},
			[]string{"code"},
		),
	}
}

// ObserveStage records one stage execution.
func (m *Metrics) ObserveStage(stage, outcome string, seconds float64) {
	m.StageTotal.WithLabelValues(stage, outcome).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// ObservePassages records the retrieved passage count.
func (m *Metrics) ObservePassages(n int) {
	m.Passages.Observe(float64(n))
}

// ObserveAnswer records a chat request result. code is "0" on success.
func (m *Metrics) ObserveAnswer(code string) {
	m.Answers.WithLabelValues(code).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
