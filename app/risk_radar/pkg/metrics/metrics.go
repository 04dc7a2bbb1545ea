package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

const namespace = "risk_radar"

// Metrics 筛查流水线的 Prometheus 指标，方法对 nil 接收者安全
type Metrics struct {
	registry *prometheus.Registry

	classifications *prometheus.CounterVec
	classifyLatency prometheus.Histogram
	screenings      *prometheus.CounterVec
	screenLatency   prometheus.Histogram
	entitySeverity  prometheus.Histogram
}

// New 在独立注册表上创建指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		// outcome: ok | fallback
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "articles_total",
			Help:      "Articles classified, by outcome",
		}, []string{"outcome"}),
		classifyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "latency_seconds",
			Help:      "Per-article classification latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}),
		// result: report | no_data | cancelled
		screenings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "total",
			Help:      "Entity screenings, by result",
		}, []string{"result"}),
		screenLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "duration_seconds",
			Help:      "End-to-end entity screening duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		entitySeverity: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "overall_severity",
			Help:      "Distribution of entity-level overall severity",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
	}
}

// ObserveClassification 记录一次文章分类
func (m *Metrics) ObserveClassification(a model.ArticleAssessment, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if a.Fallback {
		outcome = "fallback"
	}
	m.classifications.WithLabelValues(outcome).Inc()
	m.classifyLatency.Observe(elapsed.Seconds())
}

// ObserveScreening 记录一次实体筛查，report 为 nil 表示被取消
func (m *Metrics) ObserveScreening(report *model.EntityReport, elapsed time.Duration) {
	if m == nil {
		return
	}
	switch {
	case report == nil:
		m.screenings.WithLabelValues("cancelled").Inc()
		return
	case report.NoData:
		m.screenings.WithLabelValues("no_data").Inc()
	default:
		m.screenings.WithLabelValues("report").Inc()
		m.entitySeverity.Observe(float64(report.OverallSeverity))
	}
	m.screenLatency.Observe(elapsed.Seconds())
}

// Handler 暴露 /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
