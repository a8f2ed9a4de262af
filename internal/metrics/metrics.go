// metrics — prometheus-метрики проходов коллектора.
package metrics

import (
	"time"

	"github.com/pribylovaa/go-feed-collector/internal/collector"
	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "feed_collector"

// Metrics — набор метрик; реализует service.Observer.
type Metrics struct {
	attempts       *prometheus.CounterVec
	records        *prometheus.CounterVec
	failedSources  *prometheus.CounterVec
	workingProxies prometheus.Gauge
	proxyPool      prometheus.Gauge
	passDuration   *prometheus.HistogramVec
	lastSuccess    prometheus.Gauge
}

// New регистрирует метрики в reg (nil — prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Fetch attempts by phase and status code.",
		}, []string{"phase", "status"}),
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records collected by phase.",
		}, []string{"phase"}),
		failedSources: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_sources_total",
			Help:      "Sources without a successful attempt in a run.",
		}, []string{"phase"}),
		workingProxies: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "working_proxies",
			Help:      "Working proxies found by the last proxy phase.",
		}),
		proxyPool: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "proxy_pool_size",
			Help:      "Size of the proxy pool of the last pass.",
		}),
		passDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of a collection pass.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"result"}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful pass.",
		}),
	}
}

// ObservePhase учитывает результат одной фазы.
// Пустой STATUS_CODE (ошибка транспорта или таймаут) считается как "error".
func (m *Metrics) ObservePhase(phase string, res *collector.Result) {
	if res == nil {
		return
	}

	if res.Log != nil {
		for _, st := range res.Log.Strings(models.LogStatusCode) {
			if st == "" {
				st = "error"
			}
			m.attempts.WithLabelValues(phase, st).Inc()
		}
	}
	if res.Data != nil {
		m.records.WithLabelValues(phase).Add(float64(res.Data.Len()))
	}
	m.failedSources.WithLabelValues(phase).Add(float64(len(res.Failed)))

	if res.Log != nil && res.Log.Has(models.LogProxy) {
		m.workingProxies.Set(float64(len(res.WorkingProxies)))
	}
}

// ObservePass учитывает завершённый проход.
func (m *Metrics) ObservePass(d time.Duration, pool int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		m.lastSuccess.SetToCurrentTime()
	}

	m.passDuration.WithLabelValues(result).Observe(d.Seconds())
	m.proxyPool.Set(float64(pool))
}
