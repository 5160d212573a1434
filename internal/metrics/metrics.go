package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hearth-faas/hearth/internal/config"
)

var Enabled bool
var registry = prometheus.NewRegistry()
var ScrapingHandler http.Handler = nil
var durationBuckets = []float64{0.002, 0.005, 0.010, 0.02, 0.03, 0.05, 0.1, 0.15, 0.3, 0.6, 1.0, 2.0, 5.0}

const (
	COLD_STARTS    = "cold_starts_total"
	WARM_STARTS    = "warm_starts_total"
	QUEUED         = "requests_queued_total"
	FAILED         = "requests_failed_total"
	EXECUTION_TIME = "execution_time"
)

var (
	metricColdStarts = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: COLD_STARTS,
		Help: "Number of invocations served by a newly launched container",
	}, []string{"function"})
	metricWarmStarts = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: WARM_STARTS,
		Help: "Number of invocations served by a reused container",
	}, []string{"function"})
	metricQueued = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: QUEUED,
		Help: "Number of invocations parked in the overflow queue",
	}, []string{"function"})
	metricFailed = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: FAILED,
		Help: "Number of invocations that failed to obtain a container",
	}, []string{"function"})
	metricExecutionTime = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    EXECUTION_TIME,
		Help:    "Function duration",
		Buckets: durationBuckets,
	}, []string{"function"})
)

func Init() {
	if config.GetBool(config.METRICS_ENABLED, false) {
		log.Println("Metrics enabled.")
		Enabled = true
	} else {
		Enabled = false
		return
	}

	ScrapingHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func AddColdStart(funcName string) {
	if !Enabled {
		return
	}
	metricColdStarts.WithLabelValues(funcName).Inc()
}

func AddWarmStart(funcName string) {
	if !Enabled {
		return
	}
	metricWarmStarts.WithLabelValues(funcName).Inc()
}

func AddQueued(funcName string) {
	if !Enabled {
		return
	}
	metricQueued.WithLabelValues(funcName).Inc()
}

func AddFailed(funcName string) {
	if !Enabled {
		return
	}
	metricFailed.WithLabelValues(funcName).Inc()
}

func AddFunctionDurationValue(funcName string, duration float64) {
	if !Enabled {
		return
	}
	metricExecutionTime.WithLabelValues(funcName).Observe(duration)
}
