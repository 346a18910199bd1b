package services

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/hybridrec/pkg/models"
)

// Metrics holds the Prometheus collectors for training and serving. It also
// receives per-source timings from the fusion engine.
type Metrics struct {
	trainingDuration      *prometheus.HistogramVec
	trainingRuns          *prometheus.CounterVec
	recommendationLatency *prometheus.HistogramVec
	sourceLatency         *prometheus.HistogramVec
	fallbacks             *prometheus.CounterVec
	cacheRequests         *prometheus.CounterVec
	modelSize             *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer, logger *logrus.Logger) *Metrics {
	m := &Metrics{
		trainingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hybridrec_training_duration_seconds",
			Help:    "Duration of model training runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"result"}),
		trainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hybridrec_training_runs_total",
			Help: "Model training runs by result",
		}, []string{"result"}),
		recommendationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hybridrec_recommendation_duration_seconds",
			Help:    "Latency of recommendation requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		sourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hybridrec_source_duration_seconds",
			Help:    "Latency of each candidate source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source", "status"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hybridrec_source_fallbacks_total",
			Help: "Requests served without a candidate source",
		}, []string{"source"}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hybridrec_cache_requests_total",
			Help: "Recommendation cache lookups by result",
		}, []string{"result"}),
		modelSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hybridrec_model_size",
			Help: "Size of the published models",
		}, []string{"dimension"}),
	}

	m.trainingDuration = register(reg, m.trainingDuration, logger)
	m.trainingRuns = register(reg, m.trainingRuns, logger)
	m.recommendationLatency = register(reg, m.recommendationLatency, logger)
	m.sourceLatency = register(reg, m.sourceLatency, logger)
	m.fallbacks = register(reg, m.fallbacks, logger)
	m.cacheRequests = register(reg, m.cacheRequests, logger)
	m.modelSize = register(reg, m.modelSize, logger)

	return m
}

// register adds c to reg, reusing the existing collector when an identical
// one is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, logger *logrus.Logger) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("Failed to register metric")
	}
	return c
}

// ObserveSource implements fusion.Observer.
func (m *Metrics) ObserveSource(source models.Source, elapsed time.Duration, err error) {
	m.sourceLatency.WithLabelValues(string(source), status(err)).Observe(elapsed.Seconds())
}

// ObserveFallback implements fusion.Observer.
func (m *Metrics) ObserveFallback(source models.Source) {
	m.fallbacks.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) ObserveTraining(elapsed time.Duration, err error) {
	result := status(err)
	m.trainingDuration.WithLabelValues(result).Observe(elapsed.Seconds())
	m.trainingRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRecommendation(elapsed time.Duration, err error) {
	m.recommendationLatency.WithLabelValues(status(err)).Observe(elapsed.Seconds())
}

// ObserveCache records a lookup result: "hit", "miss" or "error".
func (m *Metrics) ObserveCache(result string) {
	m.cacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) SetModelSize(users, items, ratings int) {
	m.modelSize.WithLabelValues("users").Set(float64(users))
	m.modelSize.WithLabelValues("items").Set(float64(items))
	m.modelSize.WithLabelValues("ratings").Set(float64(ratings))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
