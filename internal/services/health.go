package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

type HealthService struct {
	critical    map[string]Check
	nonCritical map[string]Check
	models      map[string]ModelInfo
	logger      *logrus.Logger

	healthCheckStatus *prometheus.GaugeVec
	lastHealthCheck   *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Models      map[string]string `json:"models"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
	Latency     time.Duration     `json:"latency,omitempty"`
}

func NewHealthService(reg prometheus.Registerer, logger *logrus.Logger) *HealthService {
	hs := &HealthService{
		critical:    make(map[string]Check),
		nonCritical: make(map[string]Check),
		models:      make(map[string]ModelInfo),
		logger:      logger,
	}

	hs.healthCheckStatus = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"}), logger)

	hs.lastHealthCheck = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_timestamp",
		Help: "Timestamp of last health check",
	}, []string{"service"}), logger)

	return hs
}

// AddCritical registers a dependency whose failure makes the service unhealthy.
func (s *HealthService) AddCritical(name string, check Check) {
	s.critical[name] = check
}

// AddNonCritical registers a dependency whose failure only degrades the service.
func (s *HealthService) AddNonCritical(name string, check Check) {
	s.nonCritical[name] = check
}

// AddModel registers a model whose readiness is reported. An untrained model
// makes the service unhealthy since no recommendation can be served.
func (s *HealthService) AddModel(name string, model ModelInfo) {
	s.models[name] = model
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		Timestamp: start,
		Services:  make(map[string]string),
		Models:    make(map[string]string),
	}

	// Check critical services
	allCriticalHealthy := true
	for name, check := range s.critical {
		if !s.probe(ctx, name, check, status) {
			status.Critical = append(status.Critical, name)
			allCriticalHealthy = false
		}
	}

	// Check non-critical services
	for name, check := range s.nonCritical {
		if !s.probe(ctx, name, check, status) {
			status.NonCritical = append(status.NonCritical, name)
		}
	}

	for name, model := range s.models {
		version := model.Version()
		if version == "" {
			status.Models[name] = "untrained"
			status.Critical = append(status.Critical, "model:"+name)
			allCriticalHealthy = false
			continue
		}
		status.Models[name] = version
	}

	// Overall status
	if allCriticalHealthy {
		if len(status.NonCritical) == 0 {
			status.Status = "healthy"
		} else {
			status.Status = "degraded"
		}
	} else {
		status.Status = "unhealthy"
	}

	status.Latency = time.Since(start)
	return status
}

func (s *HealthService) probe(ctx context.Context, name string, check Check, status *HealthStatus) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := check(ctx); err != nil {
		status.Services[name] = "unhealthy"
		s.logger.WithError(err).Warnf("Service %s is unhealthy", name)
		s.UpdateHealthMetrics(name, false)
		return false
	}

	status.Services[name] = "healthy"
	s.UpdateHealthMetrics(name, true)
	return true
}

// UpdateHealthMetrics updates health check metrics
func (s *HealthService) UpdateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(time.Now().Unix()))
}
