package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skufu/interventions/internal/orchestrator"
)

// Metrics counts generation attempts and session outcomes.
type Metrics struct {
	registry *prometheus.Registry
	attempts *prometheus.CounterVec
	outcomes *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommender_generation_attempts_total",
			Help: "Remote generation calls by result.",
		}, []string{"result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommender_session_outcomes_total",
			Help: "Final phase reached by submit and feedback actions.",
		}, []string{"action", "phase"}),
	}
	reg.MustRegister(m.attempts, m.outcomes)
	return m
}

// ObserveAttempt is registered with the recommendation client.
func (m *Metrics) ObserveAttempt(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	m.attempts.WithLabelValues(result).Inc()
}

func (m *Metrics) observeOutcome(action string, out orchestrator.Outcome) {
	m.outcomes.WithLabelValues(action, string(out.Phase)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
