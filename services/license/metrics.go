package license

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeActivated   = "activated"
	outcomeInvalidKey  = "invalid_key"
	outcomeDeactivated = "deactivated"
	outcomeExpired     = "expired"
	outcomeBound       = "bound_elsewhere"
	outcomeError       = "error"
)

type Metrics struct {
	activations   *prometheus.CounterVec
	verifications *prometheus.CounterVec
}

// NewMetrics registers the registry counters on reg. A nil reg leaves them
// unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "license_activations_total",
			Help: "Activation attempts by outcome.",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "license_verifications_total",
			Help: "Verification requests by validity.",
		}, []string{"valid"}),
	}

	if reg != nil {
		reg.MustRegister(m.activations, m.verifications)
	}
	return m
}

func (m *Metrics) activation(outcome string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) verification(valid bool) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(strconv.FormatBool(valid)).Inc()
}
