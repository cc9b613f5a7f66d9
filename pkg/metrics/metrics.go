// Package metrics exposes lifecycle and bridge counters in Prometheus form.
package metrics

import (
	"time"

	"github.com/dkhoanguyen/dvrk-console/pkg/component"
	"github.com/dkhoanguyen/dvrk-console/pkg/lifecycle"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dvrk_console"

type Metrics struct {
	Registry *prometheus.Registry

	phaseDuration  *prometheus.HistogramVec
	componentState *prometheus.GaugeVec
	published      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lifecycle_phase_duration_seconds",
			Help:      "Time spent in each lifecycle phase.",
			Buckets:   []float64{.001, .01, .1, .5, 1, 2, 5},
		}, []string{"phase", "result"}),
		componentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "component_state",
			Help:      "Lifecycle state of each component (0 constructed .. 4 cleaned up).",
		}, []string{"component"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_messages_total",
			Help:      "Messages handed to the bus publisher.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(m.phaseDuration, m.componentState, m.published)
	return m
}

func (m *Metrics) PhaseCompleted(phase lifecycle.Phase, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.phaseDuration.WithLabelValues(string(phase), result).Observe(elapsed.Seconds())
}

func (m *Metrics) ComponentTransition(name string, state component.State) {
	m.componentState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) Published(topic string, err error) {
	if err != nil {
		m.published.WithLabelValues("error").Inc()
		return
	}
	m.published.WithLabelValues("ok").Inc()
}
