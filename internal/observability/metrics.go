package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the bot. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Events          *prometheus.CounterVec
	WizardSteps     *prometheus.CounterVec
	Actions         *prometheus.CounterVec
	AdvisorFailures *prometheus.CounterVec
	ActiveWizards   prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound chat events by kind.",
		}, []string{"kind"}),
		WizardSteps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_steps_total",
			Help:      "Wizard step results by wizard and outcome.",
		}, []string{"wizard", "outcome"}),
		Actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "List actions by kind and result.",
		}, []string{"kind", "result"}),
		AdvisorFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisor_failures_total",
			Help:      "Advisory calls that fell back to canned text.",
		}, []string{"op"}),
		ActiveWizards: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_wizards",
			Help:      "Users currently inside a wizard.",
		}),
	}
}

func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(kind).Inc()
}

func (m *Metrics) WizardStep(wizard, outcome string) {
	if m == nil {
		return
	}
	m.WizardSteps.WithLabelValues(wizard, outcome).Inc()
}

func (m *Metrics) Action(kind, result string) {
	if m == nil {
		return
	}
	m.Actions.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) AdvisorFailure(op string) {
	if m == nil {
		return
	}
	m.AdvisorFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) SetActiveWizards(n int) {
	if m == nil {
		return
	}
	m.ActiveWizards.Set(float64(n))
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
