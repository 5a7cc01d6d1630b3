package metrics

import (
	"net/http"

	"sleepywoodpecker/swing-platform/internal/swing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the swing platform.
type Metrics struct {
	registry           *prometheus.Registry
	eventsTotal        *prometheus.CounterVec
	swingsTotal        prometheus.Counter
	steppedOffTotal    prometheus.Counter
	tempoCommandsTotal *prometheus.CounterVec
	samplesTotal       prometheus.Counter
	notifyErrorsTotal  prometheus.Counter
	phase              prometheus.Gauge
	sensorFault        prometheus.Gauge
	companionConnected prometheus.Gauge
}

// New creates and registers the platform metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swing_events_total",
			Help: "Outbound events emitted by the state machine, by kind",
		}, []string{"kind"}),
		swingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swing_completed_total",
			Help: "Swings recorded and transmitted",
		}),
		steppedOffTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swing_stepped_off_total",
			Help: "Countdowns aborted by stepping off the platform",
		}),
		tempoCommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swing_tempo_commands_total",
			Help: "Inbound tempo commands, by result",
		}, []string{"result"}),
		samplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swing_samples_total",
			Help: "Weight samples taken by the tick loop",
		}),
		notifyErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swing_notify_errors_total",
			Help: "Outbound messages that could not be delivered",
		}),
		phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swing_phase",
			Help: "Current phase (0 idle, 1 weight detected, 2 armed, 3 triggered, 4 faulted)",
		}),
		sensorFault: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swing_sensor_fault",
			Help: "1 once a sensor fault has halted the platform",
		}),
		companionConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swing_companion_connected",
			Help: "1 while a companion app is subscribed",
		}),
	}

	registry.MustRegister(
		m.eventsTotal,
		m.swingsTotal,
		m.steppedOffTotal,
		m.tempoCommandsTotal,
		m.samplesTotal,
		m.notifyErrorsTotal,
		m.phase,
		m.sensorFault,
		m.companionConnected,
	)

	return m
}

// ObserveEvent counts an emitted event.
func (m *Metrics) ObserveEvent(kind swing.EventKind) {
	m.eventsTotal.WithLabelValues(string(kind)).Inc()
	switch kind {
	case swing.EventData:
		m.swingsTotal.Inc()
	case swing.EventSteppedOff:
		m.steppedOffTotal.Inc()
	}
}

// IncTempoCommand counts a tempo command with result "accepted" or "rejected".
func (m *Metrics) IncTempoCommand(result string) {
	m.tempoCommandsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncSamples() {
	m.samplesTotal.Inc()
}

func (m *Metrics) IncNotifyErrors() {
	m.notifyErrorsTotal.Inc()
}

func (m *Metrics) SetPhase(p swing.Phase) {
	m.phase.Set(float64(p))
}

func (m *Metrics) SetSensorFault(faulted bool) {
	m.sensorFault.Set(boolToFloat(faulted))
}

func (m *Metrics) SetCompanionConnected(connected bool) {
	m.companionConnected.Set(boolToFloat(connected))
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
