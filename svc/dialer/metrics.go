package dialer

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	dispatched    prometheus.Counter
	admissionDeny prometheus.Counter
	outcomes      *prometheus.CounterVec
	ignored       *prometheus.CounterVec
	timeouts      *prometheus.CounterVec
	invariant     prometheus.Counter
	effectErrors  *prometheus.CounterVec
	recovered     prometheus.Counter
	callDuration  prometheus.Histogram
	activeCalls   prometheus.Gauge
	pendingLeads  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// already registered by another engine in the same process are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dialer_attempts_dispatched_total", Help: "Call attempts created and dispatched.",
		}),
		admissionDeny: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dialer_admission_denied_total", Help: "Claimed leads returned to the queue for lack of capacity.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dialer_attempt_outcomes_total", Help: "Terminal call attempts by outcome and retry action.",
		}, []string{"outcome", "action"}),
		ignored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dialer_events_ignored_total", Help: "Lifecycle events that did not move an attempt.",
		}, []string{"event", "reason"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dialer_watchdog_timeouts_total", Help: "Attempts forced to failed by the watchdog.",
		}, []string{"reason"}),
		invariant: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dialer_invariant_violations_total", Help: "Dispatches aborted because the lead already had an active attempt.",
		}),
		effectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dialer_effect_errors_total", Help: "Failed collaborator calls by effect.",
		}, []string{"effect"}),
		recovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dialer_meetings_recovered_total", Help: "Meetings booked by the sweep after the first booking failed.",
		}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "dialer_call_duration_seconds", Help: "Connected duration of answered calls.",
			Buckets: []float64{5, 15, 30, 60, 120, 180, 300, 600},
		}),
		activeCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dialer_active_calls", Help: "Admission slots currently held.",
		}),
		pendingLeads: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dialer_pending_leads", Help: "Leads waiting in the queue at the last tick.",
		}),
	}

	if reg == nil {
		return m, nil
	}

	r := &registrar{reg: reg}
	m.dispatched = registerCollector(r, m.dispatched)
	m.admissionDeny = registerCollector(r, m.admissionDeny)
	m.outcomes = registerCollector(r, m.outcomes)
	m.ignored = registerCollector(r, m.ignored)
	m.timeouts = registerCollector(r, m.timeouts)
	m.invariant = registerCollector(r, m.invariant)
	m.effectErrors = registerCollector(r, m.effectErrors)
	m.recovered = registerCollector(r, m.recovered)
	m.callDuration = registerCollector(r, m.callDuration)
	m.activeCalls = registerCollector(r, m.activeCalls)
	m.pendingLeads = registerCollector(r, m.pendingLeads)
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

type registrar struct {
	reg prometheus.Registerer
	err error
}

func registerCollector[C prometheus.Collector](r *registrar, c C) C {
	err := r.reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	r.err = errors.Join(r.err, err)
	return c
}

func (m *Metrics) Dispatched() {
	if m != nil {
		m.dispatched.Inc()
	}
}

func (m *Metrics) AdmissionDenied() {
	if m != nil {
		m.admissionDeny.Inc()
	}
}

func (m *Metrics) Outcome(outcome Outcome, action Action) {
	if m != nil {
		m.outcomes.WithLabelValues(string(outcome), string(action)).Inc()
	}
}

func (m *Metrics) Ignored(kind EventKind, reason IgnoreReason) {
	if m != nil {
		m.ignored.WithLabelValues(string(kind), string(reason)).Inc()
	}
}

func (m *Metrics) Timeout(reason string) {
	if m != nil {
		m.timeouts.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) InvariantViolation() {
	if m != nil {
		m.invariant.Inc()
	}
}

func (m *Metrics) EffectError(effect string) {
	if m != nil {
		m.effectErrors.WithLabelValues(effect).Inc()
	}
}

func (m *Metrics) MeetingRecovered() {
	if m != nil {
		m.recovered.Inc()
	}
}

func (m *Metrics) CallDuration(seconds float64) {
	if m != nil {
		m.callDuration.Observe(seconds)
	}
}

func (m *Metrics) SetActive(n int) {
	if m != nil {
		m.activeCalls.Set(float64(n))
	}
}

func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.pendingLeads.Set(float64(n))
	}
}
